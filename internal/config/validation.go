package config

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/pipeline"
	"git.home.luguber.info/inful/mdsite/internal/render"
)

// Validate checks a normalised configuration.
func Validate(cfg *Config) error {
	err := validation.ValidateStruct(cfg,
		validation.Field(&cfg.Source, validation.Required),
		validation.Field(&cfg.Output, validation.Required, validation.By(distinctFrom(cfg.Source))),
		validation.Field(&cfg.SourceExt, validation.Required, validation.By(extension)),
		validation.Field(&cfg.OutputExt, validation.Required, validation.By(extension)),
		validation.Field(&cfg.Pipeline, validation.Required, validation.Each(validation.In(anySlice(pipeline.StepNames())...))),
		validation.Field(&cfg.Render),
		validation.Field(&cfg.Logging),
		validation.Field(&cfg.Watch),
		validation.Field(&cfg.NATS),
	)
	if err != nil {
		return ferrors.ConfigError("invalid configuration").WithCause(err).Build()
	}
	return nil
}

func (r RenderConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Extensions, validation.Each(validation.In(anySlice(render.ExtensionNames())...))),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)),
		validation.Field(&l.Format, validation.In(LogFormatText, LogFormatJSON)),
	)
}

func (w WatchConfig) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.Debounce, validation.Required, validation.By(duration)),
		validation.Field(&w.ResyncInterval, validation.By(duration)),
	)
}

func (n NATSConfig) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Subject, validation.When(n.URL != "", validation.Required)),
	)
}

func distinctFrom(source string) validation.RuleFunc {
	return func(value any) error {
		out, _ := value.(string)
		if out == "" || source == "" {
			return nil
		}
		if filepath.Clean(out) == filepath.Clean(source) {
			return errors.New("must differ from source")
		}
		return nil
	}
}

func extension(value any) error {
	ext, _ := value.(string)
	if ext == "" {
		return nil
	}
	if !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext[1:], `./\`) || len(ext) < 2 {
		return errors.New("must look like .ext")
	}
	return nil
}

func duration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.New("must be a duration such as 250ms or 5m")
	}
	if d < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
