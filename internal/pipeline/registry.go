package pipeline

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/mdsite/internal/directive"
	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/paths"
)

// Resolver returns the fully processed form of another document. The engine
// implements it; include and layout steps call back into it.
type Resolver interface {
	Resolve(path string) (*Document, error)
}

// AssetCopier copies a non-source file referenced by a relative link to its
// mirrored location in the output tree.
type AssetCopier interface {
	CopyAsset(src string) error
}

// Env carries what the built-in steps need from their host.
type Env struct {
	Resolver Resolver
	Copier   AssetCopier
	Mapper   paths.Mapper
	Syntax   directive.Syntax
}

// DefaultSteps is the default step order.
var DefaultSteps = []string{StepFrontMatter, StepInclude, StepLayout, StepLinks}

var registry = map[string]func(Env) Step{
	StepFrontMatter: func(Env) Step { return FrontMatter() },
	StepInclude:     func(env Env) Step { return Include(env.Resolver, env.Syntax) },
	StepLayout:      func(env Env) Step { return Layout(env.Resolver, env.Syntax) },
	StepLinks:       func(env Env) Step { return LinkRewrite(env.Mapper, env.Copier) },
}

// StepNames lists the names Build accepts.
func StepNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates a validated pipeline from step names.
func Build(env Env, names ...string) (*Pipeline, error) {
	steps := make([]Step, 0, len(names))
	for _, name := range names {
		factory, ok := registry[strings.TrimSpace(name)]
		if !ok {
			return nil, errors.ValidationError("unknown pipeline step").
				WithContext("step", name).
				WithContext("known", strings.Join(StepNames(), ",")).
				Build()
		}
		steps = append(steps, factory(env))
	}

	p := New(steps...)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Default returns the default pipeline: front matter, include, layout, links.
func Default(env Env) *Pipeline {
	p, err := Build(env, DefaultSteps...)
	if err != nil {
		// DefaultSteps is static and always valid.
		panic(err)
	}
	return p
}
