// Package pipeline implements the ordered document transformation pipeline:
// a left fold of steps over a Document, plus the built-in steps that strip
// front matter, resolve includes and layouts, and rewrite relative links.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
)

// Step names of the built-in steps.
const (
	StepFrontMatter = "frontmatter"
	StepInclude     = "include"
	StepLayout      = "layout"
	StepLinks       = "links"
)

// ApplyFunc transforms a document. It must not modify its input; steps that
// change content work on doc.Clone().
type ApplyFunc func(doc *Document) (*Document, error)

// Step is a named transformation.
//
// Pure steps depend only on the document content and can be memoised by
// (path, input hash). Steps that read other documents or touch the output
// tree must not be marked Pure.
type Step struct {
	Name  string
	Pure  bool
	Apply ApplyFunc
}

// Pipeline runs steps in order.
type Pipeline struct {
	steps  []Step
	memo   *Memo
	logger *slog.Logger
}

// New creates a pipeline from steps, in order.
func New(steps ...Step) *Pipeline {
	return &Pipeline{
		steps:  append([]Step(nil), steps...),
		logger: slog.Default(),
	}
}

// WithMemo enables memoisation of pure steps.
func (p *Pipeline) WithMemo(m *Memo) *Pipeline {
	p.memo = m
	return p
}

// WithLogger sets the logger used for step tracing.
func (p *Pipeline) WithLogger(logger *slog.Logger) *Pipeline {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Names returns the step names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Len returns the number of steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// Validate checks the ordering contract: step names are unique and, when the
// link rewrite step is present, it runs last so that content introduced by
// earlier steps is rewritten too.
func (p *Pipeline) Validate() error {
	seen := make(map[string]struct{}, len(p.steps))
	for i, s := range p.steps {
		if s.Name == "" || s.Apply == nil {
			return errors.ValidationError("pipeline step must have a name and a function").
				WithContext("index", i).
				Build()
		}
		if _, dup := seen[s.Name]; dup {
			return errors.ValidationError("duplicate pipeline step").
				WithContext("step", s.Name).
				Build()
		}
		seen[s.Name] = struct{}{}

		if s.Name == StepLinks && i != len(p.steps)-1 {
			return errors.ValidationError("link rewrite step must run last").
				WithContext("step", s.Name).
				WithContext("index", i).
				Build()
		}
	}
	return nil
}

// Run folds doc through every step. The input document is never modified.
func (p *Pipeline) Run(doc *Document) (*Document, error) {
	current := doc
	for _, step := range p.steps {
		start := time.Now()

		if step.Pure && p.memo != nil {
			if out, ok := p.memo.Get(step.Name, current.Path, current.ContentHash); ok {
				p.logger.Debug("Step memoised", logfields.Step(step.Name), logfields.Path(current.Path))
				current = out
				continue
			}
		}

		out, err := step.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name, err)
		}
		if out == nil {
			return nil, errors.InternalError("pipeline step returned no document").
				WithContext("step", step.Name).
				WithContext("path", current.Path).
				Build()
		}

		if step.Pure && p.memo != nil {
			p.memo.Put(step.Name, current.Path, current.ContentHash, out)
		}

		p.logger.Debug("Step applied",
			logfields.Step(step.Name),
			logfields.Path(current.Path),
			logfields.Duration(time.Since(start)))
		current = out
	}
	return current, nil
}
