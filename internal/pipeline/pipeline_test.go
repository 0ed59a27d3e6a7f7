package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

func upper() Step {
	return Step{Name: "upper", Pure: true, Apply: func(doc *Document) (*Document, error) {
		out := doc.Clone()
		out.SetContent(strings.ToUpper(doc.Content))
		return out, nil
	}}
}

func suffix(name, s string) Step {
	return Step{Name: name, Apply: func(doc *Document) (*Document, error) {
		out := doc.Clone()
		out.SetContent(doc.Content + s)
		return out, nil
	}}
}

func TestPipeline_RunFoldsInOrder(t *testing.T) {
	doc := NewDocument("a.md", []byte("x"))

	out, err := New(suffix("one", "1"), upper(), suffix("two", "2")).Run(doc)
	require.NoError(t, err)
	assert.Equal(t, "X12", out.Content)

	out, err = New(upper(), suffix("one", "a"), suffix("two", "b")).Run(doc)
	require.NoError(t, err)
	assert.Equal(t, "Xab", out.Content)
}

func TestPipeline_RunDoesNotMutateInput(t *testing.T) {
	doc := NewDocument("a.md", []byte("hello"))

	out, err := New(upper()).Run(doc)
	require.NoError(t, err)

	assert.Equal(t, "hello", doc.Content)
	assert.Equal(t, "HELLO", out.Content)
	assert.Equal(t, doc.OriginalHash, out.OriginalHash)
	assert.NotEqual(t, out.OriginalHash, out.ContentHash)
	assert.True(t, out.Changed())
}

func TestPipeline_RunWrapsStepErrors(t *testing.T) {
	failing := Step{Name: "boom", Apply: func(doc *Document) (*Document, error) {
		return nil, errors.NotFound("missing.md")
	}}

	_, err := New(upper(), failing).Run(NewDocument("a.md", []byte("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step boom")
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestPipeline_Validate(t *testing.T) {
	links := Step{Name: StepLinks, Apply: func(d *Document) (*Document, error) { return d, nil }}

	tests := []struct {
		name    string
		steps   []Step
		wantErr bool
	}{
		{"empty", nil, false},
		{"links last", []Step{upper(), links}, false},
		{"links first", []Step{links, upper()}, true},
		{"duplicate names", []Step{upper(), upper()}, true},
		{"unnamed", []Step{{Apply: upper().Apply}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.steps...).Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPipeline_MemoShortCircuitsPureStepsByPathAndHash(t *testing.T) {
	calls := 0
	counting := Step{Name: "count", Pure: true, Apply: func(doc *Document) (*Document, error) {
		calls++
		out := doc.Clone()
		out.SetContent(doc.Content + "!")
		return out, nil
	}}
	memo := NewMemo()
	p := New(counting).WithMemo(memo)

	first, err := p.Run(NewDocument("a.md", []byte("v1")))
	require.NoError(t, err)
	second, err := p.Run(NewDocument("a.md", []byte("v1")))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, memo.Hits())

	// Same path, new content: must recompute.
	third, err := p.Run(NewDocument("a.md", []byte("v2")))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "v2!", third.Content)

	// Same content, other path: must recompute.
	_, err = p.Run(NewDocument("b.md", []byte("v2")))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	memo.Forget("a.md")
	_, err = p.Run(NewDocument("a.md", []byte("v2")))
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestPipeline_MemoIgnoresImpureSteps(t *testing.T) {
	calls := 0
	impure := Step{Name: "impure", Apply: func(doc *Document) (*Document, error) {
		calls++
		return doc, nil
	}}
	p := New(impure).WithMemo(NewMemo())

	for range 3 {
		_, err := p.Run(NewDocument("a.md", []byte("same")))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestBuild(t *testing.T) {
	p, err := Build(Env{}, DefaultSteps...)
	require.NoError(t, err)
	assert.Equal(t, DefaultSteps, p.Names())

	_, err = Build(Env{}, "frontmatter", "nope")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	_, err = Build(Env{}, StepLinks, StepInclude)
	require.Error(t, err)

	assert.Equal(t, []string{"frontmatter", "include", "layout", "links"}, StepNames())
}
