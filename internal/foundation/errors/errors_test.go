package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	err := NewError(CategoryFileSystem, "copy asset").Build()

	assert.Equal(t, CategoryFileSystem, err.Category())
	assert.Equal(t, SeverityError, err.Severity())
	assert.Equal(t, RetryNever, err.RetryStrategy())
	assert.False(t, err.CanRetry())
	assert.False(t, err.IsFatal())
}

func TestDocumentErrorsCarryPath(t *testing.T) {
	tests := []struct {
		name     string
		err      *ClassifiedError
		category ErrorCategory
	}{
		{"not found", NotFound("docs/missing.md"), CategoryNotFound},
		{"unsupported", UnsupportedType("docs/missing.md", ".txt"), CategoryUnsupported},
		{"cycle", CyclicReference("docs/missing.md"), CategoryCycle},
		{"layout", LayoutError("docs/missing.md", "layout has no slot"), CategoryLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category())
			assert.Equal(t, "docs/missing.md", tt.err.Path())
			assert.Contains(t, tt.err.Error(), "docs/missing.md")
		})
	}
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := NotFound("a.md")
	extended := base.WithContext("included_by", "b.md")

	_, ok := base.Context().Get("included_by")
	assert.False(t, ok)
	v, ok := extended.Context().GetString("included_by")
	require.True(t, ok)
	assert.Equal(t, "b.md", v)
}

func TestHasCategoryWalksWrapChain(t *testing.T) {
	cycle := CyclicReference("a.md")
	include := WrapError(cycle, CategoryLayout, "include failed").WithContext("path", "b.md").Build()
	wrapped := fmt.Errorf("pipeline step include: %w", include)

	assert.True(t, HasCategory(wrapped, CategoryLayout))
	assert.True(t, HasCategory(wrapped, CategoryCycle))
	assert.False(t, HasCategory(wrapped, CategoryNotFound))
	assert.Equal(t, CategoryLayout, GetCategory(wrapped))
	assert.Equal(t, CategoryCycle, RootCategory(wrapped))
}

func TestIsMatchesCategoryAndMessage(t *testing.T) {
	assert.True(t, stderrors.Is(NotFound("a.md"), NotFound("b.md")))
	assert.False(t, stderrors.Is(NotFound("a.md"), CyclicReference("a.md")))
}

func TestCategoryHelpersOnPlainErrors(t *testing.T) {
	plain := stderrors.New("plain")

	assert.False(t, HasCategory(plain, CategoryInternal))
	assert.Equal(t, CategoryInternal, GetCategory(plain))
	assert.Equal(t, CategoryInternal, RootCategory(plain))
	_, ok := AsClassified(plain)
	assert.False(t, ok)
}
