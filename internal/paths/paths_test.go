package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

func TestMapper_ToOutput(t *testing.T) {
	m := NewMapper("src", "out", "md", ".html")

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"source at root", filepath.Join("src", "index.md"), filepath.Join("out", "index.html")},
		{"nested source", filepath.Join("src", "a", "b", "page.md"), filepath.Join("out", "a", "b", "page.html")},
		{"asset keeps extension", filepath.Join("src", "img", "logo.png"), filepath.Join("out", "img", "logo.png")},
		{"uncleaned input", "src/a/../b/x.md", filepath.Join("out", "b", "x.html")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.ToOutput(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapper_ToOutputRejectsEscapes(t *testing.T) {
	m := NewMapper("src", "out", ".md", ".html")

	_, err := m.ToOutput(filepath.Join("src", "..", "secret.md"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.False(t, m.Contains(filepath.Join("other", "x.md")))
	assert.True(t, m.Contains(filepath.Join("src", "x.md")))
}

func TestMapper_SwapExt(t *testing.T) {
	m := NewMapper("src", "out", ".md", ".html")
	assert.Equal(t, "./other.html", m.SwapExt("./other.md"))
	assert.Equal(t, "../a/b.html", m.SwapExt("../a/b.md"))
	assert.Equal(t, "./asset.png", m.SwapExt("./asset.png"))
	assert.True(t, m.IsSource("x.md"))
	assert.False(t, m.IsSource("x.MD"))
	assert.Equal(t, "./Guide.MD", m.SwapExt("./Guide.MD"))
}
