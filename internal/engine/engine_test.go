package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/mdsite/internal/fingerprint"
	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/paths"
	"git.home.luguber.info/inful/mdsite/internal/pipeline"
	"git.home.luguber.info/inful/mdsite/internal/render"
)

type fixture struct {
	src    string
	out    string
	mapper paths.Mapper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{src: filepath.Join(root, "src"), out: filepath.Join(root, "out")}
	require.NoError(t, os.MkdirAll(f.src, 0o750))
	f.mapper = paths.NewMapper(f.src, f.out, ".md", ".html")
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	p := filepath.Join(f.src, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(f.out, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func (f *fixture) engine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(f.mapper, render.NewGoldmark(render.DefaultOptions()), opts...)
	require.NoError(t, err)
	return e
}

// countingPipeline prepends a step that counts real executions per path.
func countingPipeline(counts map[string]int) PipelineFactory {
	return func(env pipeline.Env) (*pipeline.Pipeline, error) {
		counter := pipeline.Step{Name: "count", Apply: func(doc *pipeline.Document) (*pipeline.Document, error) {
			counts[filepath.Base(doc.Path)]++
			return doc, nil
		}}
		return pipeline.New(
			counter,
			pipeline.FrontMatter(),
			pipeline.Include(env.Resolver, env.Syntax),
			pipeline.Layout(env.Resolver, env.Syntax),
			pipeline.LinkRewrite(env.Mapper, env.Copier),
		), nil
	}
}

func hrefs(t *testing.T, markup string) []string {
	t.Helper()
	node, err := html.Parse(strings.NewReader(markup))
	require.NoError(t, err)

	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key == "href" {
					out = append(out, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return out
}

func TestProcess_IdempotentForUnchangedContent(t *testing.T) {
	f := newFixture(t)
	page := f.write(t, "page.md", "# Page\n")
	counts := map[string]int{}
	e := f.engine(t, WithPipeline(countingPipeline(counts)))

	first := e.Process(page)
	second := e.Process(page)

	require.True(t, first.IsOk())
	require.True(t, second.IsOk())
	assert.Equal(t, first.Unwrap(), second.Unwrap())
	assert.Equal(t, 1, counts["page.md"])

	entry, ok := e.Cached(first.Unwrap())
	require.True(t, ok)
	again, _ := e.Cached(second.Unwrap())
	assert.Same(t, entry.Document, again.Document)
	assert.Equal(t, 1, e.Stats().CacheHits)
}

func TestProcess_ReprocessesChangedContent(t *testing.T) {
	f := newFixture(t)
	page := f.write(t, "page.md", "first")
	counts := map[string]int{}
	e := f.engine(t, WithPipeline(countingPipeline(counts)))

	before := e.Process(page).Unwrap()
	f.write(t, "page.md", "second")
	after := e.Process(page).Unwrap()

	assert.Equal(t, 2, counts["page.md"])
	assert.Equal(t, before.Path, after.Path)
	assert.NotEqual(t, before.Hash, after.Hash)

	_, stale := e.Cached(before)
	assert.False(t, stale, "old revision must not be served for the same path")
}

func TestProcess_DetectsCycles(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.md", "A\n{{[include](./b.md)}}\n")
	f.write(t, "b.md", "B\n{{[include](./a.md)}}\n")
	e := f.engine(t)

	res := e.Process(a)

	require.True(t, res.IsErr())
	assert.True(t, errors.HasCategory(res.UnwrapErr(), errors.CategoryCycle))
	assert.Equal(t, errors.CategoryCycle, errors.RootCategory(res.UnwrapErr()))
	assert.Zero(t, e.InFlight())
}

func TestProcess_RecoversAfterCycleIsFixed(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.md", "A\n{{[include](./b.md)}}\n")
	f.write(t, "b.md", "B\n{{[include](./a.md)}}\n")
	e := f.engine(t)

	require.True(t, e.Process(a).IsErr())
	require.Zero(t, e.InFlight())

	f.write(t, "b.md", "B only\n")
	res := e.Process(a)
	require.True(t, res.IsOk(), "a fixed cycle must not be reported again")

	entry, ok := e.Cached(res.Unwrap())
	require.True(t, ok)
	assert.Equal(t, "A\nB only\n\n", entry.Document.Content)
}

func TestProcess_FailureDoesNotMarkDocumentCyclic(t *testing.T) {
	f := newFixture(t)
	page := f.write(t, "page.md", "{{[include](./later.md)}}")
	e := f.engine(t)

	res := e.Process(page)
	require.True(t, res.IsErr())
	assert.True(t, errors.HasCategory(res.UnwrapErr(), errors.CategoryNotFound))

	f.write(t, "later.md", "now here")
	res = e.Process(page)
	require.True(t, res.IsOk())
	assert.Zero(t, e.InFlight())
}

func TestProcess_RejectsMissingAndUnsupported(t *testing.T) {
	f := newFixture(t)
	txt := f.write(t, "notes.txt", "plain")
	e := f.engine(t)

	missing := e.Process(filepath.Join(f.src, "nope.md"))
	require.True(t, missing.IsErr())
	assert.True(t, errors.HasCategory(missing.UnwrapErr(), errors.CategoryNotFound))

	unsupported := e.Process(txt)
	require.True(t, unsupported.IsErr())
	assert.True(t, errors.HasCategory(unsupported.UnwrapErr(), errors.CategoryUnsupported))

	assert.Equal(t, 2, e.Stats().Failed)
}

func TestLinkRewrite_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.write(t, "other.md", "# Other\n")
	f.write(t, "img/asset.png", "PNGDATA")
	page := f.write(t, "page.md", "[Other](./other.md) and ![Asset](./img/asset.png)\n")
	e := f.engine(t)

	fp := e.Process(page).Unwrap()
	entry, _ := e.Cached(fp)
	assert.Contains(t, entry.Document.Content, "[Other](./other.html)")
	assert.Contains(t, entry.Document.Content, "![Asset](./img/asset.png)")
	assert.Equal(t, "PNGDATA", f.read(t, "img/asset.png"))

	require.True(t, e.Export(fp))
	assert.Contains(t, hrefs(t, f.read(t, "page.html")), "./other.html")
}

func TestPipelineOrder_LinksRewrittenAfterInclusion(t *testing.T) {
	f := newFixture(t)
	f.write(t, "guide.md", "# Guide\n")
	f.write(t, "partials/_nav.md", "[Guide](../guide.md)\n")
	f.write(t, "_layout.md", "<main>\n\n{{slot}}\n\n</main>\n")
	page := f.write(t, "page.md", "{{[layout](./_layout.md)}}\n{{[include](./partials/_nav.md)}}\n")
	e := f.engine(t, WithSteps(pipeline.StepInclude, pipeline.StepLayout, pipeline.StepLinks))

	fp := e.Process(page).Unwrap()
	require.True(t, e.Export(fp))

	out := f.read(t, "page.html")
	assert.Contains(t, out, "<main>")
	assert.Equal(t, []string{"./guide.html"}, hrefs(t, out))
}

func TestNew_RejectsLinkRewriteBeforeInclusion(t *testing.T) {
	f := newFixture(t)
	_, err := New(f.mapper, render.NewGoldmark(render.Options{}),
		WithSteps(pipeline.StepLinks, pipeline.StepInclude, pipeline.StepLayout))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestBatch_ExportsCorrelateWithInput(t *testing.T) {
	f := newFixture(t)
	sources := []string{
		f.write(t, "a.md", "# A\n"),
		f.write(t, "b.md", "{{[include](./missing.md)}}\n"),
		f.write(t, "c.md", "# C\n"),
	}
	e := f.engine(t)

	processed := e.ProcessAll(sources)
	assert.Len(t, processed, 2)

	fps := make([]fingerprint.Footprint, len(sources))
	for i, src := range sources {
		fps[i] = e.Process(src).UnwrapOr(fingerprint.Footprint{})
	}
	results := e.ExportAll(fps)

	assert.Equal(t, []bool{true, false, true}, results)
	assert.FileExists(t, filepath.Join(f.out, "a.html"))
	assert.NoFileExists(t, filepath.Join(f.out, "b.html"))
	assert.FileExists(t, filepath.Join(f.out, "c.html"))
}

func TestProcessAll_CollapsesDuplicates(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.md", "a")
	e := f.engine(t)

	fps := e.ProcessAll([]string{a, a, filepath.Join(f.src, ".", "a.md")})
	assert.Len(t, fps, 1)
}

func TestProcess_IncludedChangeInvalidatesIncluder(t *testing.T) {
	f := newFixture(t)
	f.write(t, "_part.md", "v1")
	page := f.write(t, "page.md", "{{[include](./_part.md)}}")
	counts := map[string]int{}
	e := f.engine(t, WithPipeline(countingPipeline(counts)))

	fp := e.Process(page).Unwrap()
	assert.Equal(t, []string{page}, e.Dependents(filepath.Join(f.src, "_part.md")))

	f.write(t, "_part.md", "v2")
	again := e.Process(page).Unwrap()

	assert.Equal(t, fp, again, "page bytes did not change")
	assert.Equal(t, 2, counts["page.md"])
	entry, _ := e.Cached(again)
	assert.Equal(t, "v2", entry.Document.Content)
}

func TestLayout_NestedLayouts(t *testing.T) {
	f := newFixture(t)
	f.write(t, "layouts/outer.md", "OUTER[{{slot}}]")
	f.write(t, "layouts/inner.md", "{{[layout](./outer.md)}}INNER({{slot}})")
	page := f.write(t, "page.md", "{{[layout](./layouts/inner.md)}}body")
	e := f.engine(t)

	fp := e.Process(page).Unwrap()
	entry, _ := e.Cached(fp)
	assert.Equal(t, "OUTER[INNER(body)]", entry.Document.Content)
}

func TestRemove_DeletesPrimaryOutputOnly(t *testing.T) {
	f := newFixture(t)
	f.write(t, "logo.png", "img")
	page := f.write(t, "page.md", "![Logo](./logo.png)")
	e := f.engine(t)

	fp := e.Process(page).Unwrap()
	require.True(t, e.Export(fp))
	require.NoError(t, os.Remove(page))

	require.NoError(t, e.Remove(page))
	_, cached := e.Cached(fp)
	assert.False(t, cached)
	assert.NoFileExists(t, filepath.Join(f.out, "page.html"))
	assert.FileExists(t, filepath.Join(f.out, "logo.png"))

	require.NoError(t, e.Remove(page), "removing twice is harmless")
	assert.False(t, e.Export(fp))
}

func TestPrepareOutput(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.out, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(f.out, "stale.html"), []byte("old"), 0o600))
	nested := f.write(t, "a/b/page.md", "x")
	e := f.engine(t)

	require.NoError(t, e.PrepareOutput([]string{nested}))
	assert.NoFileExists(t, filepath.Join(f.out, "stale.html"))
	assert.DirExists(t, filepath.Join(f.out, "a", "b"))
}

func TestPrepareOutput_RefusesToClearSourceTree(t *testing.T) {
	f := newFixture(t)
	mapper := paths.NewMapper(f.src, filepath.Dir(f.src), ".md", ".html")
	e, err := New(mapper, render.Func(func(s string) string { return s }))
	require.NoError(t, err)

	err = e.PrepareOutput(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestFrontMatterIsStrippedBeforeRendering(t *testing.T) {
	f := newFixture(t)
	page := f.write(t, "page.md", "---\ntitle: Hi\n---\n# Heading\n")
	e := f.engine(t)

	fp := e.Process(page).Unwrap()
	entry, _ := e.Cached(fp)
	assert.Equal(t, "Hi", entry.Document.FrontMatter["title"])

	require.True(t, e.Export(fp))
	out := f.read(t, "page.html")
	assert.NotContains(t, out, "title:")
	assert.Contains(t, out, "Heading</h1>")
}

func TestLinkRewrite_MixedCaseExtensionIsAsset(t *testing.T) {
	f := newFixture(t)
	f.write(t, "Guide.MD", "# Guide\n")
	page := f.write(t, "page.md", "[g](./Guide.MD)\n")
	e := f.engine(t)

	fp := e.Process(page).Unwrap()
	require.True(t, e.Export(fp))
	assert.Equal(t, []string{"./Guide.MD"}, hrefs(t, f.read(t, "page.html")))
	assert.Equal(t, "# Guide\n", f.read(t, "Guide.MD"))
}

func TestProcess_ThematicBreakBlockRenders(t *testing.T) {
	f := newFixture(t)
	page := f.write(t, "page.md", "---\nJust a sentence here\n---\n\nbody\n")
	e := f.engine(t)

	res := e.Process(page)
	require.True(t, res.IsOk())
	require.True(t, e.Export(res.Unwrap()))
	out := f.read(t, "page.html")
	assert.Contains(t, out, "Just a sentence here")
	assert.Contains(t, out, "body")
}
