package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

type project struct {
	dir, src, out, cfg, journal string
}

func newProject(t *testing.T, files map[string]string) project {
	t.Helper()
	dir := t.TempDir()
	p := project{
		dir:     dir,
		src:     filepath.Join(dir, "docs"),
		out:     filepath.Join(dir, "site"),
		cfg:     filepath.Join(dir, "mdsite.yaml"),
		journal: filepath.Join(dir, "state", "journal.db"),
	}
	for rel, content := range files {
		path := filepath.Join(p.src, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return p
}

func (p project) flags() SourceFlags {
	return SourceFlags{Source: p.src, Output: p.out, Journal: p.journal}
}

func TestInitBuildHistory(t *testing.T) {
	p := newProject(t, map[string]string{
		"index.md":  "# Home\n\n[Next](./next.md)\n",
		"next.md":   "# Next\n",
		"_note.md":  "partial\n",
		"README.md": "{{[include](./_note.md)}}\n",
	})
	var stdout bytes.Buffer
	g := &Global{Stdout: &stdout}
	root := &CLI{Config: p.cfg}

	require.NoError(t, (&InitCmd{}).Run(g, root))
	assert.FileExists(t, p.cfg)
	assert.Contains(t, stdout.String(), "Wrote "+p.cfg)

	stdout.Reset()
	require.NoError(t, (&BuildCmd{SourceFlags: p.flags()}).Run(g, root))
	assert.Contains(t, stdout.String(), "success, 3 exported, 0 failed")

	index, err := os.ReadFile(filepath.Join(p.out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `href="./next.html"`)
	assert.NoFileExists(t, filepath.Join(p.out, "_note.html"))

	stdout.Reset()
	require.NoError(t, (&HistoryCmd{Journal: p.journal, Limit: 5}).Run(g, root))
	assert.Contains(t, stdout.String(), "RUN")
	assert.Contains(t, stdout.String(), "build")
	assert.Contains(t, stdout.String(), "success")
}

func TestBuild_KeepPartials(t *testing.T) {
	p := newProject(t, map[string]string{"_part.md": "# Part\n"})
	g := &Global{Stdout: &bytes.Buffer{}}

	cmd := &BuildCmd{SourceFlags: SourceFlags{Source: p.src, Output: p.out}, KeepPartials: true}
	require.NoError(t, cmd.Run(g, &CLI{Config: filepath.Join(p.dir, "absent.yaml")}))
	assert.FileExists(t, filepath.Join(p.out, "_part.html"))
}

func TestBuild_DocumentFailureExitCode(t *testing.T) {
	p := newProject(t, map[string]string{
		"ok.md":     "# OK\n",
		"broken.md": "{{[layout](./missing.md)}}\n",
	})
	require.NoError(t, os.WriteFile(p.cfg, []byte("source: "+p.src+"\noutput: "+p.out+"\n"), 0o600))

	var stdout bytes.Buffer
	err := (&BuildCmd{}).Run(&Global{Stdout: &stdout}, &CLI{Config: p.cfg})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRuntime))
	assert.Equal(t, 12, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	assert.Contains(t, stdout.String(), "broken.md (process)")
	assert.FileExists(t, filepath.Join(p.out, "ok.html"))
}

func TestBuild_InvalidConfig(t *testing.T) {
	p := newProject(t, map[string]string{"a.md": "# A\n"})
	cmd := &BuildCmd{SourceFlags: SourceFlags{Source: p.src, Output: p.out, Pipeline: []string{"links", "include"}}}
	err := cmd.Run(&Global{Stdout: &bytes.Buffer{}}, &CLI{Config: filepath.Join(p.dir, "absent.yaml")})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig), "explicit missing config file")
}

func TestBuild_LinksMustBeLast(t *testing.T) {
	p := newProject(t, map[string]string{"a.md": "# A\n"})
	t.Chdir(p.dir)
	cmd := &BuildCmd{SourceFlags: SourceFlags{Source: p.src, Output: p.out, Pipeline: []string{"links", "include"}}}
	err := cmd.Run(&Global{Stdout: &bytes.Buffer{}}, &CLI{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestHistory_RequiresJournal(t *testing.T) {
	t.Chdir(t.TempDir())
	err := (&HistoryCmd{Limit: 5}).Run(&Global{Stdout: &bytes.Buffer{}}, &CLI{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestParseFlags(t *testing.T) {
	var cli CLI
	g := &Global{}
	parser, err := kong.New(&cli, kong.Vars{"version": "test"}, kong.Bind(g), kong.Exit(func(int) {}))
	require.NoError(t, err)

	kctx, err := parser.Parse([]string{"watch", "--source", "docs", "--pipeline", "include,layout,links", "--resync", "5m", "--metrics-addr", ":9464"})
	require.NoError(t, err)
	assert.Equal(t, "watch", kctx.Command())
	assert.Equal(t, []string{"include", "layout", "links"}, cli.Watch.Pipeline)
	assert.Equal(t, "5m", cli.Watch.Resync)
	assert.Equal(t, ":9464", cli.Watch.MetricsAddr)
	assert.NotNil(t, g.Logger, "AfterApply installs a logger")
}
