package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/justext/justify"
	canvasrenderer "github.com/ByLCY/justext/renderer/canvas"
	"github.com/ByLCY/justext/termtext"
)

const demoDoc = `doc Demo v1 {
  meta { title: "${title}" }
  page A5 margin 15mm {
    paragraph { "Hello, ${user}. Justified text keeps every line inside its budget while thin spaces fill the gaps between words." }
  }
}`

func TestRunGeneratesPDF(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "demo.jt")
	require.NoError(t, os.WriteFile(in, []byte(demoDoc), 0o644))

	job := pdfJob{
		In:      in,
		Out:     filepath.Join(dir, "out", "demo.pdf"),
		Debug:   filepath.Join(dir, "debug", "layout.json"),
		Data:    map[string]any{"title": "Demo", "user": "reader"},
		Justify: []justify.Option{justify.WithSeed(5)},
	}
	memo, err := openMemo(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	job.Cache = memo

	require.NoError(t, run(context.Background(), job, canvasrenderer.NewRenderer(dir)))

	pdfBytes, err := os.ReadFile(job.Out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")))

	debug, err := os.ReadFile(job.Debug)
	require.NoError(t, err)
	assert.Contains(t, string(debug), "Hello, reader.")
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	err := run(context.Background(), pdfJob{In: filepath.Join(dir, "missing.jt")}, canvasrenderer.NewRenderer(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "无法打开 DSL 文件")

	require.Error(t, run(context.Background(), pdfJob{}, nil))
}

func TestOpenMemoDisabled(t *testing.T) {
	memo, err := openMemo("")
	require.NoError(t, err)
	assert.Nil(t, memo)
}

func TestWriteTextKeepsWidth(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	var buf bytes.Buffer
	require.NoError(t, writeText(&buf, textJob{
		Text:    text,
		Columns: 14,
		Justify: []justify.Option{justify.WithSeed(1)},
	}))

	out := strings.TrimSuffix(buf.String(), "\n")
	lines := strings.Split(out, "\n")
	require.Greater(t, len(lines), 1)
	for i, ln := range lines {
		assert.Less(t, termtext.Measure(ln), 14.0, "line %d: %q", i, ln)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.ReplaceAll(out, justify.ThinSpace, "")))
}

func TestWriteTextCacheMatchesDirect(t *testing.T) {
	text := "caching only applies when the seed is fixed so repeated runs agree"
	job := textJob{Text: text, Columns: 20, Justify: []justify.Option{justify.WithSeed(9)}}

	var direct bytes.Buffer
	require.NoError(t, writeText(&direct, job))

	dir := t.TempDir()
	memo, err := openMemo(dir)
	require.NoError(t, err)
	job.Cache = memo
	for range 2 {
		var cached bytes.Buffer
		require.NoError(t, writeText(&cached, job))
		assert.Equal(t, direct.String(), cached.String())
	}

	entries, err := os.ReadDir(filepath.Join(dir, "lines"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestWriteTextFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeText(&buf, textJob{
		Text:    "framed output keeps the border aligned on every row",
		Columns: 24,
		Frame:   true,
		Justify: []justify.Option{justify.WithSeed(2)},
	}))
	rows := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Greater(t, len(rows), 2)
	for _, row := range rows {
		assert.LessOrEqual(t, termtext.Measure(row), 24.0, "row %q", row)
	}
}

func TestWriteTextNFC(t *testing.T) {
	var buf bytes.Buffer
	// e + 组合重音符应被合并为单个字符
	require.NoError(t, writeText(&buf, textJob{Text: "café", Columns: 20}))
	assert.Equal(t, "café\n", buf.String())
}

func TestTextCommandFromStdin(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader("alpha beta gamma delta epsilon zeta eta theta"))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"text", "--width", "16", "--seed", "4", "--color", "off"})
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	require.NotNil(t, cfg.Justify.Seed)
	assert.Equal(t, int64(4), *cfg.Justify.Seed)

	var again bytes.Buffer
	require.NoError(t, writeText(&again, textJob{
		Text:    "alpha beta gamma delta epsilon zeta eta theta",
		Columns: 16,
		Justify: cfg.Options(),
	}))
	assert.Equal(t, again.String(), out.String())
}

func TestSetColorMode(t *testing.T) {
	require.NoError(t, setColorMode("off"))
	require.NoError(t, setColorMode("on"))
	require.Error(t, setColorMode("sometimes"))
}
