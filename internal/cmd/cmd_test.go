package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateful/mathedit/internal/version"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := Root()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

func TestRenderCmd(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"doc.md": "a $x$ b\n\n$$\ny\n$$\n",
	})

	out, err := execute(t, "--chdir", dir, "render", "doc.md")
	require.NoError(t, err)
	assert.Contains(t, out, `<div class="ProseMirror" contenteditable="true">`)
	assert.Contains(t, out, `<math-inline class="math-node"><span class="math-render"><math`)
	assert.Contains(t, out, `<math-display class="math-node"><span class="math-render"><math`)
}

func TestRenderCmd_MultipleFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"first.md":  "first $a$\n",
		"second.md":  "second $b$\n",
	})

	out, err := execute(t, "--chdir", dir, "render", "first.md", "second.md")
	require.NoError(t, err)
	first := strings.Index(out, "first ")
	second := strings.Index(out, "second ")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
	assert.Equal(t, 2, strings.Count(out, `<div class="ProseMirror" contenteditable="true">`))
}

func TestRenderCmd_LoggerPerFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a/doc.md": "a $x$\n",
		"b/doc.md": "b $y$\n",
	})
	logFile := func(name string) string {
		return filepath.Join(dir, name, "mathedit.log")
	}
	for _, name := range []string{"a", "b"} {
		cfg := "version: v1\nlog:\n  enabled: true\n  path: " + logFile(name) + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name, "mathedit.yaml"), []byte(cfg), 0o600))
	}

	_, err := execute(t, "--chdir", dir, "render", "a/doc.md", "b/doc.md")
	require.NoError(t, err)

	for _, name := range []string{"a", "b"} {
		data, err := os.ReadFile(logFile(name))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"rendered document"`)
		assert.Contains(t, string(data), `"file":"`+name+`/doc.md"`)
	}
}

func TestRenderCmd_RequiredVersion(t *testing.T) {
	t.Cleanup(func() { version.BuildVersion = "0.0.0" })
	dir := writeFiles(t, map[string]string{
		"mathedit.yaml": "version: v1\nrequires: \">= 2.0\"\n",
		"doc.md":        "a $x$\n",
	})

	version.BuildVersion = "1.4.0"
	_, err := execute(t, "--chdir", dir, "render", "doc.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `mathedit 1.4.0 does not satisfy ">= 2.0"`)

	version.BuildVersion = "2.1.0"
	_, err = execute(t, "--chdir", dir, "render", "doc.md")
	require.NoError(t, err)
}

func TestRenderCmd_Config(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"mathedit.yaml":       "version: v1\nmath:\n  inlineTagName: tex-inline\n",
		"notes/mathedit.yaml": "version: v1\nmath:\n  displayTagName: tex-display\n",
		"notes/doc.md":        "a $x$\n\n$$y$$\n",
		"other.yaml":          "version: v1\nmath:\n  displayTagName: tex-block\n",
	})

	out, err := execute(t, "--chdir", dir, "render", "notes/doc.md")
	require.NoError(t, err)
	assert.Contains(t, out, `<tex-inline class="math-node">`)
	assert.Contains(t, out, `<tex-display class="math-node">`)

	out, err = execute(t, "--chdir", dir, "--config", filepath.Join(dir, "other.yaml"), "render", "notes/doc.md")
	require.NoError(t, err)
	assert.Contains(t, out, `<math-inline class="math-node">`)
	assert.Contains(t, out, `<tex-block class="math-node">`)

	_, err = execute(t, "--chdir", dir, "render", "missing.md")
	require.Error(t, err)
}

func TestReplayCmd(t *testing.T) {
	// 0 <p> 1 a 2 _ 3 <math> 4 x 5 </math> 6 _ 7 b 8 </p>
	editScript := `steps:
  - cursor: 6
  - select: 3
  - type: "+1"
  - key: ArrowRight
  - type: "!"
`
	testCases := []struct {
		name     string
		doc      string
		script   string
		format   string
		expected string
	}{
		{
			name:     "edit inline math",
			doc:      "a $x$ b",
			script:   editScript,
			format:   "tree",
			expected: `doc(paragraph("a ", math_inline("x+1"), "! b"))` + "\n",
		},
		{
			name:     "markdown output",
			doc:      "a $x$ b",
			script:   editScript,
			format:   "markdown",
			expected: "a $x+1$! b\n",
		},
		{
			name:     "html output",
			doc:      "a $x$ b",
			script:   editScript,
			format:   "html",
			expected: `<p>a <math-inline class="math-node">x+1</math-inline>! b</p>` + "\n",
		},
		{
			name:     "input rule",
			doc:      "",
			script:   "steps:\n  - cursor: 1\n  - type: \"$y$\"\n",
			format:   "tree",
			expected: `doc(paragraph(math_inline("y")))` + "\n",
		},
		{
			name:     "backspace",
			doc:      "abc",
			script:   "steps:\n  - cursor: 4\n  - key: Backspace\n",
			format:   "tree",
			expected: `doc(paragraph("ab"))` + "\n",
		},
		{
			name:     "paste",
			doc:      "ab",
			script:   "steps:\n  - cursor: 2\n  - paste: \"$z$\"\n",
			format:   "tree",
			expected: `doc(paragraph("a", math_inline("z"), "b"))` + "\n",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{
				"doc.md":      tc.doc,
				"script.yaml": tc.script,
			})
			out, err := execute(t, "--chdir", dir, "replay", "doc.md", "--script", filepath.Join(dir, "script.yaml"), "--format", tc.format)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}
}

func TestReplayCmd_Errors(t *testing.T) {
	testCases := []struct {
		name           string
		script         string
		args           []string
		errorSubstring string
	}{
		{
			name:           "missing script flag",
			errorSubstring: `required flag(s) "script" not set`,
		},
		{
			name:           "two actions in a step",
			script:         "steps:\n  - cursor: 1\n    type: x\n",
			errorSubstring: "step 1: step must have exactly one action, got 2",
		},
		{
			name:           "unknown key",
			script:         "steps:\n  - key: Hyper-x\n",
			errorSubstring: `step 1: unrecognized modifier "Hyper"`,
		},
		{
			name:           "unknown field",
			script:         "steps:\n  - click: 1\n",
			errorSubstring: "failed to parse script",
		},
		{
			name:           "position out of range",
			script:         "steps:\n  - cursor: 1\n  - select: 40\n",
			errorSubstring: "step 2",
		},
		{
			name:           "unknown format",
			script:         "steps: []\n",
			args:           []string{"--format", "pdf"},
			errorSubstring: `unknown format "pdf"`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{
				"doc.md":      "a $x$ b",
				"script.yaml": tc.script,
			})
			args := []string{"--chdir", dir, "replay", "doc.md"}
			if tc.script != "" {
				args = append(args, "--script", filepath.Join(dir, "script.yaml"))
			}
			args = append(args, tc.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errorSubstring)
		})
	}
}

func TestReplayCmd_HTMLInput(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"mathedit.yaml": "version: v1\nmath:\n  inlineTagName: tex-inline\n",
		"doc.html":      `<html><body><p>a <tex-inline>x</tex-inline></p></body></html>`,
		"script.yaml":   "steps: []\n",
	})
	out, err := execute(t, "--chdir", dir, "replay", "doc.html", "--script", filepath.Join(dir, "script.yaml"), "--format", "tree")
	require.NoError(t, err)
	assert.Equal(t, `doc(paragraph("a ", math_inline("x")))`+"\n", out)
}
