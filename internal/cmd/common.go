package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/stateful/mathedit/internal/config"
	"github.com/stateful/mathedit/internal/dom"
	"github.com/stateful/mathedit/internal/log"
	"github.com/stateful/mathedit/internal/version"
	"github.com/stateful/mathedit/pkg/commands"
	"github.com/stateful/mathedit/pkg/history"
	"github.com/stateful/mathedit/pkg/keymap"
	"github.com/stateful/mathedit/pkg/markdown"
	"github.com/stateful/mathedit/pkg/mathplugin"
	"github.com/stateful/mathedit/pkg/mathrender"
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/view"
)

// resolvePath returns fileName as an absolute path and relative to the
// working directory. rel is empty when the file is outside of it.
func resolvePath(fileName string) (abs, rel string, _ error) {
	root, err := filepath.Abs(chdir)
	if err != nil {
		return "", "", errors.WithStack(err)
	}
	abs = fileName
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, fileName)
	}
	rel, err = filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs, "", nil
	}
	return abs, filepath.ToSlash(rel), nil
}

func loadConfig(rel string) (*config.Config, error) {
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config %q", configFile)
		}
		return config.ParseYAML(data)
	}
	loader := config.NewLoader(os.DirFS(chdir))
	return loader.Load(rel)
}

// setup loads the configuration for fileName, builds the logger it
// configures and reads the document. The caller syncs the logger.
func setup(fileName string) (*config.Config, *zap.Logger, *model.Node, error) {
	abs, rel, err := resolvePath(fileName)
	if err != nil {
		return nil, nil, nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "failed to read file %q", fileName)
	}
	cfg, err := loadConfig(rel)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Requires != "" {
		if err := version.Check(cfg.Requires); err != nil {
			return nil, nil, nil, errors.Wrapf(err, "configuration of %q", fileName)
		}
	}
	logger, err := log.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}

	doc, err := parseDocument(abs, data, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, errors.Wrapf(err, "failed to parse %q", fileName)
	}
	logger.Debug("loaded document", zap.String("file", abs), zap.Int("size", doc.Content().Size()))
	return cfg, logger, doc, nil
}

// parseDocument reads HTML or Markdown depending on the file extension.
// Files with other extensions are sniffed.
func parseDocument(fileName string, data []byte, cfg *config.Config, logger *zap.Logger) (*model.Node, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".html", ".htm":
		return parseHTML(data, cfg)
	case ".md", ".markdown":
		return markdown.NewParser(markdown.WithLogger(logger)).Parse(data)
	}
	if mtype := mimetype.Detect(data); mtype.Is("text/html") {
		logger.Debug("detected html document", zap.String("file", fileName), zap.String("mime", mtype.String()))
		return parseHTML(data, cfg)
	}
	return markdown.NewParser(markdown.WithLogger(logger)).Parse(data)
}

func parseHTML(data []byte, cfg *config.Config) (*model.Node, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	body := findElement(root, atom.Body)
	if body == nil {
		body = root
	}
	var opts []model.ParseOption
	for kind, tag := range tagNames(cfg) {
		opts = append(opts, model.WithTagName(kind, tag))
	}
	return model.ParseDOM(body, opts...)
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func tagNames(cfg *config.Config) map[model.Kind]string {
	tags := make(map[model.Kind]string)
	if cfg.Math.InlineTagName != "" {
		tags[model.KindMathInline] = cfg.Math.InlineTagName
	}
	if cfg.Math.DisplayTagName != "" {
		tags[model.KindMathDisplay] = cfg.Math.DisplayTagName
	}
	return tags
}

// newEditor mounts doc in an outer editor carrying the math plugins.
func newEditor(doc *model.Node, cfg *config.Config, logger *zap.Logger) (*view.EditorView, error) {
	renderer, err := mathrender.New(
		mathrender.WithCacheSize(cfg.Render.CacheSize),
		mathrender.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	st, err := state.Create(state.Config{
		Doc: doc,
		Plugins: []*state.Plugin{
			mathplugin.New(
				mathplugin.WithRenderer(renderer),
				mathplugin.WithMacros(cfg.Math.Macros),
				mathplugin.WithRenderOptions(mathrender.Options{ThrowOnError: cfg.Math.ThrowOnError}),
				mathplugin.WithTagNames(tagNames(cfg)),
				mathplugin.WithLogger(logger),
			),
			mathplugin.SelectPlugin(),
			mathplugin.InputRules(),
			mathplugin.MathKeymap(),
			keymap.New(map[string]state.Command{
				"Mod-z":       history.Undo,
				"Shift-Mod-z": history.Redo,
				"Mod-y":       history.Redo,
			}),
			keymap.New(commands.BaseKeymap()),
			history.New(),
			markdown.NewParser(markdown.WithLogger(logger)).Plugin(),
		},
	})
	if err != nil {
		return nil, err
	}
	v, err := view.New(dom.NewElement("body"), st, view.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	v.Focus()
	return v, nil
}
