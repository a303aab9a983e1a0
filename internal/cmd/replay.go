package cmd

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/stateful/mathedit/internal/log"
	"github.com/stateful/mathedit/pkg/keymap"
	"github.com/stateful/mathedit/pkg/markdown"
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/view"
)

// Script is a scripted editing session.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step is a single user action. Exactly one field is set.
type Step struct {
	// Select node-selects the node at a position of the outer document,
	// which opens math nodes for editing.
	Select *int `yaml:"select,omitempty"`
	// Cursor places the cursor at a position of the outer document.
	Cursor *int   `yaml:"cursor,omitempty"`
	Type   string `yaml:"type,omitempty"`
	Key    string `yaml:"key,omitempty"`
	Paste  string `yaml:"paste,omitempty"`
}

func (s Step) validate() error {
	set := 0
	for _, ok := range []bool{s.Select != nil, s.Cursor != nil, s.Type != "", s.Key != "", s.Paste != ""} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return errors.Errorf("step must have exactly one action, got %d", set)
	}
	return nil
}

func parseScript(data []byte) (*Script, error) {
	var script Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to parse script")
	}
	for i, step := range script.Steps {
		if err := step.validate(); err != nil {
			return nil, errors.Wrapf(err, "step %d", i+1)
		}
		if step.Key != "" {
			if _, err := keymap.Event(step.Key); err != nil {
				return nil, errors.Wrapf(err, "step %d", i+1)
			}
		}
	}
	return &script, nil
}

type session struct {
	view   *view.EditorView
	logger *zap.Logger
}

func (s *session) run(script *Script) error {
	for i, step := range script.Steps {
		if err := s.step(step); err != nil {
			return errors.Wrapf(err, "step %d", i+1)
		}
	}
	return nil
}

func (s *session) step(step Step) error {
	focus := s.view.FocusGroup()
	switch {
	case step.Select != nil:
		sel, err := state.CreateNodeSelection(s.view.State().Doc(), *step.Select)
		if err != nil {
			return err
		}
		return s.view.Dispatch(s.view.State().Tr().SetSelection(sel))
	case step.Cursor != nil:
		sel, err := state.Cursor(s.view.State().Doc(), *step.Cursor)
		if err != nil {
			return err
		}
		if err := s.view.Dispatch(s.view.State().Tr().SetSelection(sel)); err != nil {
			return err
		}
		s.view.Focus()
		return nil
	case step.Type != "":
		for text := step.Type; text != ""; {
			r, size := utf8.DecodeRuneInString(text)
			text = text[size:]
			handled, err := focus.InsertText(string(r))
			if err != nil {
				return err
			}
			if !handled {
				s.logger.Debug("text input not handled", zap.String("text", string(r)))
			}
		}
		return nil
	case step.Key != "":
		ev, err := keymap.Event(step.Key)
		if err != nil {
			return err
		}
		handled, err := focus.HandleKey(ev)
		if err != nil {
			return err
		}
		if !handled && ev == (view.KeyEvent{Key: "Backspace"}) {
			handled, err = focus.DeleteBackward()
			if err != nil {
				return err
			}
		}
		if !handled {
			s.logger.Debug("key not handled", zap.String("key", step.Key))
		}
		return nil
	case step.Paste != "":
		_, err := focus.PasteText(step.Paste)
		return err
	}
	return nil
}

const (
	formatHTML     = "html"
	formatMarkdown = "markdown"
	formatTree     = "tree"
)

func writeDocument(w io.Writer, doc *model.Node, format string) error {
	switch format {
	case formatHTML:
		for _, n := range model.SerializeFragment(doc.Content()) {
			if err := html.Render(w, n); err != nil {
				return errors.WithStack(err)
			}
		}
		_, err := io.WriteString(w, "\n")
		return errors.WithStack(err)
	case formatMarkdown:
		_, err := io.WriteString(w, markdown.SerializeFragment(doc.Content())+"\n")
		return errors.WithStack(err)
	case formatTree:
		_, err := io.WriteString(w, doc.String()+"\n")
		return errors.WithStack(err)
	default:
		return errors.Errorf("unknown format %q", format)
	}
}

func replayCmd() *cobra.Command {
	var (
		scriptFile string
		format     string
		copyResult bool
	)

	cmd := cobra.Command{
		Use:   "replay FILE",
		Short: "Replay a scripted editing session against a document.",
		Long: `Replay loads a document, performs the steps of a YAML script against it
and prints the resulting document. A script looks like:

  steps:
    - select: 3
    - type: "+1"
    - key: ArrowRight
    - paste: "$y$"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer log.Flush()

			data, err := os.ReadFile(scriptFile)
			if err != nil {
				return errors.Wrapf(err, "failed to read script %q", scriptFile)
			}
			script, err := parseScript(data)
			if err != nil {
				return err
			}

			cfg, logger, doc, err := setup(args[0])
			if err != nil {
				return err
			}
			log.Set(logger)
			v, err := newEditor(doc, cfg, logger)
			if err != nil {
				return errors.Wrap(err, "failed to create editor")
			}
			defer v.Destroy()

			s := &session{view: v, logger: logger}
			if err := s.run(script); err != nil {
				return err
			}
			logger.Info("replayed script", zap.Int("steps", len(script.Steps)))

			if copyResult {
				if clipboard.Unsupported {
					return errors.New("clipboard is not supported on this system")
				}
				text := markdown.SerializeFragment(v.State().Doc().Content())
				if err := clipboard.WriteAll(text); err != nil {
					return errors.Wrap(err, "failed to copy result")
				}
			}
			return writeDocument(cmd.OutOrStdout(), v.State().Doc(), format)
		},
	}

	cmd.Flags().StringVarP(&scriptFile, "script", "s", "", "Path to the YAML script.")
	cmd.Flags().StringVar(&format, "format", formatHTML, "Output format: html, markdown or tree.")
	cmd.Flags().BoolVar(&copyResult, "copy", false, "Also copy the resulting document as Markdown to the system clipboard.")
	_ = cmd.MarkFlagRequired("script")

	return &cmd
}
