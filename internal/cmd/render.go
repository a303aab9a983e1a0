package cmd

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stateful/mathedit/internal/config"
	"github.com/stateful/mathedit/internal/dom"
	"github.com/stateful/mathedit/pkg/model"
)

func renderCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "render FILE...",
		Short: "Render Markdown or HTML documents with typeset math.",
		Long: `Render loads Markdown (.md) or HTML (.html) files into editors and
prints the editor DOM of each, with every math node rendered.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type document struct {
				cfg    *config.Config
				logger *zap.Logger
				doc    *model.Node
			}

			// Every file has its own configuration and logger. The process
			// logger is left alone.
			docs := make([]document, 0, len(args))
			defer func() {
				for _, d := range docs {
					_ = d.logger.Sync()
				}
			}()
			for _, fileName := range args {
				cfg, logger, doc, err := setup(fileName)
				if err != nil {
					return err
				}
				docs = append(docs, document{cfg: cfg, logger: logger, doc: doc})
			}

			// Every document gets its own editor and renderer.
			out := make([]string, len(docs))
			var g errgroup.Group
			for i, d := range docs {
				g.Go(func() error {
					v, err := newEditor(d.doc, d.cfg, d.logger)
					if err != nil {
						return errors.Wrapf(err, "failed to create editor for %q", args[i])
					}
					defer v.Destroy()
					out[i] = dom.Render(v.DOM())
					d.logger.Info("rendered document", zap.String("file", args[i]), zap.Int("bytes", len(out[i])))
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			_, err := io.WriteString(cmd.OutOrStdout(), strings.Join(out, "\n")+"\n")
			return errors.Wrap(err, "failed to write result")
		},
	}
	return &cmd
}
