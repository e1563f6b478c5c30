package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tsawler/pdfthumb"
	"github.com/tsawler/pdfthumb/config"
	"github.com/tsawler/pdfthumb/format"
	"github.com/tsawler/pdfthumb/internal/logging"
)

type generateFlags struct {
	out    string
	strict bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "generate file.pdf...",
		Short: "Create thumbnails that do not exist yet and print their paths",
		Long: "generate makes sure a thumbnail exists for each file and prints one public\n" +
			"path per input, in order. The logical name of a file is its base name.\n" +
			"A failed input still gets its line, empty when the name is invalid, and\n" +
			"the error is reported on stderr.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, a, flags, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.out, "out", "", "override output_dir")
	f.BoolVar(&flags.strict, "strict", false, "fail when a thumbnail cannot be generated")
	return cmd
}

func runGenerate(cmd *cobra.Command, a *app, flags generateFlags, args []string) error {
	cfg := a.cfg
	if flags.out != "" {
		cfg.OutputDir = flags.out
	}
	if flags.strict {
		cfg.FailurePolicy = config.FailStrict
	}
	t, err := pdfthumb.New(cfg)
	if err != nil {
		return err
	}

	log := logging.New("generate")
	docs := make([]pdfthumb.SourceDocument, len(args))
	for i, arg := range args {
		if format.Detect(arg) != format.PDF {
			log.Warn("input does not have a .pdf extension", "path", arg)
		}
		docs[i] = pdfthumb.SourceDocument{Path: arg, Name: filepath.Base(arg)}
	}
	results, err := t.ThumbnailAll(cmd.Context(), docs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Doc.Path, res.Err)
		}
		fmt.Fprintln(out, res.Reference)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d thumbnails failed", failed, len(results))
	}
	return nil
}
