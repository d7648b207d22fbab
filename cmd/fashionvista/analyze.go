package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fashionvista/fashionvista/internal/analyzer"
	"github.com/fashionvista/fashionvista/internal/formatter"
	"github.com/spf13/cobra"
)

const defaultAnalyzerURL = "http://localhost:5001/analyze"

type analyzeOptions struct {
	endpoint string
	timeout  time.Duration
	output   string
}

func newAnalyzeCmd() *cobra.Command {
	opts := analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze IMAGE_URL",
		Short: "Analyze the clothing in an image",
		Long: `Submit an image URL to the analysis service and print the detected
colour palette, pattern and style.

Examples:
  fashionvista analyze https://cdn.example.com/shirt.jpg
  fashionvista analyze https://cdn.example.com/shirt.jpg -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.endpoint, "endpoint", envOr("ANALYZER_URL", defaultAnalyzerURL), "Analysis service URL")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Maximum time to wait for the analysis")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "human", "Output format (human, json, yaml)")

	return cmd
}

func runAnalyze(ctx context.Context, stdout, stderr io.Writer, opts analyzeOptions, imageURL string) error {
	if !formatter.ValidFormat(opts.output) {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	ctrl := analyzer.NewController(
		analyzer.NewHTTPClient(opts.endpoint, opts.timeout),
		analyzer.WithTimeout(opts.timeout),
		analyzer.WithSession("cli"),
	)
	seq := ctrl.Submit(ctx, imageURL)

	var s *spinner.Spinner
	if opts.output == "human" {
		s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(stderr))
		s.Suffix = " Analyzing image..."
		s.Start()
	}
	st, err := ctrl.Wait(ctx, seq)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return fmt.Errorf("wait for analysis: %w", err)
	}

	if err := formatter.Display(stdout, analyzer.Render(st), opts.output); err != nil {
		return err
	}

	if st.Phase == analyzer.PhaseFailed {
		return fmt.Errorf("analysis failed (%s): %w", st.Reason, st.Err)
	}
	return nil
}
