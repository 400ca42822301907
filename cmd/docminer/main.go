package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Lllllllleong/docminer/internal/services"
	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:          "docminer",
		Short:        "Operate the document prompt-matching pipeline by hand",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(newProcessCmd(), newPromptsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newProcessCmd() *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "process <gs://bucket/object | local-file>",
		Short: "Run the pipeline once for a stored object or a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := services.NewDocMiner(ctx)
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := runProcess(ctx, f, args[0], contentType)
			if report != nil {
				printReport(cmd, report)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "override the content type of a gs:// object")
	return cmd
}

func runProcess(ctx context.Context, f *services.DocMinerFunction, target, contentType string) (*services.RunReport, error) {
	if bucket, object, ok := parseGCSURI(target); ok {
		return f.ProcessObject(ctx, bucket, object, contentType)
	}
	return f.ProcessFile(ctx, target)
}

func printReport(cmd *cobra.Command, report *services.RunReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "file:      %s\n", report.File)
	fmt.Fprintf(out, "state:     %s\n", report.State)
	if report.State == services.StateFailed {
		fmt.Fprintf(out, "failed at: %s\n", report.FailedAt)
	}
	fmt.Fprintf(out, "prompts:   %d\n", report.PromptCount)
	if report.ResultID != "" {
		fmt.Fprintf(out, "result:    %s\n", report.ResultID)
	}
	if len(report.FailedPromptWrites) > 0 {
		fmt.Fprintf(out, "stale:     %s\n", strings.Join(report.FailedPromptWrites, ", "))
	}
}

func newPromptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List stored prompts with their latest answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := services.NewDocMiner(ctx)
			if err != nil {
				return err
			}
			defer f.Close()

			prompts, err := f.ListPrompts(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range prompts {
				answer := p.Answer
				if answer == "" {
					answer = "-"
				}
				fmt.Fprintf(out, "%s\t%q\t%s\n", p.ID, p.Question, answer)
			}
			return nil
		},
	}
}

// parseGCSURI splits gs://bucket/object.
func parseGCSURI(uri string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(uri, "gs://")
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}
