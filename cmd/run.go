package main

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/triptomat/trip-analyzer/internal/model"
	"github.com/triptomat/trip-analyzer/internal/pipeline"
)

var (
	runText        string
	runConcurrency int
)

var runCmd = &cobra.Command{
	Use:   "run [url ...]",
	Short: "Process sources synchronously",
	Long:  "Classifies each URL (or pasted text via --text), runs the analysis pipeline, and records results in the job store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && runText == "" {
			return eris.New("provide at least one url or --text")
		}

		ctx := cmd.Context()
		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if runText != "" {
			job := textJob(runText)
			if err := e.Store.MarkProcessing(ctx, job.URL, job.ID); err != nil {
				return err
			}
			e.Runner.Execute(ctx, job)
			return nil
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(runConcurrency)

		for _, url := range args {
			g.Go(func() error {
				job := urlJob(url)
				if err := e.Store.MarkProcessing(gCtx, job.URL, job.ID); err != nil {
					zap.L().Error("run: failed to record job", zap.String("url", url), zap.Error(err))
					return nil
				}
				e.Runner.Execute(gCtx, job)
				return nil
			})
		}

		return g.Wait()
	},
}

// urlJob builds a job for a submitted URL.
func urlJob(url string) *model.Job {
	return &model.Job{
		ID:         uuid.New().String(),
		URL:        url,
		SourceType: pipeline.Classify(url),
	}
}

// textJob builds a job for pasted text with a synthetic source URL. The
// title is the first line, bounded.
func textJob(text string) *model.Job {
	id := uuid.New().String()
	return &model.Job{
		ID:         id,
		URL:        "text://paste-" + id,
		SourceType: model.SourceWeb,
		Text:       text,
		Metadata:   model.SourceMetadata{Title: firstLine(text, 80)},
	}
}

func firstLine(text string, max int) string {
	for i, r := range text {
		if r == '\n' || i >= max {
			return text[:i]
		}
	}
	return text
}

func init() {
	runCmd.Flags().StringVar(&runText, "text", "", "analyze pasted text instead of a url")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 2, "max sources processed in parallel")
	rootCmd.AddCommand(runCmd)
}
