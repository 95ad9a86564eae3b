package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/pipeline"
)

type runFlags struct {
	queries           []string
	skipTranscription bool
	maxVideos         int
	dateFrom          string
	dateTo            string
	region            string
	useCaptions       bool
	noCaptions        bool
}

var runOpts runFlags

func (f *runFlags) addTo(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.queries, "query", nil, "search query (repeatable, defaults derived from target)")
	cmd.Flags().BoolVar(&f.skipTranscription, "skip-transcription", false, "skip transcript acquisition and video analysis")
	cmd.Flags().IntVar(&f.maxVideos, "max-videos", 0, "cap on videos per run (default from config)")
	cmd.Flags().StringVar(&f.dateFrom, "date-from", "", "only videos published after this RFC 3339 time")
	cmd.Flags().StringVar(&f.dateTo, "date-to", "", "only videos published before this RFC 3339 time")
	cmd.Flags().StringVar(&f.region, "region", "", "region code for search (default from config)")
	cmd.Flags().BoolVar(&f.useCaptions, "captions", false, "force caption preference on")
	cmd.Flags().BoolVar(&f.noCaptions, "no-captions", false, "force caption preference off")
}

func (f *runFlags) options() pipeline.Options {
	opts := pipeline.Options{
		SkipTranscription: f.skipTranscription,
		MaxVideos:         f.maxVideos,
		PublishedAfter:    f.dateFrom,
		PublishedBefore:   f.dateTo,
		Region:            f.region,
	}
	if f.useCaptions {
		v := true
		opts.UseCaptions = &v
	} else if f.noCaptions {
		v := false
		opts.UseCaptions = &v
	}
	return opts
}

var runCmd = &cobra.Command{
	Use:   "run <company> <product>",
	Short: "Run the full analysis pipeline for a product",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		target := model.NewTarget(args[0], args[1], runOpts.queries)
		job := &model.Job{
			ID:          uuid.NewString(),
			Company:     target.Company,
			Product:     target.Product,
			SearchQuery: target.SearchQueries[0],
			Status:      model.JobStatusPending,
		}
		if err := env.Store.CreateJob(ctx, job); err != nil {
			return err
		}

		start := time.Now()
		env.Orchestrator.ExecuteJob(ctx, job.ID, target, runOpts.options())

		final, err := env.Store.GetJob(ctx, job.ID)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Job %s %s in %s\n", final.ID, final.Status, time.Since(start).Round(time.Second))
		fmt.Fprintf(os.Stdout, "  videos found:       %d\n", final.VideosFound)
		fmt.Fprintf(os.Stdout, "  comments collected: %d\n", final.CommentsCollected)
		fmt.Fprintf(os.Stdout, "  videos analyzed:    %d\n", final.VideosAnalyzed)
		if final.ReportFile != "" {
			fmt.Fprintf(os.Stdout, "  report:             %s\n", final.ReportFile)
		}
		if final.Error != "" {
			fmt.Fprintf(os.Stdout, "  error:              %s\n", final.Error)
		}
		if final.Status == model.JobStatusFailed {
			return fmt.Errorf("job failed: %s", final.Error)
		}
		return nil
	},
}

func init() {
	runOpts.addTo(runCmd)
	rootCmd.AddCommand(runCmd)
}
