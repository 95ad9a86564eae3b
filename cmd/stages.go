package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/pipeline"
)

// Stage commands run the pipeline up to and including one stage. Artifacts
// live in the in-process cache, so later stages re-run the earlier ones.

var discoverOpts, transcribeOpts, analyzeOpts, reportOpts runFlags

func stageTarget(args []string, f *runFlags) model.Target {
	return model.NewTarget(args[0], args[1], f.queries)
}

var discoverCmd = &cobra.Command{
	Use:   "discover <company> <product>",
	Short: "Search for review videos and collect comments",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		target := stageTarget(args, &discoverOpts)
		videos, comments, err := env.Orchestrator.RunDiscovery(ctx, target, discoverOpts.options())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VIDEO\tCHANNEL\tVIEWS\tCOMMENTS")
		for _, v := range videos {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", v.Title, v.ChannelTitle, v.Views, len(comments[v.ID]))
		}
		return w.Flush()
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <company> <product>",
	Short: "Discover videos and acquire their transcripts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		target := stageTarget(args, &transcribeOpts)
		opts := transcribeOpts.options()
		if _, _, err := env.Orchestrator.RunDiscovery(ctx, target, opts); err != nil {
			return err
		}
		transcripts, err := env.Orchestrator.RunTranscription(ctx, target, opts)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Acquired %d transcripts\n", len(transcripts))
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <company> <product>",
	Short: "Run discovery, transcription, and AI analysis",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		target := stageTarget(args, &analyzeOpts)
		opts := analyzeOpts.options()
		videoAnalyses, commentAnalyses, err := runThroughAnalysis(ctx, env, target, opts)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VIDEO\tSENTIMENT\tSCORE\tVERDICT")
		for _, a := range videoAnalyses {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", a.VideoURL, a.Sentiment, a.SentimentScore, a.FinalVerdict)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%d comment analyses\n", len(commentAnalyses))
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <company> <product>",
	Short: "Run all stages and generate report files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		target := stageTarget(args, &reportOpts)
		artifacts, err := env.Orchestrator.RunFull(ctx, target, reportOpts.options())
		if err != nil {
			return err
		}

		names := make([]string, 0, len(artifacts))
		for name := range artifacts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(os.Stdout, "%s: %s\n", name, artifacts[name])
		}
		return nil
	},
}

func runThroughAnalysis(ctx context.Context, env *appEnv, target model.Target, opts pipeline.Options) ([]model.VideoAnalysis, []model.CommentAnalysis, error) {
	if _, _, err := env.Orchestrator.RunDiscovery(ctx, target, opts); err != nil {
		return nil, nil, err
	}
	if !opts.SkipTranscription {
		if _, err := env.Orchestrator.RunTranscription(ctx, target, opts); err != nil {
			return nil, nil, err
		}
	}
	return env.Orchestrator.RunAnalysis(ctx, target)
}

func init() {
	discoverOpts.addTo(discoverCmd)
	transcribeOpts.addTo(transcribeCmd)
	analyzeOpts.addTo(analyzeCmd)
	reportOpts.addTo(reportCmd)
	rootCmd.AddCommand(discoverCmd, transcribeCmd, analyzeCmd, reportCmd)
}
