package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leeyeel/Sisyphus/internal/workflow"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var req workflow.TranslateRequest

	cmd := &cobra.Command{
		Use:   "translate <input.srt>",
		Short: "Translate a subtitle file, keeping every cue's timing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			req.Input = args[0]
			result, err := sess.runner.TranslateSubtitles(sess.ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s (%d entries via %s)\n", result.Output, result.Track.Len(), result.Model)
			report := result.Report
			if report.Groups > 0 {
				fmt.Fprintf(out, "Groups: %d (cached %d, mismatched %d, failed %d)\n",
					report.Groups, report.Cached, len(report.Mismatched), len(report.Failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Output, "output", "o", "", "Output SRT path (default: <input>.<target>.srt)")
	cmd.Flags().StringVar(&req.Profile, "model-type", "", "LLM profile from [llm.profiles] (default: llm.profile)")
	cmd.Flags().IntVar(&req.Window, "window", 0, "Entries merged per request (default: translation.window_size)")
	cmd.Flags().StringVar(&req.TargetLanguage, "target-language", "", "Target language tag (default: translation.target_language)")
	cmd.Flags().BoolVar(&req.WholeFile, "whole-file", false, "Send the whole file in one request instead of grouping")
	return cmd
}
