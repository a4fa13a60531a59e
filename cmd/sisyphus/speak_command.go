package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leeyeel/Sisyphus/internal/config"
	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/workflow"
)

func newSpeakCommand(ctx *commandContext) *cobra.Command {
	var output string
	var workDir string
	var keepSegments bool

	cmd := &cobra.Command{
		Use:   "speak <input.srt>",
		Short: "Voice a subtitle file into one timeline-aligned WAV track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd, func(cfg *config.Config) error {
				dir := strings.TrimSpace(workDir)
				if dir == "" {
					return nil
				}
				expanded, err := config.ExpandPath(dir)
				if err != nil {
					return services.Wrap(services.ErrConfiguration, "cli", "work dir", "invalid --work-dir", err)
				}
				cfg.Paths.WorkDir = expanded
				return nil
			})
			if err != nil {
				return err
			}
			defer sess.Close()

			result, err := sess.runner.RenderSpeech(sess.ctx, workflow.SpeechRequest{
				Input:        args[0],
				Output:       output,
				KeepSegments: keepSegments,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s (%s, %d segments", result.Output, formatMillis(result.Track.DurationMs()), len(result.Segments))
			if failed := result.Failed(); failed > 0 {
				fmt.Fprintf(out, ", %d silent", failed)
			}
			fmt.Fprintln(out, ")")
			if result.WorkDir != "" {
				fmt.Fprintf(out, "Segments kept in %s\n", result.WorkDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output WAV path (default: input with .wav extension)")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "Directory for per-segment files (default: paths.work_dir)")
	cmd.Flags().BoolVar(&keepSegments, "keep-segments", false, "Keep segment WAV files after assembly")
	return cmd
}
