package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leeyeel/Sisyphus/internal/preflight"
	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/workflow"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, the checkpoint cache and both backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			backend, err := workflow.NewSynthesizer(cfg, nil)
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Targets{
				LLMProfile: profile,
				Speech:     backend,
			})

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if failed := preflight.Failed(results); failed > 0 {
				return services.Wrap(services.ErrExternalTool, "preflight", "check",
					fmt.Sprintf("%d of %d checks failed", failed, len(results)), nil)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "model-type", "", "LLM profile to check (default: llm.profile)")
	return cmd
}
