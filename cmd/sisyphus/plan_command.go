package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leeyeel/Sisyphus/internal/workflow"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <input.srt>",
		Short: "Show the speed chosen for each entry without synthesizing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runner, err := workflow.NewRunner(cfg)
			if err != nil {
				return err
			}
			rows, err := runner.PreviewPacing(args[0])
			if err != nil {
				return err
			}

			headers := []string{"#", "Start", "Window", "Estimate", "Raw", "Speed", "Note"}
			aligns := []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}
			table := make([][]string, 0, len(rows))
			clamped := 0
			for _, row := range rows {
				d := row.Decision
				note := ""
				switch {
				case d.ZeroBudget:
					note = "zero budget"
				case d.Clamped():
					note = "clamped"
				}
				if d.Clamped() || d.ZeroBudget {
					clamped++
				}
				table = append(table, []string{
					strconv.Itoa(row.Entry.Index),
					formatMillis(row.Entry.Start),
					formatMillis(d.TargetMs),
					fmt.Sprintf("%.2fs", d.EstimatedSec),
					fmt.Sprintf("%.2f", d.Raw),
					fmt.Sprintf("%.2f", d.Speed),
					note,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(headers, table, aligns))
			fmt.Fprintf(out, "%d entries, %d outside %.2f-%.2f\n", len(rows), clamped, cfg.Pacing.SpeedMin, cfg.Pacing.SpeedMax)
			return nil
		},
	}
}
