package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"moodify/internal/services/oracle"
)

func newVibesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "vibes <instruction>",
		Short: "Ask the oracle for session mood ideas",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := oracle.NewClient(cfg.Oracle)
			options, err := client.VibeOptions(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(options) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No moods suggested.")
				return nil
			}

			rows := make([][]string, 0, len(options))
			for _, option := range options {
				rows = append(rows, []string{option.Name, option.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Mood", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
