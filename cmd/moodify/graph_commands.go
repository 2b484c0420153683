package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"moodify/internal/graph"
)

func newGraphCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect the taste graph",
	}
	cmd.AddCommand(newGraphStatsCommand(ctx))
	cmd.AddCommand(newGraphTopGenresCommand(ctx))
	cmd.AddCommand(newGraphNeighborsCommand(ctx))
	cmd.AddCommand(newGraphResetCommand(ctx))
	return cmd
}

func newGraphStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show node and edge totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openGraphService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			nodes, edges, err := svc.Counts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "nodes: %d\nedges: %d\n", nodes, edges)
			return nil
		},
	}
}

func newGraphTopGenresCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top-genres",
		Short: "Show the heaviest genres by aggregate edge weight",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openGraphService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			genres, err := svc.TopGenres(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(genres))
			for _, gw := range genres {
				rows = append(rows, []string{
					graph.DisplayGenre(gw.Genre),
					strconv.FormatFloat(gw.Weight, 'f', 1, 64),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Genre", "Weight"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum genres to show")
	return cmd
}

func newGraphNeighborsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "neighbors <node-id>",
		Short: "Show a node's strongest outgoing neighbors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid node id %q", args[0])
			}

			svc, closeFn, err := openGraphService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			neighbors, err := svc.Neighbors(cmd.Context(), nodeID, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(neighbors))
			for _, node := range neighbors {
				rows = append(rows, []string{
					strconv.FormatInt(node.ID, 10),
					string(node.Type),
					node.Name,
					strconv.FormatInt(node.PlayCount, 10),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Type", "Name", "Plays"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum neighbors to show")
	return cmd
}

func newGraphResetCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every node and edge",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to wipe the graph without --yes")
			}
			svc, closeFn, err := openGraphService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			return svc.Reset(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the full graph wipe")
	return cmd
}

func openGraphService(ctx *commandContext) (*graph.Service, func(), error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	store, err := graph.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := graph.NewService(store, logger, cfg.Graph)
	return svc, func() { _ = store.Close() }, nil
}
