package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/domain"
)

func (a *app) priorityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "priority",
		Short: "Manage per-object priority records (expert)",
	}
	cmd.AddCommand(a.priorityGetCmd(), a.prioritySetCmd(), a.priorityDeleteCmd())
	return cmd
}

func (a *app) priorityGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show the priority record of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.requireExpert(); err != nil {
				return err
			}
			draft, err := a.catalog.Open(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if draft.Priority == nil {
				fmt.Fprintf(out, "Object %d has no priority record.\n", id)
			} else {
				printPriority(out, *draft.Priority)
			}
			preview := draft.Preview()
			fmt.Fprintf(out, "Formula:  %.2f (%s)\n", preview.Score, preview.Label)
			return nil
		},
	}
}

func (a *app) prioritySetCmd() *cobra.Command {
	var (
		score   float64
		level   string
		formula string
	)
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Create or replace the priority record of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := a.requireExpert()
			if err != nil {
				return err
			}
			in := registry.PriorityInput{Score: score, Level: domain.PriorityLevel(level), FormulaVersion: formula}
			if _, ok := in.Level.Label(); in.Level != "" && !ok {
				return fmt.Errorf("unknown priority level %q (want low, medium or high)", level)
			}
			rec, err := a.catalog.SavePriority(cmd.Context(), sess, id, in)
			if err != nil {
				a.logger.Debug("priority save failed", "error", err)
				return fmt.Errorf("%s: %w", a.catalog.Message(), err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, a.catalog.Message())
			printPriority(out, rec)
			fmt.Fprintf(out, "Label:    %s\n", domain.Classify(rec.Score))
			return nil
		},
	}
	cmd.Flags().Float64Var(&score, "score", 0, "Priority score")
	cmd.Flags().StringVar(&level, "level", "", "Level: low, medium or high (default low)")
	cmd.Flags().StringVar(&formula, "formula", "", "Formula version (default v1)")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

func (a *app) priorityDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete the priority record of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := a.requireExpert()
			if err != nil {
				return err
			}
			if err := a.catalog.DeletePriority(cmd.Context(), sess, id); err != nil {
				a.logger.Debug("priority delete failed", "error", err)
				return fmt.Errorf("%s: %w", a.catalog.Message(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.catalog.Message())
			return nil
		},
	}
}
