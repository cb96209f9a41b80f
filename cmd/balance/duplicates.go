package main

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/reconcile"
	"github.com/spf13/cobra"
)

func duplicatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "duplicates",
		Aliases: []string{"dup"},
		Short:   "Find and remove duplicate transactions",
	}

	cmd.AddCommand(duplicatesListCmd())
	cmd.AddCommand(duplicatesDeleteCmd())
	cmd.AddCommand(duplicatesKeepCmd())

	return cmd
}

func duplicatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups of likely duplicate transactions",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			groups, err := loadDuplicates(cmd, a)
			if err != nil {
				return err
			}
			printOut(cmd, cli.RenderDuplicates(groups))
			return nil
		}),
	}
}

func loadDuplicates(cmd *cobra.Command, a *app) ([]model.DuplicateGroup, error) {
	fetcher, _, err := a.reconciler(cmd.Context())
	if err != nil {
		return nil, err
	}
	res := fetcher.Duplicates(cmd.Context())
	if !res.OK() {
		return nil, res.Err
	}
	return res.Data, nil
}

func findDuplicate(groups []model.DuplicateGroup, id string) (model.DuplicateGroup, model.Transaction, bool) {
	for _, g := range groups {
		for _, t := range g.Transactions {
			if string(t.ID) == id {
				return g, t, true
			}
		}
	}
	return model.DuplicateGroup{}, model.Transaction{}, false
}

func duplicatesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <transaction-id>",
		Short: "Delete one transaction from a duplicate group",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			groups, err := loadDuplicates(cmd, a)
			if err != nil {
				return err
			}
			_, txn, ok := findDuplicate(groups, args[0])
			if !ok {
				return fmt.Errorf("transaction %s is not in any duplicate group", args[0])
			}

			_, dispatcher, err := a.reconciler(cmd.Context())
			if err != nil {
				return err
			}
			outcome, err := dispatcher.DeleteTransaction(cmd.Context(), txn)
			if err == nil && outcome.Status == reconcile.StatusCancelled {
				printOut(cmd, cli.FormatInfo("Nothing was deleted."))
			}
			return a.reported(outcome, err)
		}),
	}
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

func duplicatesKeepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keep <transaction-id>",
		Short: "Keep one transaction of a duplicate group and delete the rest",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			groups, err := loadDuplicates(cmd, a)
			if err != nil {
				return err
			}
			group, _, ok := findDuplicate(groups, args[0])
			if !ok {
				return fmt.Errorf("transaction %s is not in any duplicate group", args[0])
			}
			if err := group.Validate(); err != nil {
				return err
			}

			_, dispatcher, err := a.reconciler(ctx)
			if err != nil {
				return err
			}
			deleted := 0
			for _, extra := range group.Extras(args[0]) {
				outcome, err := dispatcher.DeleteTransaction(ctx, extra)
				if err != nil {
					return a.reported(outcome, err)
				}
				if outcome.Status == reconcile.StatusApplied {
					deleted++
				}
			}
			printOut(cmd, cli.FormatInfo(fmt.Sprintf("Kept %s, deleted %d of %d duplicate(s).", args[0], deleted, len(group.Transactions)-1)))
			return nil
		}),
	}
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}
