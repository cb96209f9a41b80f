package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/reconcile"
	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reconcile",
		Aliases: []string{"rec"},
		Short:   "Match bank transactions to payments",
		Long: `Review and act on reconciliation for the current business.

Run without a subcommand to see every section at once.`,
		Args: cobra.NoArgs,
		RunE: withApp(runReconcileOverview),
	}

	cmd.AddCommand(reconcileSummaryCmd())
	cmd.AddCommand(reconcileSuggestionsCmd())
	cmd.AddCommand(reconcileUnreconciledCmd())
	cmd.AddCommand(reconcileReconciledCmd())
	cmd.AddCommand(reconcileAutoCmd())
	cmd.AddCommand(reconcileConfirmCmd())
	cmd.AddCommand(reconcileRejectCmd())
	cmd.AddCommand(reconcileMarkCmd())
	cmd.AddCommand(reconcileUnmarkCmd())

	return cmd
}

func runReconcileOverview(cmd *cobra.Command, _ []string, a *app) error {
	fetcher, _, err := a.reconciler(cmd.Context())
	if err != nil {
		return err
	}
	snap := fetcher.Load(cmd.Context())

	section := func(title string, ok bool, body func() string, name string) {
		printOut(cmd, "")
		printOut(cmd, cli.FormatTitle(title))
		if !ok {
			printOut(cmd, cli.FormatError("Failed to load: "+errText(snap.Failed()[name])))
			return
		}
		printOut(cmd, body())
	}

	if snap.Summary.OK() {
		printOut(cmd, cli.RenderSummary(snap.Summary.Data))
	} else {
		printOut(cmd, cli.FormatError("Failed to load summary: "+errText(snap.Summary.Err)))
	}
	section("Suggested matches", snap.Suggestions.OK(), func() string {
		return cli.RenderSuggestions(snap.Suggestions.Data)
	}, reconcile.SuggestionsQuery)
	section("Unreconciled", snap.Unreconciled.OK(), func() string {
		return cli.RenderTransactions(snap.UnreconciledOnly())
	}, reconcile.UnreconciledQuery)
	section("Possible duplicates", snap.Duplicates.OK(), func() string {
		return cli.RenderDuplicates(snap.Duplicates.Data)
	}, reconcile.DuplicatesQuery)

	if failed := snap.Failed(); len(failed) > 0 {
		return fmt.Errorf("%w: %d section(s) failed to load", errReported, len(failed))
	}
	return nil
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func reconcileSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show reconciliation counts",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			fetcher, _, err := a.reconciler(cmd.Context())
			if err != nil {
				return err
			}
			res := fetcher.Summary(cmd.Context())
			if !res.OK() {
				return res.Err
			}
			printOut(cmd, cli.RenderSummary(res.Data))
			return nil
		}),
	}
}

func reconcileSuggestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions",
		Short: "List suggested payment matches",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			fetcher, _, err := a.reconciler(cmd.Context())
			if err != nil {
				return err
			}
			res := fetcher.Suggestions(cmd.Context())
			if !res.OK() {
				return res.Err
			}
			printOut(cmd, cli.RenderSuggestions(res.Data))
			return nil
		}),
	}
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("limit", 0, "rows per page (default: reconcile.page_size)")
}

func pageFromFlags(cmd *cobra.Command, fetcher *reconcile.Fetcher) model.Page {
	pageNum, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	page := fetcher.FirstPage()
	if limit > 0 {
		page.Limit = limit
	}
	if pageNum > 1 {
		page.Offset = (pageNum - 1) * page.Limit
	}
	return page
}

func reconcileUnreconciledCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unreconciled",
		Short: "List unreconciled transactions without a suggested match",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			ctx := cmd.Context()
			fetcher, _, err := a.reconciler(ctx)
			if err != nil {
				return err
			}
			includeSuggested, _ := cmd.Flags().GetBool("include-suggested")

			res := fetcher.Unreconciled(ctx, pageFromFlags(cmd, fetcher))
			if !res.OK() {
				return res.Err
			}
			txns := res.Data
			if !includeSuggested {
				suggestions := fetcher.Suggestions(ctx)
				if !suggestions.OK() {
					return suggestions.Err
				}
				txns = reconcile.UnreconciledOnly(txns, suggestions.Data)
			}
			printOut(cmd, cli.RenderTransactions(txns))
			return nil
		}),
	}
	addPageFlags(cmd)
	cmd.Flags().Bool("include-suggested", false, "also list transactions that have a suggested match")
	return cmd
}

func reconcileReconciledCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconciled",
		Short: "List reconciled transactions",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			fetcher, _, err := a.reconciler(cmd.Context())
			if err != nil {
				return err
			}
			fetcher.ShowReconciled(true)
			res := fetcher.Reconciled(cmd.Context(), pageFromFlags(cmd, fetcher))
			if !res.OK() {
				return res.Err
			}
			printOut(cmd, cli.RenderTransactions(res.Data))
			return nil
		}),
	}
	addPageFlags(cmd)
	return cmd
}

func reconcileAutoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Reconcile every high-confidence suggested match",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			ctx := cmd.Context()
			fetcher, dispatcher, err := a.reconciler(ctx)
			if err != nil {
				return err
			}

			suggestions := fetcher.Suggestions(ctx)
			if !suggestions.OK() {
				return suggestions.Err
			}
			if len(suggestions.Data) == 0 {
				printOut(cmd, cli.FormatInfo("No suggested matches to auto-reconcile."))
				return nil
			}

			minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
			return a.reported(dispatcher.AutoReconcile(ctx, minConfidence))
		}),
	}
	cmd.Flags().Float64("min-confidence", 0, "minimum match confidence in (0,1] (default: reconcile.min_confidence)")
	return cmd
}

func reconcileConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <suggestion-id>",
		Short: "Accept a suggested match",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			fetcher, dispatcher, err := a.reconciler(ctx)
			if err != nil {
				return err
			}
			suggestion, err := findSuggestion(cmd, fetcher, args[0])
			if err != nil {
				return err
			}
			return a.reported(dispatcher.ConfirmMatch(ctx, suggestion))
		}),
	}
}

func findSuggestion(cmd *cobra.Command, fetcher *reconcile.Fetcher, id string) (model.MatchSuggestion, error) {
	res := fetcher.Suggestions(cmd.Context())
	if !res.OK() {
		return model.MatchSuggestion{}, res.Err
	}
	for _, s := range res.Data {
		if string(s.SuggestionID) == id {
			return s, nil
		}
	}
	return model.MatchSuggestion{}, fmt.Errorf("no suggested match with id %s", id)
}

func reconcileRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <suggestion-id>",
		Short: "Discard a suggested match",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			_, dispatcher, err := a.reconciler(cmd.Context())
			if err != nil {
				return err
			}
			return a.reported(dispatcher.RejectMatch(cmd.Context(), args[0]))
		}),
	}
}

func reconcileMarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mark [transaction-id...]",
		Short: "Mark unreconciled transactions as reconciled by hand",
		Long: `Mark transactions as reconciled without a payment match. Reserve this
for transfers and adjustments. Ids must be on the first page of the
unreconciled list; --all selects that whole page.`,
		RunE: withApp(runReconcileMark),
	}
	cmd.Flags().Bool("all", false, "select every listed unreconciled transaction")
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

func runReconcileMark(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()
	all, _ := cmd.Flags().GetBool("all")
	if !all && len(args) == 0 {
		return fmt.Errorf("pass transaction ids or --all")
	}

	fetcher, dispatcher, err := a.reconciler(ctx)
	if err != nil {
		return err
	}
	snap := fetcher.Load(ctx)
	if !snap.Unreconciled.OK() {
		return snap.Unreconciled.Err
	}
	// Without the suggestions nothing can be subtracted, and a transaction
	// with a pending match must not be reconciled by hand.
	if !snap.Suggestions.OK() {
		return snap.Suggestions.Err
	}
	visible := model.TransactionIDs(snap.UnreconciledOnly())

	selection := reconcile.NewSelection()
	if all {
		selection.SelectAll(visible)
	} else {
		for _, id := range args {
			selection.Toggle(id)
		}
	}
	requested := selection.Len()
	selection.Sync(visible)
	if dropped := requested - selection.Len(); dropped > 0 {
		printOut(cmd, cli.FormatWarning(fmt.Sprintf("Skipping %d id(s) that are not listed as unreconciled: %s",
			dropped, strings.Join(missing(args, selection), ", "))))
	}

	outcome, err := dispatcher.MarkSelected(ctx, selection)
	if errors.Is(err, reconcile.ErrNothingSelected) {
		return fmt.Errorf("nothing to mark")
	}
	if err == nil && outcome.Status == reconcile.StatusCancelled {
		printOut(cmd, cli.FormatInfo("Nothing was changed."))
	}
	return a.reported(outcome, err)
}

func missing(ids []string, selection *reconcile.Selection) []string {
	var out []string
	for _, id := range ids {
		if !selection.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

func reconcileUnmarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmark <transaction-id...>",
		Short: "Return reconciled transactions to the unreconciled list",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			_, dispatcher, err := a.reconciler(cmd.Context())
			if err != nil {
				return err
			}
			return a.reported(dispatcher.MarkUnreconciled(cmd.Context(), args))
		}),
	}
}

