package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/importer"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/ofx"
	"github.com/Veraticus/the-books-must-balance/internal/reconcile"
	"github.com/Veraticus/the-books-must-balance/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [statement]",
		Short: "Import a bank statement",
		Long: `Import transactions from a bank statement.

CSV and PDF statements are parsed by the server (PDFs through OCR, which
can take a minute). OFX and QFX files are converted to CSV locally first.

In a terminal the import opens an interactive preview where rows can be
selected and edited before anything is saved. With --yes, or when output is
not a terminal, the preview is printed and the import runs unattended.

Examples:
  # Review interactively
  balance import ~/Downloads/january.csv

  # Unattended, skipping likely duplicates, then post everything
  balance import ~/Downloads/chase.qfx --yes --deselect-duplicates --post`,
		Args: cobra.MaximumNArgs(1),
		RunE: withApp(runImport),
	}

	cmd.Flags().BoolP("yes", "y", false, "import without the interactive preview or prompts")
	cmd.Flags().Bool("post", false, "post every imported transaction after the import")
	cmd.Flags().Bool("deselect-duplicates", false, "leave rows flagged as likely duplicates out of the import")
	cmd.Flags().Bool("no-tui", false, "print the preview instead of opening the interactive view")

	return cmd
}

func runImport(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()
	yes, _ := cmd.Flags().GetBool("yes")
	noTUI, _ := cmd.Flags().GetBool("no-tui")

	businessID, err := a.businessID(ctx)
	if err != nil {
		return err
	}

	pipeline := importer.NewPipeline(a.client, importer.Config{
		Cache:        a.cache,
		BusinessID:   businessID,
		Invalidates:  reconcile.AllQueries,
		PollInterval: a.cfg.PollInterval,
		MaxFileSize:  a.cfg.MaxFileSize,
	})
	defer pipeline.Close()

	opener := statementOpener(ctx)
	interactive := !yes && !noTUI && term.IsTerminal(int(os.Stdout.Fd()))
	if interactive {
		return runImportTUI(cmd, args, pipeline, opener)
	}

	if len(args) == 0 {
		return fmt.Errorf("a statement file is required with --yes or --no-tui")
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Import")
	ctx, stop := handler.HandleInterrupts(ctx)
	defer stop()
	return runImportUnattended(ctx, cmd, a, pipeline, opener, args[0])
}

func runImportTUI(cmd *cobra.Command, args []string, pipeline *importer.Pipeline, opener importer.Opener) error {
	ctx := cmd.Context()
	if len(args) == 1 {
		src, err := opener(args[0])
		if err != nil {
			return err
		}
		// Validation errors are shown inside the wizard.
		_ = pipeline.SelectSource(ctx, src)
	}

	snap, err := tui.Run(ctx, pipeline, opener)
	if err != nil {
		return err
	}

	post, _ := cmd.Flags().GetBool("post")
	if post && snap.State == importer.StateSuccess && !snap.Posted {
		return postImport(ctx, cmd, pipeline)
	}
	return nil
}

func runImportUnattended(ctx context.Context, cmd *cobra.Command, a *app, pipeline *importer.Pipeline, opener importer.Opener, path string) error {
	src, err := opener(path)
	if err != nil {
		return err
	}

	// Only PDF parses report progress.
	var progress *cli.JobProgress
	if fileType, ok := model.FileTypeFromName(src.Name); ok && fileType == model.FileTypePDF {
		progress = cli.NewJobProgress(cmd.ErrOrStderr(), "Uploading PDF...")
		unsubscribe := pipeline.OnChange(func(snap importer.Snapshot) {
			if snap.State == importer.StateProcessing {
				progress.Update(snap.Progress, snap.Message)
			}
		})
		defer unsubscribe()
	}

	if err := pipeline.SelectSource(ctx, src); err != nil {
		return err
	}
	snap, err := pipeline.Wait(ctx)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return err
	}
	if snap.State != importer.StatePreview {
		return common.NewUserError(snap.Error, fmt.Errorf("statement %s was not parsed", src.Name))
	}

	preview := pipeline.Preview()
	if deselect, _ := cmd.Flags().GetBool("deselect-duplicates"); deselect {
		if n := preview.DeselectDuplicates(); n > 0 {
			printOut(cmd, cli.FormatWarning(fmt.Sprintf("Left out %d likely duplicate(s)", n)))
		}
	}
	for _, w := range preview.Warnings() {
		printOut(cmd, cli.FormatWarning(w))
	}
	printOut(cmd, renderPreview(preview))

	tally := preview.Tally()
	ok, err := a.prompter.Confirm(ctx, "Import statement",
		fmt.Sprintf("Import %d of %d transactions from %s?", tally.Selected, tally.Total, snap.FileName))
	if err != nil {
		return err
	}
	if !ok {
		printOut(cmd, cli.FormatInfo("Nothing was imported."))
		return nil
	}

	resp, err := pipeline.Confirm(ctx)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Imported %d transaction(s) in batch %s", resp.ImportedCount, resp.BatchID)
	if resp.SkippedDuplicates > 0 {
		msg += fmt.Sprintf(", skipped %d duplicate(s)", resp.SkippedDuplicates)
	}
	printOut(cmd, cli.FormatSuccess(msg))

	if post, _ := cmd.Flags().GetBool("post"); post {
		return postImport(ctx, cmd, pipeline)
	}
	return nil
}

func postImport(ctx context.Context, cmd *cobra.Command, pipeline *importer.Pipeline) error {
	resp, err := pipeline.PostAll(ctx)
	if err != nil {
		return err
	}
	printOut(cmd, cli.FormatSuccess(fmt.Sprintf("Posted %d transaction(s)", resp.UpdatedCount)))
	return nil
}

func renderPreview(preview *importer.Preview) string {
	rows := preview.Rows()
	table := make([][]string, 0, len(rows))
	for i, row := range rows {
		mark := " "
		if preview.IsSelected(i) {
			mark = cli.SuccessIcon
		}
		flags := ""
		if row.IsDuplicate {
			flags = cli.WarningStyle.Render("likely duplicate")
		}
		table = append(table, []string{
			mark,
			row.TransactionDate,
			row.VendorName,
			row.Amount,
			model.StringValue(row.Category),
			row.EffectiveClassification(),
			flags,
		})
	}

	t := preview.Tally()
	footer := fmt.Sprintf("%d of %d selected   income %s (%d)   expenses %s (%d)   other %d",
		t.Selected, t.Total, t.Income.StringFixed(2), t.IncomeCount, t.Expenses.StringFixed(2), t.ExpenseCount, t.OtherCount)

	return cli.RenderTable([]string{"", "Date", "Vendor", "Amount", "Category", "Classification", ""}, table) + "\n\n" + footer
}

// statementOpener resolves statement paths, converting OFX and QFX files to
// CSV in memory so the server only ever sees formats it parses.
func statementOpener(ctx context.Context) importer.Opener {
	conv := ofx.NewConverter()
	return func(path string) (importer.Source, error) {
		if !ofx.IsStatement(path) {
			return importer.OpenFile(path)
		}

		f, err := os.Open(path)
		if err != nil {
			return importer.Source{}, fmt.Errorf("failed to read statement: %w", err)
		}
		defer f.Close()

		data, count, err := conv.ToCSV(ctx, f)
		if err != nil {
			return importer.Source{}, common.NewUserError("Could not read the OFX statement.", err)
		}
		common.LogInfo("Converted OFX statement", common.Fields{"file": path, "transactions": count})

		return importer.Source{
			Name: ofx.CSVName(path),
			Size: int64(len(data)),
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(data)), nil
			},
		}, nil
	}
}
