package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// RenderTable lays rows out under headers with columns sized to their widest cell.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	b.WriteString(renderRow(headers, widths, TableHeaderStyle))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(renderRow(row, widths, lipgloss.NewStyle()))
	}
	return b.String()
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	rendered := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		rendered[i] = TableCellStyle.Width(w + 2).Render(cell)
	}
	return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
}

// RenderSummary renders the reconciliation counters.
func RenderSummary(s model.ReconciliationSummary) string {
	body := fmt.Sprintf("Total transactions: %d\nReconciled:         %s\nUnreconciled:       %s\nSuggested matches:  %s",
		s.TotalTransactions,
		SuccessStyle.Render(fmt.Sprint(s.Reconciled)),
		WarningStyle.Render(fmt.Sprint(s.Unreconciled)),
		InfoStyle.Render(fmt.Sprint(s.SuggestedMatches)),
	)
	return RenderBox("Reconciliation", body)
}

// RenderSuggestions renders match suggestions, highest confidence styled green.
func RenderSuggestions(suggestions []model.MatchSuggestion) string {
	if len(suggestions) == 0 {
		return SubtleStyle.Render("No suggested matches.")
	}
	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		rows = append(rows, []string{
			string(s.SuggestionID),
			s.Transaction.TransactionDate,
			s.Transaction.VendorName,
			s.Transaction.Amount,
			s.SuggestedMatch.MatchType.Label(),
			s.SuggestedMatch.Counterparty,
			confidenceStyle(s.Level()).Render(s.Percent()),
			s.MatchReason,
		})
	}
	return RenderTable([]string{"ID", "Date", "Vendor", "Amount", "Match", "Counterparty", "Confidence", "Reason"}, rows)
}

func confidenceStyle(level model.ConfidenceLevel) lipgloss.Style {
	switch level {
	case model.ConfidenceHigh:
		return SuccessStyle
	case model.ConfidenceMedium:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

// RenderTransactions renders a transaction list.
func RenderTransactions(transactions []model.Transaction) string {
	if len(transactions) == 0 {
		return SubtleStyle.Render("No transactions.")
	}
	rows := make([][]string, 0, len(transactions))
	for _, t := range transactions {
		rows = append(rows, []string{
			string(t.ID),
			t.TransactionDate,
			t.VendorName,
			t.Amount,
			model.StringValue(t.Category),
			string(t.Status),
		})
	}
	return RenderTable([]string{"ID", "Date", "Vendor", "Amount", "Category", "Status"}, rows)
}

// RenderDuplicates renders each duplicate group with its members indented.
func RenderDuplicates(groups []model.DuplicateGroup) string {
	if len(groups) == 0 {
		return SubtleStyle.Render("No duplicate transactions.")
	}
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%s %s  %s  %s (%d copies)",
			DuplicateIcon, g.TransactionDate, g.VendorName, g.Amount, len(g.Transactions))))
		for _, t := range g.Transactions {
			source := model.StringValue(t.ImportSource)
			if source == "" {
				source = "manual"
			}
			b.WriteString("\n    ")
			b.WriteString(fmt.Sprintf("%s  %s  %s", t.ID, string(t.Status), SubtleStyle.Render(source)))
		}
	}
	return b.String()
}
