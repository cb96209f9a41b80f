package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/importer"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// View renders the current step.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.snap.State {
	case importer.StateUpload:
		body = m.uploadView()
	case importer.StateProcessing:
		body = m.processingView()
	case importer.StatePreview:
		body = m.previewView()
	case importer.StateSuccess:
		body = m.successView()
	}

	sections := []string{m.theme.Title.Render("Import statement"), body}
	if status := m.statusLine(); status != "" {
		sections = append(sections, "", status)
	}
	sections = append(sections, "", m.help.View(m.keymap))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) statusLine() string {
	switch {
	case m.notice != "" && m.noticeErr:
		return m.theme.StatusError.Render(m.notice)
	case m.notice != "":
		return m.theme.StatusOK.Render(m.notice)
	case m.snap.Error != "":
		return m.theme.StatusError.Render(m.snap.Error)
	}
	return ""
}

func (m Model) uploadView() string {
	lines := []string{
		m.theme.Subtitle.Render("CSV and PDF statements are parsed by the server; OFX and QFX files are converted locally first."),
		"",
		m.input.View(),
	}
	if m.busy {
		lines = append(lines, "", m.spinner.View()+" Opening...")
	}
	return strings.Join(lines, "\n")
}

func (m Model) processingView() string {
	msg := m.snap.Message
	if msg == "" {
		msg = "Processing..."
	}
	lines := []string{
		m.theme.Bold.Render(m.snap.FileName),
		"",
		fmt.Sprintf("%s %s", m.spinner.View(), msg),
	}
	if m.snap.FileType == model.FileTypePDF {
		lines = append(lines, m.theme.Muted.Render(fmt.Sprintf("%d%% complete", m.snap.Progress)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) previewView() string {
	preview := m.pipeline.Preview()
	if preview == nil {
		return m.theme.Muted.Render("No rows.")
	}

	rows := preview.Rows()
	lines := []string{m.theme.Bold.Render(m.snap.FileName)}
	for _, w := range preview.Warnings() {
		lines = append(lines, m.theme.Duplicate.Render("! "+w))
	}
	lines = append(lines, "", m.theme.Muted.Render(fmt.Sprintf("    %-10s  %-24s  %12s  %-16s  %-18s", "Date", "Vendor", "Amount", "Category", "Classification")))

	end := min(m.offset+m.pageSize(), len(rows))
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.rowView(i, rows[i], preview.IsSelected(i)))
	}
	if len(rows) > end || m.offset > 0 {
		lines = append(lines, m.theme.Muted.Render(fmt.Sprintf("rows %d-%d of %d", m.offset+1, end, len(rows))))
	}

	lines = append(lines, "", m.tallyView(preview.Tally()))

	if m.editing != "" {
		lines = append(lines, "", m.theme.Bold.Render("Edit "+string(m.editing)+":"), m.input.View())
		if m.editing == importer.FieldClassification && m.cursor < len(rows) {
			lines = append(lines, m.theme.Muted.Render(strings.Join(classificationChoices(rows[m.cursor]), ", ")))
		}
	}
	if m.busy {
		lines = append(lines, "", m.spinner.View()+" Importing...")
	}
	return strings.Join(lines, "\n")
}

func (m Model) rowView(i int, row model.ParsedRow, selected bool) string {
	box := "[ ]"
	if selected {
		box = "[x]"
	}
	line := fmt.Sprintf("%s %-10s  %-24s  %12s  %-16s  %-18s",
		box,
		row.TransactionDate,
		truncate(row.VendorName, 24),
		row.Amount,
		truncate(model.StringValue(row.Category), 16),
		row.EffectiveClassification(),
	)
	if row.AIConfidence > 0 {
		line += m.theme.Muted.Render(fmt.Sprintf("  AI %.0f%%", row.AIConfidence*100))
	}
	if row.IsDuplicate {
		line += m.theme.Duplicate.Render("  likely duplicate")
	}
	if i == m.cursor {
		return m.theme.Cursor.Render(line)
	}
	return line
}

func (m Model) tallyView(t importer.Tally) string {
	return fmt.Sprintf("%s of %d selected   %s   %s   %s",
		m.theme.Bold.Render(fmt.Sprint(t.Selected)),
		t.Total,
		m.theme.Income.Render(fmt.Sprintf("income %s (%d)", t.Income.StringFixed(2), t.IncomeCount)),
		m.theme.Expense.Render(fmt.Sprintf("expenses %s (%d)", t.Expenses.StringFixed(2), t.ExpenseCount)),
		m.theme.Muted.Render(fmt.Sprintf("other %d", t.OtherCount)),
	)
}

func (m Model) successView() string {
	res := m.snap.Result
	if res == nil {
		return ""
	}
	lines := []string{
		m.theme.StatusOK.Render(fmt.Sprintf("Imported %d transaction(s)", res.ImportedCount)),
	}
	if res.SkippedDuplicates > 0 {
		lines = append(lines, m.theme.Duplicate.Render(fmt.Sprintf("Skipped %d duplicate(s)", res.SkippedDuplicates)))
	}
	lines = append(lines, m.theme.Muted.Render("Batch "+res.BatchID))

	switch {
	case m.snap.Posted:
		lines = append(lines, "", m.theme.StatusOK.Render("All transactions posted."))
	case m.snap.Posting:
		lines = append(lines, "", m.spinner.View()+" Posting...")
	default:
		lines = append(lines, "", "Press p to post every imported transaction, or q to review them later.")
	}
	return m.theme.Box.Render(strings.Join(lines, "\n"))
}

func fieldValue(row model.ParsedRow, field importer.Field) string {
	switch field {
	case importer.FieldVendor:
		return row.VendorName
	case importer.FieldCategory:
		return model.StringValue(row.Category)
	case importer.FieldClassification:
		return model.StringValue(row.Classification)
	}
	return ""
}

// classificationChoices lists the classifications that fit the row's direction.
func classificationChoices(row model.ParsedRow) []string {
	amount, err := model.ParseAmount(row.Amount)
	if err == nil && amount.IsNegative() {
		return model.DebitClassifications
	}
	return model.CreditClassifications
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
