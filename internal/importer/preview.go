package importer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
)

// Field names a preview column the user may edit.
type Field string

// Editable fields.
const (
	FieldVendor         Field = "vendor"
	FieldCategory       Field = "category"
	FieldClassification Field = "classification"
)

// Tally summarizes the selected rows.
type Tally struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Selected int
	Total    int
	// Counts by effective classification: business_income, business_expense, everything else.
	IncomeCount  int
	ExpenseCount int
	OtherCount   int
}

// Preview is the editable copy of a parse result plus the set of rows chosen
// for import. Nothing here talks to the server.
type Preview struct {
	result   model.ParseResult
	rows     []model.ParsedRow
	selected map[int]struct{}
	mu       sync.RWMutex
}

// NewPreview copies every parsed row and selects all rows that are not
// flagged as likely duplicates.
func NewPreview(result model.ParseResult) *Preview {
	rows := make([]model.ParsedRow, len(result.Transactions))
	copy(rows, result.Transactions)

	p := &Preview{
		result:   result,
		rows:     rows,
		selected: make(map[int]struct{}, len(rows)),
	}
	for i, row := range rows {
		if !row.IsDuplicate {
			p.selected[i] = struct{}{}
		}
	}
	return p
}

// FileType returns the parsed statement's format.
func (p *Preview) FileType() model.FileType {
	return p.result.FileType
}

// FileName returns the parsed statement's name.
func (p *Preview) FileName() string {
	return p.result.FileName
}

// Warnings returns the parser's warnings.
func (p *Preview) Warnings() []string {
	return p.result.ParseWarnings
}

// Len returns the number of parsed rows.
func (p *Preview) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rows)
}

// Row returns the current, possibly edited, row at index i.
func (p *Preview) Row(i int) (model.ParsedRow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.check(i); err != nil {
		return model.ParsedRow{}, err
	}
	return p.rows[i], nil
}

// Rows returns a copy of every row.
func (p *Preview) Rows() []model.ParsedRow {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rows := make([]model.ParsedRow, len(p.rows))
	copy(rows, p.rows)
	return rows
}

// IsSelected reports whether row i will be imported.
func (p *Preview) IsSelected(i int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.selected[i]
	return ok
}

// Toggle flips the selection of row i and reports whether it is now selected.
// Duplicate-flagged rows may be selected; the flag is advisory.
func (p *Preview) Toggle(i int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(i); err != nil {
		return false, err
	}
	if _, ok := p.selected[i]; ok {
		delete(p.selected, i)
		return false, nil
	}
	p.selected[i] = struct{}{}
	return true, nil
}

// SelectAll selects every row, duplicates included.
func (p *Preview) SelectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.rows {
		p.selected[i] = struct{}{}
	}
}

// DeselectAll clears the selection.
func (p *Preview) DeselectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = make(map[int]struct{}, len(p.rows))
}

// DeselectDuplicates removes only the duplicate-flagged rows from the
// selection and leaves every other choice as it was.
func (p *Preview) DeselectDuplicates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for i, row := range p.rows {
		if !row.IsDuplicate {
			continue
		}
		if _, ok := p.selected[i]; ok {
			delete(p.selected, i)
			removed++
		}
	}
	return removed
}

// Edit changes one field of row i.
func (p *Preview) Edit(i int, field Field, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(i); err != nil {
		return err
	}

	row := &p.rows[i]
	switch field {
	case FieldVendor:
		if value == "" {
			return fmt.Errorf("%w: vendor name cannot be empty", model.ErrInvalidRow)
		}
		row.VendorName = value
	case FieldCategory:
		row.Category = model.StringPtr(value)
	case FieldClassification:
		if value != "" && !model.IsKnownClassification(value) {
			return fmt.Errorf("%w: unknown classification %q", model.ErrInvalidRow, value)
		}
		row.Classification = model.StringPtr(value)
	default:
		return fmt.Errorf("%w: field %q is not editable", model.ErrInvalidRow, field)
	}
	return nil
}

// SelectedIndices returns the selected row indices in ascending order.
func (p *Preview) SelectedIndices() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selectedIndices()
}

func (p *Preview) selectedIndices() []int {
	idx := make([]int, 0, len(p.selected))
	for i := range p.selected {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Selected returns the current values of the selected rows in order.
func (p *Preview) Selected() []model.ParsedRow {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rows := make([]model.ParsedRow, 0, len(p.selected))
	for _, i := range p.selectedIndices() {
		rows = append(rows, p.rows[i])
	}
	return rows
}

// Items builds the confirm payload from the selected rows only.
func (p *Preview) Items() []model.ImportItem {
	selected := p.Selected()
	items := make([]model.ImportItem, 0, len(selected))
	for _, row := range selected {
		items = append(items, row.ImportItem())
	}
	return items
}

// Tally counts and totals the selected rows by classification.
func (p *Preview) Tally() Tally {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t := Tally{Total: len(p.rows), Selected: len(p.selected)}
	for i := range p.selected {
		row := p.rows[i]
		amount, err := model.ParseAmount(row.Amount)
		if err != nil {
			amount = decimal.Zero
		}
		switch row.EffectiveClassification() {
		case model.ClassBusinessIncome:
			t.IncomeCount++
			t.Income = t.Income.Add(amount)
		case model.ClassBusinessExpense:
			t.ExpenseCount++
			t.Expenses = t.Expenses.Add(amount.Abs())
		default:
			t.OtherCount++
		}
	}
	return t
}

func (p *Preview) check(i int) error {
	if i < 0 || i >= len(p.rows) {
		return fmt.Errorf("%w: row %d out of range", model.ErrInvalidRow, i)
	}
	return nil
}
