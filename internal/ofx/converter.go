// Package ofx converts OFX and QFX bank statements into the CSV layout the
// import endpoint accepts.
package ofx

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/aclindsa/ofxgo"
)

// CSVHeader is the first line of every converted statement.
var CSVHeader = []string{"date", "description", "amount"}

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagPattern  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Row is one statement line ready for CSV output.
type Row struct {
	Date        string
	Description string
	Amount      string
	FitID       string
	Account     string
}

// Converter turns OFX/QFX statements into CSV.
type Converter struct{}

// NewConverter creates a converter.
func NewConverter() *Converter {
	return &Converter{}
}

// IsStatement reports whether name has an OFX or QFX extension.
func IsStatement(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ofx", ".qfx":
		return true
	default:
		return false
	}
}

// CSVName returns the upload name for a converted statement.
func CSVName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
}

// ToCSV converts a statement to CSV and returns the bytes and the number of
// transaction rows written.
func (c *Converter) ToCSV(ctx context.Context, r io.Reader) ([]byte, int, error) {
	rows, err := c.Rows(ctx, r)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, 0, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Date, row.Description, row.Amount}); err != nil {
			return nil, 0, fmt.Errorf("failed to write CSV row %s: %w", row.FitID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), len(rows), nil
}

// Rows parses every bank and credit card transaction in the statement.
func (c *Converter) Rows(ctx context.Context, r io.Reader) ([]Row, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(normalize(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var rows []Row
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		rows = append(rows, convert(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID))...)
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		rows = append(rows, convert(stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID))...)
	}

	slog.Debug("Converted OFX statement",
		"rows", len(rows),
		"bank_statements", len(resp.Bank),
		"cc_statements", len(resp.CreditCard))

	return rows, nil
}

// normalize repairs formatting mistakes common in bank-issued SGML files.
func normalize(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagPattern.ReplaceAllString(content, "$1>")
}

func convert(txns []ofxgo.Transaction, account string) []Row {
	rows := make([]Row, 0, len(txns))
	for _, tx := range txns {
		rows = append(rows, Row{
			Date:        tx.DtPosted.Format(model.DateLayout),
			Description: description(tx),
			Amount:      formatAmount(&tx.TrnAmt),
			FitID:       string(tx.FiTID),
			Account:     account,
		})
	}
	return rows
}

// formatAmount renders the signed amount with at least two decimals and
// without rounding.
func formatAmount(a *ofxgo.Amount) string {
	prec, exact := a.Rat.FloatPrec()
	if !exact {
		prec = 10
	}
	if prec < 2 {
		prec = 2
	}
	return a.Rat.FloatString(prec)
}

var cardPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

var genericNames = map[string]bool{
	"DEBIT":           true,
	"CREDIT":          true,
	"PURCHASE":        true,
	"PAYMENT":         true,
	"POS TRANSACTION": true,
	"CARD PURCHASE":   true,
}

// description picks the cleanest counterparty name: PAYEE, then NAME, then
// MEMO when NAME says nothing.
func description(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && genericNames[strings.ToUpper(name)] {
		name = strings.TrimSpace(string(tx.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range cardPrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Card processors often lead with "MM/DD ".
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}
