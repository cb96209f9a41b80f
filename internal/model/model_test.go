package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTypeFromName(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		want   FileType
		wantOK bool
	}{
		{name: "csv", file: "march.csv", want: FileTypeCSV, wantOK: true},
		{name: "upper case pdf", file: "Statement.PDF", want: FileTypePDF, wantOK: true},
		{name: "path with dots", file: "/tmp/v1.2/march.csv", want: FileTypeCSV, wantOK: true},
		{name: "spreadsheet", file: "march.xlsx"},
		{name: "no extension", file: "march"},
		{name: "trailing dot", file: "march."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FileTypeFromName(tt.file)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveClassification(t *testing.T) {
	tests := []struct {
		name string
		row  ParsedRow
		want string
	}{
		{name: "explicit", row: ParsedRow{Amount: "-5", Classification: StringPtr(ClassOwnerDraw)}, want: ClassOwnerDraw},
		{name: "outflow defaults to expense", row: ParsedRow{Amount: "-5.00"}, want: ClassBusinessExpense},
		{name: "inflow defaults to income", row: ParsedRow{Amount: "12.50"}, want: ClassBusinessIncome},
		{name: "unparseable defaults to income", row: ParsedRow{Amount: "n/a"}, want: ClassBusinessIncome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.row.EffectiveClassification())
		})
	}
}

func TestImportItemCarriesAISuggestionOnlyWithConfidence(t *testing.T) {
	row := ParsedRow{
		TransactionDate: "2025-03-01",
		VendorName:      "Staples",
		Amount:          "-12.00",
		Category:        StringPtr("Office Supplies"),
	}

	item := row.ImportItem()
	assert.Equal(t, "Office Supplies", item.Category)
	assert.Empty(t, item.AISuggestedCategory)
	assert.Zero(t, item.AIConfidence)

	row.AIConfidence = 0.82
	item = row.ImportItem()
	assert.Equal(t, "Office Supplies", item.AISuggestedCategory)
	assert.InDelta(t, 0.82, item.AIConfidence, 1e-9)
}

func TestIsKnownClassification(t *testing.T) {
	assert.True(t, IsKnownClassification(ClassPersonal))
	assert.True(t, IsKnownClassification(ClassTransferOut))
	assert.False(t, IsKnownClassification("business"))
	assert.False(t, IsKnownClassification(""))
}

func TestParseOutcomeValidate(t *testing.T) {
	assert.NoError(t, ParseOutcome{Result: &ParseResult{}}.Validate())
	assert.NoError(t, ParseOutcome{Job: &JobHandle{JobID: 7}}.Validate())
	assert.Error(t, ParseOutcome{}.Validate())
	assert.Error(t, ParseOutcome{Result: &ParseResult{}, Job: &JobHandle{}}.Validate())
}

func TestJobStatusIsTerminal(t *testing.T) {
	assert.False(t, JobPending.IsTerminal())
	assert.False(t, JobRunning.IsTerminal())
	assert.True(t, JobCompleted.IsTerminal())
	assert.True(t, JobFailed.IsTerminal())
}

func validSuggestion() MatchSuggestion {
	return MatchSuggestion{
		SuggestionID:   "s1",
		Transaction:    Transaction{ID: "t1"},
		SuggestedMatch: SuggestedMatch{MatchID: "p1", MatchType: MatchPayment},
		Confidence:     decimal.RequireFromString("0.95"),
	}
}

func TestMatchSuggestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MatchSuggestion)
		wantErr bool
	}{
		{name: "valid", mutate: func(*MatchSuggestion) {}},
		{name: "missing suggestion id", mutate: func(s *MatchSuggestion) { s.SuggestionID = "" }, wantErr: true},
		{name: "missing transaction", mutate: func(s *MatchSuggestion) { s.Transaction.ID = "" }, wantErr: true},
		{name: "missing match", mutate: func(s *MatchSuggestion) { s.SuggestedMatch.MatchID = "" }, wantErr: true},
		{name: "unknown match type", mutate: func(s *MatchSuggestion) { s.SuggestedMatch.MatchType = "invoice" }, wantErr: true},
		{name: "confidence above one", mutate: func(s *MatchSuggestion) { s.Confidence = decimal.RequireFromString("1.01") }, wantErr: true},
		{name: "negative confidence", mutate: func(s *MatchSuggestion) { s.Confidence = decimal.RequireFromString("-0.1") }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSuggestion()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSuggestion)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMatchSuggestionDisplay(t *testing.T) {
	tests := []struct {
		confidence string
		level      ConfidenceLevel
		percent    string
	}{
		{confidence: "0.95", level: ConfidenceHigh, percent: "95%"},
		{confidence: "0.8", level: ConfidenceHigh, percent: "80%"},
		{confidence: "0.5", level: ConfidenceMedium, percent: "50%"},
		{confidence: "0.123", level: ConfidenceLow, percent: "12%"},
	}

	for _, tt := range tests {
		t.Run(tt.confidence, func(t *testing.T) {
			s := MatchSuggestion{Confidence: decimal.RequireFromString(tt.confidence)}
			assert.Equal(t, tt.level, s.Level())
			assert.Equal(t, tt.percent, s.Percent())
		})
	}

	s := validSuggestion()
	assert.Equal(t, ConfirmMatchRequest{TransactionID: "t1", MatchID: "p1", MatchType: MatchPayment}, s.ConfirmRequest())
	assert.Equal(t, "Customer payment", MatchPayment.Label())
	assert.Equal(t, "Bill payment", MatchBillPayment.Label())
}

func TestDuplicateGroup(t *testing.T) {
	g := DuplicateGroup{Transactions: []Transaction{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	require.NoError(t, g.Validate())

	assert.Equal(t, []string{"a", "c"}, TransactionIDs(g.Extras("b")))
	assert.Equal(t, []string{"b", "c"}, TransactionIDs(g.Extras("")), "keeps the first member by default")
	assert.Equal(t, []string{"b", "c"}, TransactionIDs(g.Extras("zzz")))

	assert.ErrorIs(t, DuplicateGroup{Transactions: []Transaction{{ID: "a"}}}.Validate(), ErrInvalidDuplicateGroup)
}

func TestTransactionHelpers(t *testing.T) {
	txn := Transaction{ID: "t9", VendorName: "Cafe", Amount: "-4.50", TransactionDate: "2025-03-03"}

	assert.True(t, txn.IsOutflow())
	assert.False(t, Transaction{Amount: "4.50"}.IsOutflow())
	assert.False(t, Transaction{Amount: "oops"}.IsOutflow())

	date, err := txn.Date()
	require.NoError(t, err)
	assert.Equal(t, 3, date.Day())
	assert.Equal(t, "Cafe -4.50 on 2025-03-03 (id t9)", txn.Label())

	amount, err := ParseAmount("1234.5678")
	require.NoError(t, err)
	assert.Equal(t, "1234.5678", amount.String())
	_, err = ParseAmount("12,00")
	assert.Error(t, err)

	assert.True(t, StatusInboxFirm.IsValid())
	assert.False(t, TransactionStatus("archived").IsValid())
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "x", StringValue(StringPtr("x")))
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultPageSize}, Page{Offset: -3}.Normalize())
	assert.Equal(t, Page{Limit: 25, Offset: 50}, Page{Limit: 25, Offset: 50}.Normalize())
}

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    ID
		wantErr bool
	}{
		{name: "integer", body: `{"id":41}`, want: "41"},
		{name: "string", body: `{"id":"t-41"}`, want: "t-41"},
		{name: "large integer keeps every digit", body: `{"id":9007199254740993}`, want: "9007199254740993"},
		{name: "null", body: `{"id":null}`, want: ""},
		{name: "object", body: `{"id":{"value":1}}`, wantErr: true},
		{name: "boolean", body: `{"id":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				ID ID `json:"id"`
			}
			err := json.Unmarshal([]byte(tt.body), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}

	var row ParsedRow
	require.NoError(t, json.Unmarshal([]byte(`{"duplicate_transaction_id":12}`), &row))
	assert.Equal(t, "12", IDValue(row.DuplicateTransactionID))
	assert.Nil(t, IDPtr(""))
}
