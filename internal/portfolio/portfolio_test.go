package portfolio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/finfun/internal/models"
)

type mockStore struct {
	saved *models.Portfolio
	err   error
}

func (m *mockStore) ReplacePortfolio(ctx context.Context, p *models.Portfolio) error {
	if m.err != nil {
		return m.err
	}
	m.saved = p
	return nil
}

func TestParse_CSV(t *testing.T) {
	in := "stock_symbol,allocation_percentage\naapl,60\nMSFT, 40.0\n"

	holdings, err := Parse("tech.csv", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	assert.Equal(t, "AAPL", holdings[0].Symbol)
	assert.True(t, holdings[0].AllocationPercentage.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "MSFT", holdings[1].Symbol)
	assert.True(t, holdings[1].AllocationPercentage.Equal(decimal.NewFromInt(40)))
}

func TestParse_Text(t *testing.T) {
	in := "allocation_percentage\tstock_symbol\n\n50   JNJ\n50\tKO\n"

	holdings, err := Parse("dividends.TXT", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "JNJ", holdings[0].Symbol)
	assert.Equal(t, "KO", holdings[1].Symbol)
}

func TestParse_MissingColumn(t *testing.T) {
	_, err := Parse("p.csv", strings.NewReader("symbol,allocation_percentage\nAAPL,100\n"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "stock_symbol")
}

func TestParse_BadRows(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty symbol", "stock_symbol,allocation_percentage\n,100\n", "row 1: stock_symbol is required"},
		{"non numeric", "stock_symbol,allocation_percentage\nAAPL,lots\n", `row 1: allocation_percentage "lots" is not a number`},
		{"long symbol", "stock_symbol,allocation_percentage\nAAPL,50\nABCDEFGHIJKL,50\n", "row 2: stock_symbol"},
		{"empty file", "", "file is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("p.csv", strings.NewReader(tt.in))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.want)
		})
	}
}

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := Parse("p.xlsx", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, SupportedExtension("p.xlsx"))
	assert.True(t, SupportedExtension("P.CSV"))
}

func holdings(pairs ...string) []*models.Holding {
	var out []*models.Holding
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, &models.Holding{
			Symbol:               pairs[i],
			AllocationPercentage: decimal.RequireFromString(pairs[i+1]),
		})
	}
	return out
}

func TestValidate_Sum(t *testing.T) {
	tests := []struct {
		name  string
		input []*models.Holding
		ok    bool
	}{
		{"exact", holdings("AAPL", "60", "MSFT", "40"), true},
		{"lower bound", holdings("AAPL", "59.5", "MSFT", "40"), true},
		{"upper bound", holdings("AAPL", "60.5", "MSFT", "40"), true},
		{"too low", holdings("AAPL", "59.4", "MSFT", "40"), false},
		{"too high", holdings("AAPL", "60.6", "MSFT", "40"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Msg, "sum to 100%")
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	var verr *ValidationError

	require.ErrorAs(t, Validate(nil), &verr)
	assert.Equal(t, "portfolio has no holdings", verr.Msg)

	require.ErrorAs(t, Validate(holdings("AAPL", "50", "AAPL", "50")), &verr)
	assert.Equal(t, 2, verr.Row)
	assert.Contains(t, verr.Msg, "duplicate symbol AAPL")

	require.ErrorAs(t, Validate(holdings("AAPL", "110", "MSFT", "-10")), &verr)
	assert.Contains(t, verr.Msg, "negative allocation")
}

func TestImporter_Import(t *testing.T) {
	store := &mockStore{}
	imp := NewImporter(store, zerolog.Nop())
	imp.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }

	p, err := imp.Import(context.Background(), "p.csv",
		strings.NewReader("stock_symbol,allocation_percentage\nAAPL,70\nMSFT,30\n"))
	require.NoError(t, err)

	assert.Equal(t, "20240309_140507", p.ID)
	assert.Equal(t, []string{"AAPL", "MSFT"}, p.Symbols())
	assert.Same(t, p, store.saved)
}

func TestImporter_ValidationFailureSkipsStore(t *testing.T) {
	store := &mockStore{}
	imp := NewImporter(store, zerolog.Nop())

	_, err := imp.Import(context.Background(), "p.csv",
		strings.NewReader("stock_symbol,allocation_percentage\nAAPL,70\n"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Nil(t, store.saved)
}

func TestImporter_StoreError(t *testing.T) {
	boom := errors.New("db down")
	imp := NewImporter(&mockStore{err: boom}, zerolog.Nop())

	_, err := imp.ImportHoldings(context.Background(), holdings("AAPL", "100"))
	assert.ErrorIs(t, err, boom)
}

func TestWriteSamples_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	paths, err := WriteSamples(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for _, path := range paths {
		f, err := os.Open(path)
		require.NoError(t, err)

		hs, err := Parse(filepath.Base(path), f)
		f.Close()
		require.NoError(t, err, path)
		assert.NoError(t, Validate(hs), path)
	}
}
