package portfolio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

type sample struct {
	file        string
	symbols     []string
	allocations []string
}

var samples = []sample{
	{
		file:        "tech_portfolio.csv",
		symbols:     []string{"AAPL", "MSFT", "GOOGL", "NVDA", "AMD"},
		allocations: []string{"25", "25", "20", "15", "15"},
	},
	{
		file:        "dividend_portfolio.csv",
		symbols:     []string{"JNJ", "PG", "KO", "VZ", "MCD"},
		allocations: []string{"25", "20", "20", "20", "15"},
	},
	{
		file:        "diversified_portfolio.csv",
		symbols:     []string{"AAPL", "JNJ", "JPM", "XOM", "HD", "DIS", "PG", "COST", "NEE", "V"},
		allocations: []string{"12", "11", "10", "10", "10", "10", "10", "9", "9", "9"},
	},
}

// WriteSamples writes example portfolio files into dir and returns their paths
func WriteSamples(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	paths := make([]string, 0, len(samples))
	for _, s := range samples {
		rows := make([]*row, len(s.symbols))
		for i := range s.symbols {
			rows[i] = &row{Symbol: s.symbols[i], Allocation: s.allocations[i]}
		}

		path := filepath.Join(dir, s.file)
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", path, err)
		}
		err = gocsv.MarshalFile(&rows, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
