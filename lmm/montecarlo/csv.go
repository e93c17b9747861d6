package montecarlo

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"query_time", "maturity_index", "settlement_time", "mean", "stddev", "stderr", "min", "max", "paths"}

// WriteCSV writes one row per live maturity per query time. Settled
// maturities carry no sampled rate and are omitted.
func WriteCSV(w io.Writer, summaries []*Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, s := range summaries {
		for k := s.FirstLive; k < len(s.Grid); k++ {
			row := []string{
				fmtFloat(s.QueryTime),
				strconv.Itoa(k),
				fmtFloat(s.Grid[k]),
				fmtFloat(s.Mean[k]),
				fmtFloat(s.StdDev[k]),
				fmtFloat(s.StdErr[k]),
				fmtFloat(s.Min[k]),
				fmtFloat(s.Max[k]),
				strconv.Itoa(s.Paths),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
