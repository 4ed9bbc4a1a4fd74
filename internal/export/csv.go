package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"metobs/internal/models"
)

// WriteCSV writes a table with a header row. Wide tables get a leading Date
// column holding the index; nulls are written as empty cells.
func WriteCSV(w io.Writer, table models.Table) error {
	cw := csv.NewWriter(w)

	switch t := table.(type) {
	case *models.WideTable:
		header := append([]string{models.ColumnDate}, t.ColumnNames()...)
		if err := cw.Write(header); err != nil {
			return err
		}
		record := make([]string, len(header))
		for i, ts := range t.Index {
			record[0] = ts.Format(models.TimestampLayout)
			for j, v := range t.Row(i) {
				record[j+1] = v.String()
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	case *models.LongTable:
		if err := cw.Write(t.ColumnNames()); err != nil {
			return err
		}
		for _, r := range t.Rows {
			if err := cw.Write([]string{r.Date.Format(models.TimestampLayout), r.StNo, r.Variable, r.Value}); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported table type %T", table)
	}

	cw.Flush()
	return cw.Error()
}
