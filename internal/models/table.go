package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout formats zone-less wall clock timestamps
const TimestampLayout = "2006-01-02T15:04:05"

// Column names shared by both table shapes
const (
	ColumnDate     = "Date"
	ColumnStation  = "St.no"
	ColumnVariable = "Variable"
	ColumnValue    = "Value"
)

// NaiveTime drops the zone of t, keeping its wall clock reading. The result is
// stored in UTC so that comparisons only look at the wall clock.
func NaiveTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// WideRecord is one fragment flattened to one row
type WideRecord struct {
	Date   time.Time
	StNo   string
	Fields []string
	Values map[string]Value
}

// Set stores a value, remembering first insertion order
func (r *WideRecord) Set(name string, v Value) {
	if r.Values == nil {
		r.Values = make(map[string]Value)
	}
	if _, exists := r.Values[name]; !exists {
		r.Fields = append(r.Fields, name)
	}
	r.Values[name] = v
}

// LongRow is one (timestamp, station, variable) observation
type LongRow struct {
	Date     time.Time
	StNo     string
	Variable string
	Value    string
}

type longRowJSON struct {
	Date     string `json:"Date"`
	StNo     string `json:"St.no"`
	Variable string `json:"Variable"`
	Value    string `json:"Value"`
}

func (r LongRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(longRowJSON{
		Date:     r.Date.Format(TimestampLayout),
		StNo:     r.StNo,
		Variable: r.Variable,
		Value:    r.Value,
	})
}

func (r *LongRow) UnmarshalJSON(data []byte) error {
	var raw longRowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(TimestampLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("invalid Date %q: %w", raw.Date, err)
	}
	*r = LongRow{Date: date, StNo: raw.StNo, Variable: raw.Variable, Value: raw.Value}
	return nil
}

// Table is either a *WideTable or a *LongTable
type Table interface {
	Format() Format
	Len() int
}

// Column is a named, typed column of a wide table
type Column struct {
	Name   string
	Values []Value
}

// WideTable has one row per timestamp, indexed by Index, with St.no as first column
type WideTable struct {
	Index   []time.Time
	Columns []Column
}

func (t *WideTable) Format() Format { return FormatWide }
func (t *WideTable) Len() int       { return len(t.Index) }

// Column looks up a column by name
func (t *WideTable) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in order
func (t *WideTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Row returns the cells of row i in column order
func (t *WideTable) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Values[i]
	}
	return row
}

func (t *WideTable) MarshalJSON() ([]byte, error) {
	index := make([]string, len(t.Index))
	for i, ts := range t.Index {
		index[i] = ts.Format(TimestampLayout)
	}
	rows := make([][]Value, t.Len())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return json.Marshal(struct {
		Format  Format    `json:"format"`
		Index   []string  `json:"index"`
		Columns []string  `json:"columns"`
		Rows    [][]Value `json:"rows"`
	}{FormatWide, index, t.ColumnNames(), rows})
}

// LongTable has one row per observed variable
type LongTable struct {
	Rows []LongRow
}

func (t *LongTable) Format() Format { return FormatLong }
func (t *LongTable) Len() int       { return len(t.Rows) }

// ColumnNames returns the fixed long form columns
func (t *LongTable) ColumnNames() []string {
	return []string{ColumnDate, ColumnStation, ColumnVariable, ColumnValue}
}

func (t *LongTable) MarshalJSON() ([]byte, error) {
	rows := t.Rows
	if rows == nil {
		rows = []LongRow{}
	}
	return json.Marshal(struct {
		Format  Format    `json:"format"`
		Columns []string  `json:"columns"`
		Rows    []LongRow `json:"rows"`
	}{FormatLong, t.ColumnNames(), rows})
}
