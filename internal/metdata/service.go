package metdata

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"metobs/internal/api"
	"metobs/internal/metrics"
	"metobs/internal/models"
	"metobs/internal/parser"
)

// Service splits queries into yearly service calls and assembles the results
// into one table. It holds no state between calls.
type Service struct {
	fetcher api.Fetcher
	logger  *slog.Logger
}

// NewService creates a new Service
func NewService(fetcher api.Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher: fetcher,
		logger:  logger.With("component", "metdata"),
	}
}

// GetMetData fetches observations for the query and returns a *models.WideTable
// or a *models.LongTable depending on q.Format.
//
// Dates and hours in the query are UTC; only the returned timestamps are
// converted to q.Location. A failing chunk aborts the whole query.
func (s *Service) GetMetData(ctx context.Context, q models.Query) (models.Table, error) {
	if q.TimeSerieTypeID != models.SupportedTimeSerieType {
		return nil, &models.QueryError{
			Message: fmt.Sprintf("only timeserietype %s is supported in this version", models.SupportedTimeSerieType),
		}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if len(q.Hours) == 0 {
		q.Hours = models.AllHours()
	}

	chunks := SplitByYear(q.From, q.To)
	batches, err := s.fetchChunks(ctx, q, chunks)
	if err != nil {
		return nil, err
	}

	var table models.Table
	if q.Format == models.FormatLong {
		table, err = assembleLong(batches, q.Zone())
	} else {
		table, err = assembleWide(batches, q.Zone())
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordAssembled(string(table.Format()), len(chunks), table.Len())
	s.logger.Info("assembled observations",
		"stations", q.Stations,
		"elements", q.Elements,
		"from", q.From.Format(models.DateLayout),
		"to", q.To.Format(models.DateLayout),
		"chunks", len(chunks),
		"format", table.Format(),
		"rows", table.Len())

	return table, nil
}

// GetWide is GetMetData for wide tables
func (s *Service) GetWide(ctx context.Context, q models.Query) (*models.WideTable, error) {
	q.Format = models.FormatWide
	table, err := s.GetMetData(ctx, q)
	if err != nil {
		return nil, err
	}
	return table.(*models.WideTable), nil
}

// GetLong is GetMetData for long tables
func (s *Service) GetLong(ctx context.Context, q models.Query) (*models.LongTable, error) {
	q.Format = models.FormatLong
	table, err := s.GetMetData(ctx, q)
	if err != nil {
		return nil, err
	}
	return table.(*models.LongTable), nil
}

// fetchChunks calls the service once per chunk, in order, keeping each
// chunk's fragments as a separate batch.
func (s *Service) fetchChunks(ctx context.Context, q models.Query, chunks []DateRange) ([][]models.Node, error) {
	batches := make([][]models.Node, 0, len(chunks))
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		fragments, err := s.fetcher.FetchObservations(ctx, api.QueryParams{
			TimeSerieTypeID: q.TimeSerieTypeID,
			Stations:        q.Stations,
			Elements:        q.Elements,
			From:            chunk.From,
			To:              chunk.To,
			Hours:           q.Hours,
			Months:          q.Months,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s..%s: %w",
				chunk.From.Format(models.DateLayout), chunk.To.Format(models.DateLayout), err)
		}

		s.logger.Debug("fetched chunk",
			"from", chunk.From.Format(models.DateLayout),
			"to", chunk.To.Format(models.DateLayout),
			"observations", len(fragments),
			"duration", time.Since(start))
		batches = append(batches, fragments)
	}
	return batches, nil
}

func assembleLong(batches [][]models.Node, loc *time.Location) (*models.LongTable, error) {
	opts := parser.Options{Location: loc}
	table := &models.LongTable{Rows: []models.LongRow{}}

	for _, batch := range batches {
		for _, fragment := range batch {
			rows, err := parser.ToLongRows(fragment, opts)
			if err != nil {
				return nil, err
			}
			table.Rows = append(table.Rows, rows...)
		}
	}
	return table, nil
}

func assembleWide(batches [][]models.Node, loc *time.Location) (*models.WideTable, error) {
	suffixed := anyMultipleLocations(batches)
	opts := parser.Options{Location: loc, ForceSuffix: suffixed}

	total := 0
	for _, batch := range batches {
		total += len(batch)
	}

	records := make([]models.WideRecord, 0, total)
	for _, batch := range batches {
		for _, fragment := range batch {
			rec, err := parser.ToWideRecord(fragment, opts)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	table := buildWideTable(records)
	if err := Coerce(table, suffixed); err != nil {
		return nil, err
	}
	return table, nil
}

// anyMultipleLocations reports whether any fragment of the query holds more than
// one station. When one does, every record of the query is station suffixed so
// that column names stay consistent across fragments and chunks.
func anyMultipleLocations(batches [][]models.Node) bool {
	for _, batch := range batches {
		for _, fragment := range batch {
			if parser.MultipleLocations(fragment) {
				return true
			}
		}
	}
	return false
}

// buildWideTable lays records out column by column. Columns appear in order of
// first appearance with St.no moved to the front; cells a record lacks are null.
func buildWideTable(records []models.WideRecord) *models.WideTable {
	names := []string{models.ColumnStation}
	seen := map[string]bool{models.ColumnStation: true}
	for _, rec := range records {
		for _, name := range rec.Fields {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	table := &models.WideTable{
		Index:   make([]time.Time, len(records)),
		Columns: make([]models.Column, len(names)),
	}
	for i, name := range names {
		table.Columns[i] = models.Column{Name: name, Values: make([]models.Value, len(records))}
	}

	for r, rec := range records {
		table.Index[r] = rec.Date
		table.Columns[0].Values[r] = stationValue(rec.StNo)
		for c := 1; c < len(names); c++ {
			if v, ok := rec.Values[names[c]]; ok {
				table.Columns[c].Values[r] = v
			} else {
				table.Columns[c].Values[r] = models.Null()
			}
		}
	}

	return table
}

func stationValue(id string) models.Value {
	if id == "" {
		return models.Null()
	}
	return models.StringValue(id)
}
