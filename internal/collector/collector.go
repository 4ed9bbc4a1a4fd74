// Package collector pulls the previous day's observations, or a backfill for
// stations with nothing stored yet, and publishes them as stream batches.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"metobs/internal/models"
	"metobs/internal/stream"
)

// Querier runs long form observation queries
type Querier interface {
	GetLong(ctx context.Context, q models.Query) (*models.LongTable, error)
}

// Publisher hands batches over to the store
type Publisher interface {
	Publish(ctx context.Context, b stream.Batch) (string, error)
}

// StationIndex reports which stations already have stored observations
type StationIndex interface {
	GetStationsWithData(ctx context.Context) (map[string]time.Time, error)
}

// StationRegistry lists registered stations. It is used when no stations are configured.
type StationRegistry interface {
	StationNumbers(ctx context.Context) ([]string, error)
}

// Settings is the collection plan
type Settings struct {
	TimeSerieTypeID string
	Stations        []string
	Elements        []string
	Hours           []int
	BackfillDays    int
	Location        *time.Location
}

// Summary describes one run
type Summary struct {
	Stations int
	Batches  int
	Rows     int
}

type Collector struct {
	querier   Querier
	publisher Publisher
	index     StationIndex
	registry  StationRegistry
	settings  Settings
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Collector. registry may be nil.
func New(querier Querier, publisher Publisher, index StationIndex, registry StationRegistry, settings Settings, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.TimeSerieTypeID == "" {
		settings.TimeSerieTypeID = models.SupportedTimeSerieType
	}
	return &Collector{
		querier:   querier,
		publisher: publisher,
		index:     index,
		registry:  registry,
		settings:  settings,
		logger:    logger.With("component", "collector"),
		now:       time.Now,
	}
}

// Run collects every station concurrently. A failing station does not stop
// the others; all failures are returned joined.
func (c *Collector) Run(ctx context.Context) (Summary, error) {
	stations, err := c.stations(ctx)
	if err != nil {
		return Summary{}, err
	}
	if len(stations) == 0 {
		c.logger.Warn("no stations to collect")
		return Summary{}, nil
	}

	withData, err := c.index.GetStationsWithData(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to get stations with data: %w", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		summary = Summary{Stations: len(stations)}
		errs    []error
	)

	for _, station := range stations {
		wg.Add(1)
		go func(station string) {
			defer wg.Done()

			_, known := withData[station]
			rows, err := c.collectStation(ctx, station, !known)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("station %s: %w", station, err))
				return
			}
			if rows > 0 {
				summary.Batches++
				summary.Rows += rows
			}
		}(station)
	}

	wg.Wait()

	c.logger.Info("collection completed",
		"stations", summary.Stations,
		"batches", summary.Batches,
		"rows", summary.Rows,
		"failed", len(errs))
	return summary, errors.Join(errs...)
}

func (c *Collector) stations(ctx context.Context) ([]string, error) {
	if len(c.settings.Stations) > 0 || c.registry == nil {
		return c.settings.Stations, nil
	}
	stations, err := c.registry.StationNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered stations: %w", err)
	}
	return stations, nil
}

func (c *Collector) collectStation(ctx context.Context, station string, backfill bool) (int, error) {
	kind := stream.KindDaily
	if backfill {
		kind = stream.KindBackfill
	}
	q := c.query(station, backfill)

	c.logger.Info("collecting station",
		"station", station,
		"kind", kind,
		"from", q.From.Format(models.DateLayout),
		"to", q.To.Format(models.DateLayout))

	table, err := c.querier.GetLong(ctx, q)
	if err != nil {
		return 0, err
	}
	if table.Len() == 0 {
		c.logger.Info("no observations", "station", station, "kind", kind)
		return 0, nil
	}

	batch := stream.NewBatch(kind, q, table.Rows)
	id, err := c.publisher.Publish(ctx, batch)
	if err != nil {
		return 0, err
	}

	c.logger.Info("published batch", "station", station, "entry", id, "batch", batch.ID, "rows", table.Len())
	return table.Len(), nil
}

// query covers yesterday, or the BackfillDays days before today for a backfill.
// Dates are UTC calendar days.
func (c *Collector) query(station string, backfill bool) models.Query {
	now := c.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	from := yesterday
	if backfill && c.settings.BackfillDays > 1 {
		from = today.AddDate(0, 0, -c.settings.BackfillDays)
	}

	return models.Query{
		TimeSerieTypeID: c.settings.TimeSerieTypeID,
		Stations:        []string{station},
		Elements:        c.settings.Elements,
		From:            from,
		To:              yesterday,
		Hours:           c.settings.Hours,
		Location:        c.settings.Location,
		Format:          models.FormatLong,
	}
}
