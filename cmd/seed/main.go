package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"metobs/internal/config"
	"metobs/internal/database"
	"metobs/internal/logging"
)

const csvPath = "stations_seed.csv"

func main() {
	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.Log, "seed")

	db, err := database.NewDB(config.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	file, err := os.Open(csvPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	stations, skipped, err := readStations(file, logger)
	if err != nil {
		log.Fatalf("Failed to read stations: %v", err)
	}

	ctx := context.Background()
	count := 0
	for _, s := range stations {
		if err := db.InsertStation(ctx, s); err != nil {
			if errors.Is(err, database.ErrDuplicateStation) {
				logger.Info("station already exists", "st_no", s.StNo)
			} else {
				logger.Error("failed to insert station", "st_no", s.StNo, "err", err)
			}
			skipped++
			continue
		}
		count++
	}

	logger.Info("import complete", "inserted", count, "skipped", skipped)
}

// readStations parses st_no,name,latitude,longitude rows after a header row.
// Malformed rows are logged and counted as skipped.
func readStations(r io.Reader, logger *slog.Logger) ([]database.Station, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var (
		stations []database.Station
		skipped  int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read CSV record: %w", err)
		}

		s, err := parseStation(record)
		if err != nil {
			logger.Warn("skipping record", "record", record, "err", err)
			skipped++
			continue
		}
		stations = append(stations, s)
	}
	return stations, skipped, nil
}

func parseStation(record []string) (database.Station, error) {
	if len(record) < 4 {
		return database.Station{}, fmt.Errorf("want 4 fields, got %d", len(record))
	}
	s := database.Station{
		StNo: strings.TrimSpace(record[0]),
		Name: strings.TrimSpace(record[1]),
	}
	if s.StNo == "" {
		return s, errors.New("empty station number")
	}

	var err error
	if s.Latitude, err = strconv.ParseFloat(strings.TrimSpace(record[2]), 64); err != nil {
		return s, fmt.Errorf("invalid latitude: %w", err)
	}
	if s.Longitude, err = strconv.ParseFloat(strings.TrimSpace(record[3]), 64); err != nil {
		return s, fmt.Errorf("invalid longitude: %w", err)
	}
	return s, nil
}
