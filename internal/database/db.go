package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"metobs/internal/metrics"
	"metobs/internal/models"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// ErrDuplicateStation is returned when a station number is already registered
var ErrDuplicateStation = errors.New("duplicate station")

const mysqlDuplicateEntry = 1062

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema
// dsn format: "username:password@tcp(host:port)/dbname?parseTime=true"
func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// initSchema creates the necessary tables. MySQL runs one statement per Exec.
func (db *DB) initSchema() error {
	statements := []string{
		// observed_at is a wall clock reading in the zone named by timezone
		`CREATE TABLE IF NOT EXISTS observations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			station VARCHAR(32) NOT NULL,
			observed_at DATETIME(6) NOT NULL,
			timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
			element VARCHAR(32) NOT NULL,
			value VARCHAR(64) NOT NULL,
			batch_id CHAR(36) NOT NULL,
			UNIQUE KEY uq_observation (station, observed_at, element, timezone),
			INDEX idx_observations_observed_at (observed_at),
			INDEX idx_observations_element (element)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS stations (
			st_no VARCHAR(32) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// StoreObservations upserts long form rows in one transaction. Rows already
// stored for the same station, time, element and zone are overwritten, so
// replaying a batch is harmless.
func (db *DB) StoreObservations(ctx context.Context, batchID uuid.UUID, timezone string, rows []models.LongRow) error {
	if len(rows) == 0 {
		return nil
	}
	defer db.updateStats()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO observations (station, observed_at, timezone, element, value, batch_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value), batch_id = VALUES(batch_id)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	start := time.Now()
	for _, row := range rows {
		if _, err = stmt.ExecContext(ctx, row.StNo, row.Date, timezone, row.Variable, row.Value, batchID.String()); err != nil {
			metrics.RecordDBQuery("INSERT", "observations", time.Since(start), err)
			return fmt.Errorf("failed to store %s at station %s on %s: %w",
				row.Variable, row.StNo, row.Date.Format(models.TimestampLayout), err)
		}
	}

	err = tx.Commit()
	metrics.RecordDBQuery("INSERT", "observations", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ObservationFilter selects stored observations. Empty Stations or Elements
// match everything; zero From/To leave the range open.
type ObservationFilter struct {
	Stations []string
	Elements []string
	From     time.Time
	To       time.Time
	Timezone string
	Limit    int
}

// GetObservations returns stored observations as a long table ordered by time,
// station and element.
func (db *DB) GetObservations(ctx context.Context, f ObservationFilter) (*models.LongTable, error) {
	query, args := buildObservationQuery(f)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("SELECT", "observations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	table := &models.LongTable{Rows: []models.LongRow{}}
	for rows.Next() {
		var r models.LongRow
		if err := rows.Scan(&r.StNo, &r.Date, &r.Variable, &r.Value); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		r.Date = models.NaiveTime(r.Date)
		table.Rows = append(table.Rows, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}
	return table, nil
}

func buildObservationQuery(f ObservationFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)

	if len(f.Stations) > 0 {
		where = append(where, fmt.Sprintf("station IN (%s)", placeholders(len(f.Stations))))
		for _, s := range f.Stations {
			args = append(args, s)
		}
	}
	if len(f.Elements) > 0 {
		where = append(where, fmt.Sprintf("element IN (%s)", placeholders(len(f.Elements))))
		for _, e := range f.Elements {
			args = append(args, e)
		}
	}
	if !f.From.IsZero() {
		where = append(where, "observed_at >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "observed_at < ?")
		args = append(args, f.To)
	}
	if f.Timezone != "" {
		where = append(where, "timezone = ?")
		args = append(args, f.Timezone)
	}

	query := "SELECT station, observed_at, element, value FROM observations"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY observed_at, station, element"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return query, args
}

// placeholders builds "?,?,?" for n values
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// GetStationsWithData returns the latest stored observation time per station
func (db *DB) GetStationsWithData(ctx context.Context) (map[string]time.Time, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT station, MAX(observed_at) FROM observations GROUP BY station`)
	metrics.RecordDBQuery("SELECT", "observations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get stations with data: %w", err)
	}
	defer rows.Close()

	stations := make(map[string]time.Time)
	for rows.Next() {
		var (
			station string
			latest  time.Time
		)
		if err := rows.Scan(&station, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations[station] = latest
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stations: %w", err)
	}

	return stations, nil
}

// Station is a registered met station
type Station struct {
	StNo      string  `json:"st_no"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// InsertStation registers a station
func (db *DB) InsertStation(ctx context.Context, s Station) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO stations (st_no, name, latitude, longitude) VALUES (?, ?, ?, ?)`,
		s.StNo, s.Name, s.Latitude, s.Longitude)
	metrics.RecordDBQuery("INSERT", "stations", time.Since(start), err)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateStation, s.StNo)
		}
		return fmt.Errorf("failed to insert station: %w", err)
	}
	return nil
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// GetAllStations retrieves all registered stations ordered by number
func (db *DB) GetAllStations(ctx context.Context) ([]Station, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT st_no, name, latitude, longitude FROM stations ORDER BY st_no`)
	metrics.RecordDBQuery("SELECT", "stations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []Station
	for rows.Next() {
		var s Station
		if err := rows.Scan(&s.StNo, &s.Name, &s.Latitude, &s.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stations: %w", err)
	}

	return stations, nil
}

// StationNumbers returns the numbers of all registered stations
func (db *DB) StationNumbers(ctx context.Context) ([]string, error) {
	stations, err := db.GetAllStations(ctx)
	if err != nil {
		return nil, err
	}
	numbers := make([]string, len(stations))
	for i, s := range stations {
		numbers[i] = s.StNo
	}
	return numbers, nil
}

func (db *DB) updateStats() {
	stats := db.conn.Stats()
	metrics.UpdateDBConnectionStats(stats.OpenConnections, stats.InUse, stats.Idle)
}

// Ping checks the connection
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
