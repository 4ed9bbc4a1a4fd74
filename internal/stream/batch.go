// Package stream carries collected observation batches from the collector to
// the store over a Redis stream.
package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"metobs/internal/models"
)

// Batch kinds
const (
	KindBackfill = "backfill"
	KindDaily    = "daily"
)

// dataField is the stream entry field holding the encoded batch
const dataField = "data"

// Batch is the long form result of one collector query
type Batch struct {
	ID          uuid.UUID        `json:"id"`
	Kind        string           `json:"kind"`
	Stations    []string         `json:"stations"`
	Elements    []string         `json:"elements"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Timezone    string           `json:"timezone"`
	CollectedAt time.Time        `json:"collected_at"`
	Rows        []models.LongRow `json:"rows"`
}

// NewBatch stamps a batch with a fresh id
func NewBatch(kind string, q models.Query, rows []models.LongRow) Batch {
	return Batch{
		ID:          uuid.New(),
		Kind:        kind,
		Stations:    q.Stations,
		Elements:    q.Elements,
		From:        q.From.Format(models.DateLayout),
		To:          q.To.Format(models.DateLayout),
		Timezone:    q.Zone().String(),
		CollectedAt: time.Now().UTC(),
		Rows:        rows,
	}
}

func Encode(b Batch) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch %s: %w", b.ID, err)
	}
	return data, nil
}

func Decode(data []byte) (Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return Batch{}, fmt.Errorf("failed to decode batch: %w", err)
	}
	if b.ID == uuid.Nil {
		return Batch{}, fmt.Errorf("failed to decode batch: missing id")
	}
	return b, nil
}
