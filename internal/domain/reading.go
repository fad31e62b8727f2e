package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Reading is one ephemeral scalar observation from a sensor/equipment/detector.
// Params: entity and zone identity, metric kind, value with unit, and unix-ms timestamp.
// Returns: validated input consumed once by the classifier; never persisted on its own.
type Reading struct {
	SourceID string  `json:"source_id"`
	ZoneID   string  `json:"zone_id"`
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
	DT       int64   `json:"dt"`
}

// Time converts milliseconds unix timestamp into UTC time.
// Params: none.
// Returns: converted UTC observation time.
func (r Reading) Time() time.Time {
	return time.UnixMilli(r.DT).UTC()
}

// Validate checks one reading against the ingest contract.
// Params: reading fields parsed from transport.
// Returns: validation error when the schema is violated.
func (r Reading) Validate() error {
	if strings.TrimSpace(r.SourceID) == "" {
		return errors.New("source_id is required")
	}
	if strings.TrimSpace(r.ZoneID) == "" {
		return errors.New("zone_id is required")
	}
	if strings.TrimSpace(r.Metric) == "" {
		return errors.New("metric is required")
	}
	if r.DT <= 0 {
		return errors.New("dt must be >0")
	}
	return nil
}

// DecodeReading decodes and validates one reading payload.
// Params: JSON document bytes.
// Returns: validated reading or decode/validation error.
func DecodeReading(raw []byte) (Reading, error) {
	var reading Reading
	if err := json.Unmarshal(raw, &reading); err != nil {
		return Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	if err := reading.Validate(); err != nil {
		return Reading{}, err
	}
	return reading, nil
}

// DecodeReadingsReader decodes and validates one batch of readings from stream.
// Params: reader positioned at one JSON array of readings.
// Returns: validated readings slice or decode/validation error.
func DecodeReadingsReader(reader *json.Decoder) ([]Reading, error) {
	var readings []Reading
	if err := reader.Decode(&readings); err != nil {
		return nil, fmt.Errorf("decode reading batch: %w", err)
	}
	if len(readings) == 0 {
		return nil, errors.New("reading batch must contain at least one reading")
	}
	for i := range readings {
		if err := readings[i].Validate(); err != nil {
			return nil, fmt.Errorf("reading[%d]: %w", i, err)
		}
	}
	return readings, nil
}
