package store

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Meta is a time-series metadata document. Timestamps are kept raw so that
// callers can tell a datetime from a wrongly typed value.
type Meta struct {
	ID         string          `bson:"_id"`
	DataType   string          `bson:"data_type,omitempty"`
	Timeseries []bson.RawValue `bson:"timeseries"`
}

// SeriesEntry is the per-series record kept in the rate limiter summary.
type SeriesEntry struct {
	MetaGroups []string `bson:"metagroups"`
	StartDate  *string  `bson:"startDate"`
	EndDate    *string  `bson:"endDate"`
}

// Summary is a summary document. Entries under metadata and any other
// top-level fields are carried as-is so that a rewrite only touches the
// entry that was set.
type Summary struct {
	ID       string              `bson:"_id"`
	Metadata map[string]bson.Raw `bson:"metadata"`
	Extra    bson.M              `bson:",inline"`
}

// NewSummary returns an empty summary document.
func NewSummary(id string) *Summary {
	return &Summary{ID: id, Metadata: map[string]bson.Raw{}}
}

// Set replaces the entry of one series, leaving the others untouched.
func (s *Summary) Set(seriesID string, e SeriesEntry) error {
	if e.MetaGroups == nil {
		e.MetaGroups = []string{}
	}
	b, err := bson.Marshal(e)
	if err != nil {
		return err
	}
	if s.Metadata == nil {
		s.Metadata = map[string]bson.Raw{}
	}
	s.Metadata[seriesID] = b
	return nil
}

// Entry decodes the entry of one series.
func (s *Summary) Entry(seriesID string) (SeriesEntry, bool, error) {
	var e SeriesEntry
	raw, ok := s.Metadata[seriesID]
	if !ok {
		return e, false, nil
	}
	if err := bson.Unmarshal(raw, &e); err != nil {
		return e, true, err
	}
	return e, true, nil
}

// GridPoint is the record of one grid cell: its measurements over time.
type GridPoint struct {
	ID          string       `bson:"_id"`
	Metadata    []string     `bson:"metadata,omitempty"`
	Basin       int          `bson:"basin,omitempty"`
	Geolocation *Geolocation `bson:"geolocation,omitempty"`
	Data        [][]float64  `bson:"data"`
}

// Geolocation is a GeoJSON point.
type Geolocation struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

// Value returns the measurement of the given series at time step t.
func (p *GridPoint) Value(series, t int) (float64, bool) {
	if series < 0 || series >= len(p.Data) {
		return 0, false
	}
	if t < 0 || t >= len(p.Data[series]) {
		return 0, false
	}
	return p.Data[series][t], true
}
