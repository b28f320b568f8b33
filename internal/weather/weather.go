package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/panoptes/pocs-core/internal/infrastructure/config"
	"github.com/panoptes/pocs-core/internal/infrastructure/database"
	"github.com/panoptes/pocs-core/internal/infrastructure/influxdb"
)

// Record is one weather verdict.
type Record struct {
	Safe      bool      `json:"safe"`
	Timestamp time.Time `json:"timestamp"`
}

// Age returns how old the record is at now.
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp)
}

// Stale reports whether the record is older than threshold at now.
func (r Record) Stale(now time.Time, threshold time.Duration) bool {
	return r.Age(now) > threshold
}

// Store is read-only access to weather records.
type Store interface {
	// Reachable returns ErrUnreachable when the store cannot be contacted.
	Reachable(ctx context.Context) error

	// Latest returns the most recent record, ErrNoRecord when there is
	// none, or ErrDecode when it cannot be interpreted.
	Latest(ctx context.Context) (Record, error)
}

// Open returns the store selected by cfg. influx may be nil unless the
// InfluxDB store is selected.
func Open(cfg config.WeatherConfig, influx *influxdb.Client, db *database.DB) (Store, error) {
	switch cfg.Store {
	case config.WeatherStoreInfluxDB:
		if influx == nil {
			return nil, fmt.Errorf("%w: influxdb store selected but no client", ErrUnreachable)
		}
		return NewInfluxStore(influx, cfg.Measurement), nil
	case config.WeatherStoreSQLite, "":
		if db == nil {
			return nil, fmt.Errorf("%w: sqlite store selected but no database", ErrUnreachable)
		}
		return NewSQLiteStore(db.DB), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Store)
	}
}
