package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/patrickoleary/vtkapi-mcp/pkg/postgres"
)

// Store persists aggregated statistics snapshots in PostgreSQL, one JSONB
// row per snapshot.
type Store struct {
	db     *postgres.Client
	table  string
	logger *slog.Logger
}

func NewStore(db *postgres.Client, table string) *Store {
	if table == "" {
		table = "validation_snapshots"
	}
	return &Store{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// EnsureSchema creates the snapshot table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.DB.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          BIGSERIAL PRIMARY KEY,
	data        JSONB NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, s.table))
	if err != nil {
		return fmt.Errorf("creating snapshot table: %w", err)
	}
	return nil
}

func (s *Store) SaveSnapshot(ctx context.Context, stats AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (data, captured_at) VALUES ($1, $2)`, s.table),
		data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved", "total_validations", stats.TotalValidations)
	return nil
}

// LatestSnapshot returns nil, nil when no snapshot exists yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*AggregatedStats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s ORDER BY captured_at DESC LIMIT 1`, s.table),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var stats AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// StartPeriodicSave snapshots agg every interval, and once more on shutdown.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *Aggregator, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.SaveSnapshot(shutdownCtx, agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
