package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/miradorstack/netpulse/internal/models"
	"github.com/miradorstack/netpulse/internal/utils"
)

// DefaultTable is the table created by the bundled migrations.
const DefaultTable = "performance_data"

const sampleColumns = "id, node_id, network_id, latency, throughput, error_rate, recorded_at"

// PostgresStore persists samples through database/sql.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{db: db, table: table}
}

// Save inserts the sample and returns it with the generated ID.
func (s *PostgresStore) Save(ctx context.Context, sample models.PerformanceSample) (models.PerformanceSample, error) {
	query := fmt.Sprintf(
		"INSERT INTO %s (node_id, network_id, latency, throughput, error_rate, recorded_at) VALUES ($1,$2,$3,$4,$5,$6) RETURNING id",
		s.table,
	)
	err := s.db.QueryRowContext(ctx, query,
		sample.NodeID,
		sample.NetworkID,
		sample.Latency,
		sample.Throughput,
		sample.ErrorRate,
		sample.Timestamp.UTC(),
	).Scan(&sample.ID)
	if err != nil {
		return sample, utils.NewAppError("repo.PostgresStore.Save", utils.KindPersistence, "insert sample", err)
	}
	return sample, nil
}

// FindAll returns every sample ordered by timestamp.
func (s *PostgresStore) FindAll(ctx context.Context) ([]models.PerformanceSample, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY recorded_at", sampleColumns, s.table)
	return s.query(ctx, "repo.PostgresStore.FindAll", query)
}

// FindAfter returns samples recorded strictly after t.
func (s *PostgresStore) FindAfter(ctx context.Context, t time.Time) ([]models.PerformanceSample, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE recorded_at > $1 ORDER BY recorded_at", sampleColumns, s.table)
	return s.query(ctx, "repo.PostgresStore.FindAfter", query, t.UTC())
}

// Count reports the number of stored samples.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, utils.NewAppError("repo.PostgresStore.Count", utils.KindPersistence, "count samples", err)
	}
	return n, nil
}

func (s *PostgresStore) query(ctx context.Context, op, query string, args ...any) ([]models.PerformanceSample, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewAppError(op, utils.KindPersistence, "query samples", err)
	}
	defer rows.Close()

	out := make([]models.PerformanceSample, 0)
	for rows.Next() {
		var sample models.PerformanceSample
		if err := rows.Scan(
			&sample.ID,
			&sample.NodeID,
			&sample.NetworkID,
			&sample.Latency,
			&sample.Throughput,
			&sample.ErrorRate,
			&sample.Timestamp,
		); err != nil {
			return nil, utils.NewAppError(op, utils.KindPersistence, "scan sample", err)
		}
		sample.Timestamp = sample.Timestamp.UTC()
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError(op, utils.KindPersistence, "iterate samples", err)
	}
	return out, nil
}

var _ SampleStore = (*PostgresStore)(nil)
