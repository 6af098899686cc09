// Package storage handles database connections, schema migrations, and the
// append-only metric sample series using SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/iwpg/orbit/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New initializes a new SQLite connection, sets connection pool parameters,
// and runs migrations. WAL mode keeps history reads from blocking cycle writes.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// AppendSamples writes all samples of one poll cycle in a single transaction
// so a crash cannot leave a cycle half-recorded.
func (r *Repository) AppendSamples(samples []models.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin sample batch: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO samples (
			ts, instance_id, instance_name,
			players, max_players, queue,
			cpu_percent, memory_mb, memory_max_mb
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare sample insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range samples {
		if _, err := stmt.Exec(
			s.Timestamp.UnixMilli(), s.InstanceID, s.InstanceName,
			s.Players, s.MaxPlayers, s.Queue,
			s.CPUPercent, s.MemoryValue, s.MemoryMax,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert sample for %s: %w", s.InstanceID, err)
		}
	}

	return tx.Commit()
}

// Prune deletes samples older than the retention window and returns the
// number of deleted rows.
func (r *Repository) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()

	res, err := r.db.Exec(`DELETE FROM samples WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// History returns all samples for one instance since the given time, in
// chronological order.
func (r *Repository) History(instanceID string, since time.Time) ([]models.Sample, error) {
	rows, err := r.db.Query(`
		SELECT ts, instance_id, instance_name, players, max_players, queue,
		       cpu_percent, memory_mb, memory_max_mb
		FROM samples
		WHERE instance_id = ? AND ts >= ?
		ORDER BY ts ASC
	`, instanceID, since.UnixMilli())
	if err != nil {
		return nil, err
	}

	return scanSamples(rows)
}

// AllSeries returns every instance's samples since the given time, grouped by
// instance with each group's times/players/cpu/memory arrays aligned by index
// and in chronological order. Memory is reported as a percentage of the
// instance's configured maximum when known.
func (r *Repository) AllSeries(since time.Time) (map[string]*models.Series, error) {
	rows, err := r.db.Query(`
		SELECT ts, instance_id, instance_name, players, max_players, queue,
		       cpu_percent, memory_mb, memory_max_mb
		FROM samples
		WHERE ts >= ?
		ORDER BY ts ASC
	`, since.UnixMilli())
	if err != nil {
		return nil, err
	}

	samples, err := scanSamples(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*models.Series)
	for _, s := range samples {
		series, found := out[s.InstanceID]
		if !found {
			series = &models.Series{Name: s.InstanceName}
			out[s.InstanceID] = series
		}

		series.Times = append(series.Times, s.Timestamp.UnixMilli())
		series.Players = append(series.Players, s.Players)
		series.CPU = append(series.CPU, math.Round(s.CPUPercent*10)/10)

		memPct := 0.0
		if s.MemoryMax > 0 {
			memPct = math.Round(s.MemoryValue / s.MemoryMax * 100)
		}
		series.Memory = append(series.Memory, memPct)
	}

	return out, nil
}

// CountSamples returns the total number of persisted rows.
func (r *Repository) CountSamples() (int64, error) {
	var n int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n)

	return n, err
}

// OldestSample returns the timestamp of the oldest row, or the zero time when
// the table is empty.
func (r *Repository) OldestSample() (time.Time, error) {
	var ts sql.NullInt64
	if err := r.db.QueryRow(`SELECT MIN(ts) FROM samples`).Scan(&ts); err != nil {
		return time.Time{}, err
	}
	if !ts.Valid {
		return time.Time{}, nil
	}

	return time.UnixMilli(ts.Int64), nil
}

func scanSamples(rows *sql.Rows) ([]models.Sample, error) {
	defer func() { _ = rows.Close() }()

	var samples []models.Sample
	for rows.Next() {
		var s models.Sample
		var ts int64
		if err := rows.Scan(
			&ts, &s.InstanceID, &s.InstanceName, &s.Players, &s.MaxPlayers, &s.Queue,
			&s.CPUPercent, &s.MemoryValue, &s.MemoryMax,
		); err != nil {
			return nil, err
		}
		s.Timestamp = time.UnixMilli(ts)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}
