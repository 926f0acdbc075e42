package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Run kinds.
const (
	RunPosition = "position"
	RunTrack    = "track"
	RunSimulate = "simulate"
)

// Run is one row of estimation_run. Finished is zero while the run is open.
type Run struct {
	ID           string
	DeploymentID int
	Kind         string
	Params       string
	Started      time.Time
	Finished     time.Time
}

// Duration returns how long a finished run took.
func (r *Run) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

func fromUnixSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// StartRun records a new estimation run and returns its ID. params is
// stored as given, normally the JSON of the tuning config.
func (db *DB) StartRun(ctx context.Context, deploymentID int, kind string, params []byte) (string, error) {
	id := uuid.NewString()
	if params == nil {
		params = []byte("{}")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO estimation_run (id, deployment_id, kind, params_json, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, deploymentID, kind, string(params), unixSeconds(db.Clock.Now()))
	if err != nil {
		return "", fmt.Errorf("failed to start %s run: %w", kind, err)
	}
	return id, nil
}

// FinishRun stamps the end time of run id.
func (db *DB) FinishRun(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `UPDATE estimation_run SET finished_at = ? WHERE id = ?`,
		unixSeconds(db.Clock.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// ReadRun returns run id.
func (db *DB) ReadRun(ctx context.Context, id string) (*Run, error) {
	var (
		r        Run
		started  float64
		finished sql.NullFloat64
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, deployment_id, kind, params_json, started_at, finished_at
		FROM estimation_run WHERE id = ?`, id).
		Scan(&r.ID, &r.DeploymentID, &r.Kind, &r.Params, &started, &finished)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, notFound(err))
	}
	r.Started = fromUnixSeconds(started)
	if finished.Valid {
		r.Finished = fromUnixSeconds(finished.Float64)
	}
	return &r, nil
}
