package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/qraat/qraat/internal/geo"
	"github.com/qraat/qraat/internal/track"
)

// ReplaceTrack deletes the stored track of a deployment between the first
// and last timestamps of points and inserts points in its place.
func (db *DB) ReplaceTrack(ctx context.Context, deploymentID int, points []track.Point) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t0, t1 := points[0].Timestamp, points[len(points)-1].Timestamp
	res, err := tx.ExecContext(ctx, `
		DELETE FROM track_pos WHERE deployment_id = ? AND timestamp >= ? AND timestamp <= ?`,
		deploymentID, t0, t1)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("replaced %d track points of deployment %d in [%.1f, %.1f]", n, deploymentID, t0, t1)
	}
	for _, p := range points {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO track_pos (position_id, deployment_id, timestamp) VALUES (?, ?, ?)`,
			p.PositionID, deploymentID, p.Timestamp); err != nil {
			return fmt.Errorf("failed to insert track point %d: %w", p.PositionID, err)
		}
	}
	return tx.Commit()
}

// ReadTrack returns the stored track of a deployment with
// t0 <= timestamp <= t1, in time order.
func (db *DB) ReadTrack(ctx context.Context, deploymentID int, t0, t1 float64) ([]track.Point, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT t.position_id, t.timestamp, p.easting, p.northing, p.likelihood, p.activity
		  FROM track_pos t
		  JOIN position p ON p.id = t.position_id
		 WHERE t.deployment_id = ? AND t.timestamp >= ? AND t.timestamp <= ?
		 ORDER BY t.timestamp`, deploymentID, t0, t1)
	if err != nil {
		return nil, fmt.Errorf("failed to read track of deployment %d: %w", deploymentID, err)
	}
	defer rows.Close()

	var out []track.Point
	for rows.Next() {
		var p track.Point
		var e, n, ll sql.NullFloat64
		if err := rows.Scan(&p.PositionID, &p.Timestamp, &e, &n, &ll, &p.Activity); err != nil {
			return nil, err
		}
		p.P = geo.Point(e.Float64, n.Float64)
		p.Likelihood = ll.Float64
		out = append(out, p)
	}
	return out, rows.Err()
}
