package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/qraat/qraat/internal/covariance"
	"github.com/qraat/qraat/internal/geo"
	"github.com/qraat/qraat/internal/position"
	"github.com/qraat/qraat/internal/track"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PositionRow is a stored position. Fix is nil for windows without a fix
// and Likelihood is NaN in that case.
type PositionRow struct {
	ID           int64
	RunID        string
	DeploymentID int
	Timestamp    float64
	Start, End   float64
	Fix          *complex128
	Zone         geo.Zone
	Likelihood   float64
	Activity     float64
	NumSites     int
	NumPulses    int
}

// Point returns the row as a track point. It must only be called on rows
// with a fix.
func (r *PositionRow) Point() track.Point {
	return track.Point{
		PositionID: r.ID,
		Timestamp:  r.Timestamp,
		P:          *r.Fix,
		Likelihood: r.Likelihood,
		Activity:   r.Activity,
	}
}

// InsertBearings stores the per-site bearing summaries of a position and
// returns their IDs in site order.
func (db *DB) InsertBearings(ctx context.Context, runID string, pos *position.Position) ([]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	ids, err := insertBearings(ctx, tx, runID, pos)
	if err != nil {
		return nil, err
	}
	return ids, tx.Commit()
}

func insertBearings(ctx context.Context, ex execer, runID string, pos *position.Position) ([]int64, error) {
	siteIDs := make([]int, 0, len(pos.Bearings))
	for id := range pos.Bearings {
		siteIDs = append(siteIDs, id)
	}
	sort.Ints(siteIDs)

	ids := make([]int64, 0, len(siteIDs))
	for _, siteID := range siteIDs {
		b := pos.Bearings[siteID]
		res, err := ex.ExecContext(ctx, `
			INSERT INTO bearing (run_id, deployment_id, site_id, timestamp, bearing, likelihood, activity, number_est_used)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, pos.DeploymentID, siteID, pos.Timestamp, b.Bearing, b.Likelihood, b.Activity, b.NumPulses)
		if err != nil {
			return nil, fmt.Errorf("failed to insert bearing for site %d: %w", siteID, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// InsertPosition stores a position with its bearings and links the two
// for provenance. Windows without a fix are stored with NULL coordinates,
// and latitude/longitude are NULL when the fix is outside the UTM grid.
func (db *DB) InsertPosition(ctx context.Context, runID string, pos *position.Position, zone geo.Zone) (int64, error) {
	var easting, northing, lat, lon, ll *float64
	if pos.HasFix() {
		e, n := pos.Easting(), pos.Northing()
		easting, northing, ll = &e, &n, &pos.Likelihood
		if la, lo, err := geo.ToLatLon(e, n, zone); err == nil {
			lat, lon = &la, &lo
		} else {
			log.Debugf("no lat/lon for t=%.1f: %v", pos.Timestamp, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	bearingIDs, err := insertBearings(ctx, tx, runID, pos)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO position (run_id, deployment_id, timestamp, window_start, window_end,
		                      easting, northing, latitude, longitude, utm_zone_number, utm_zone_letter,
		                      likelihood, activity, number_sites, number_est_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, pos.DeploymentID, pos.Timestamp, pos.Start, pos.End,
		nullFloat(easting), nullFloat(northing), nullFloat(lat), nullFloat(lon), zone.Number, zone.Letter,
		nullFloat(ll), pos.Activity, pos.NumSites, pos.NumPulses)
	if err != nil {
		return 0, fmt.Errorf("failed to insert position at t=%.1f: %w", pos.Timestamp, err)
	}
	posID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, bid := range bearingIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO position_bearing (position_id, bearing_id) VALUES (?, ?)`, posID, bid); err != nil {
			return 0, fmt.Errorf("failed to link position %d: %w", posID, err)
		}
	}
	return posID, tx.Commit()
}

// PositionBearings returns the bearing IDs a position was computed from.
func (db *DB) PositionBearings(ctx context.Context, positionID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT bearing_id FROM position_bearing WHERE position_id = ? ORDER BY bearing_id`, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ReadPositions returns the positions of a deployment with
// t0 <= timestamp <= t1, including windows without a fix.
func (db *DB) ReadPositions(ctx context.Context, deploymentID int, t0, t1 float64) ([]PositionRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, run_id, timestamp, window_start, window_end, easting, northing,
		       utm_zone_number, utm_zone_letter, likelihood, activity, number_sites, number_est_used
		  FROM position
		 WHERE deployment_id = ? AND timestamp >= ? AND timestamp <= ?
		 ORDER BY timestamp, id`, deploymentID, t0, t1)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions of deployment %d: %w", deploymentID, err)
	}
	defer rows.Close()

	var out []PositionRow
	for rows.Next() {
		r := PositionRow{DeploymentID: deploymentID}
		var e, n, ll sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.RunID, &r.Timestamp, &r.Start, &r.End, &e, &n,
			&r.Zone.Number, &r.Zone.Letter, &ll, &r.Activity, &r.NumSites, &r.NumPulses); err != nil {
			return nil, err
		}
		r.Likelihood = math.NaN()
		if e.Valid && n.Valid {
			p := geo.Point(e.Float64, n.Float64)
			r.Fix = &p
		}
		if ll.Valid {
			r.Likelihood = ll.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReadTrackPoints returns the fixed positions of a deployment with
// t0 <= timestamp <= t1 as track input.
func (db *DB) ReadTrackPoints(ctx context.Context, deploymentID int, t0, t1 float64) ([]track.Point, error) {
	rows, err := db.ReadPositions(ctx, deploymentID, t0, t1)
	if err != nil {
		return nil, err
	}
	var out []track.Point
	for i := range rows {
		if rows[i].Fix != nil {
			out = append(out, rows[i].Point())
		}
	}
	return out, nil
}

// InsertCovariance stores the covariance of a position. Failed estimates
// are stored too, with their status and NULL values.
func (db *DB) InsertCovariance(ctx context.Context, positionID int64, r *covariance.Result) (int64, error) {
	var c [4]sql.NullFloat64
	if r.C != nil {
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				c[2*i+j] = sql.NullFloat64{Float64: r.C.At(i, j), Valid: true}
			}
		}
	}
	var l1, l2, alpha sql.NullFloat64
	if r.Status == covariance.StatusOK {
		l1 = sql.NullFloat64{Float64: r.Lambda1, Valid: true}
		l2 = sql.NullFloat64{Float64: r.Lambda2, Valid: true}
		alpha = sql.NullFloat64{Float64: r.Alpha, Valid: true}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO covariance (position_id, status, method, cov11, cov12, cov21, cov22, lambda1, lambda2, alpha, samples)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		positionID, string(r.Status), r.Method, c[0], c[1], c[2], c[3], l1, l2, alpha, r.Samples)
	if err != nil {
		return 0, fmt.Errorf("failed to insert covariance of position %d: %w", positionID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, level := range r.Levels() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO covariance_level (covariance_id, level, w) VALUES (?, ?, ?)`,
			id, level, r.W[level]); err != nil {
			return 0, fmt.Errorf("failed to insert covariance level %v: %w", level, err)
		}
	}
	return id, tx.Commit()
}

// ReadCovariances returns the covariances of positions of a deployment
// with t0 <= timestamp <= t1, keyed by position ID.
func (db *DB) ReadCovariances(ctx context.Context, deploymentID int, t0, t1 float64) (map[int64]*covariance.Result, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.id, c.position_id, c.status, c.method, c.cov11, c.cov12, c.cov21, c.cov22,
		       c.lambda1, c.lambda2, c.alpha, c.samples, p.easting, p.northing
		  FROM covariance c
		  JOIN position p ON p.id = c.position_id
		 WHERE p.deployment_id = ? AND p.timestamp >= ? AND p.timestamp <= ?
		 ORDER BY p.timestamp, c.id`, deploymentID, t0, t1)
	if err != nil {
		return nil, fmt.Errorf("failed to read covariances of deployment %d: %w", deploymentID, err)
	}

	out := make(map[int64]*covariance.Result)
	byID := make(map[int64]*covariance.Result)
	for rows.Next() {
		var id, posID int64
		var status string
		r := &covariance.Result{W: make(map[float64]float64)}
		var c [4]sql.NullFloat64
		var l1, l2, alpha, e, n sql.NullFloat64
		if err := rows.Scan(&id, &posID, &status, &r.Method, &c[0], &c[1], &c[2], &c[3],
			&l1, &l2, &alpha, &r.Samples, &e, &n); err != nil {
			rows.Close()
			return nil, err
		}
		r.Status = covariance.Status(status)
		if e.Valid && n.Valid {
			r.Center = geo.Point(e.Float64, n.Float64)
		}
		if c[0].Valid {
			r.C = mat.NewSymDense(2, []float64{c[0].Float64, c[1].Float64, c[2].Float64, c[3].Float64})
		}
		r.Lambda1, r.Lambda2, r.Alpha = l1.Float64, l2.Float64, alpha.Float64
		out[posID] = r
		byID[id] = r
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for id, r := range byID {
		levels, err := db.QueryContext(ctx, `SELECT level, w FROM covariance_level WHERE covariance_id = ?`, id)
		if err != nil {
			return nil, err
		}
		for levels.Next() {
			var level, w float64
			if err := levels.Scan(&level, &w); err != nil {
				levels.Close()
				return nil, err
			}
			r.W[level] = w
		}
		levels.Close()
		if err := levels.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
