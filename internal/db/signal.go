package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/qraat/qraat/internal/monitoring"
	"github.com/qraat/qraat/internal/signal"
)

var log = monitoring.Component("db")

var (
	steeringColumns = columnPairs("sv%d", signal.NumChannels)
	signalColumns   = columnPairs("ed%d", signal.NumChannels)
	noiseColumns    = noiseColumnPairs()
)

// columnPairs returns "x1r, x1i, x2r, ..." for n channels.
func columnPairs(format string, n int) string {
	cols := make([]string, 0, 2*n)
	for i := 1; i <= n; i++ {
		c := fmt.Sprintf(format, i)
		cols = append(cols, c+"r", c+"i")
	}
	return strings.Join(cols, ", ")
}

func noiseColumnPairs() string {
	cols := make([]string, 0, 2*signal.NumChannels*signal.NumChannels)
	for i := 1; i <= signal.NumChannels; i++ {
		for j := 1; j <= signal.NumChannels; j++ {
			c := fmt.Sprintf("nc%d%d", i, j)
			cols = append(cols, c+"r", c+"i")
		}
	}
	return strings.Join(cols, ", ")
}

// InsertSteeringRows stores the calibration of one site.
func (db *DB) InsertSteeringRows(ctx context.Context, calID, siteID int, rows []signal.SteeringRow) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO steering_vectors (site_id, cal_id, bearing, `+
		steeringColumns+`) VALUES (`+placeholders(3+2*signal.NumChannels)+`)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		args := []any{siteID, calID, row.Bearing}
		for _, v := range row.Vector {
			args = append(args, real(v), imag(v))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert steering vector for site %d bearing %v: %w", siteID, row.Bearing, err)
		}
	}
	return tx.Commit()
}

// ReadSteeringTable loads calibration calID for siteIDs, or for every
// site with rows under calID when siteIDs is empty. Sites without rows or
// with a malformed calibration are left out of the table and logged.
func (db *DB) ReadSteeringTable(ctx context.Context, calID int, siteIDs ...int) (*signal.SteeringTable, error) {
	if len(siteIDs) == 0 {
		rows, err := db.QueryContext(ctx, `SELECT DISTINCT site_id FROM steering_vectors WHERE cal_id = ? ORDER BY site_id`, calID)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			siteIDs = append(siteIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	table := signal.NewSteeringTable(calID)
	for _, siteID := range siteIDs {
		rows, err := db.readSteeringRows(ctx, calID, siteID)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			log.Printf("site %d has no steering vectors for calibration %d", siteID, calID)
			continue
		}
		if err := table.AddSite(siteID, rows); err != nil {
			log.Printf("dropping site: %v", err)
		}
	}
	return table, nil
}

func (db *DB) readSteeringRows(ctx context.Context, calID, siteID int) ([]signal.SteeringRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, bearing, `+steeringColumns+`
		  FROM steering_vectors
		 WHERE site_id = ? AND cal_id = ?
		 ORDER BY bearing`, siteID, calID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []signal.SteeringRow
	for rows.Next() {
		var row signal.SteeringRow
		var parts [2 * signal.NumChannels]float64
		dest := []any{&row.ID, &row.Bearing}
		for i := range parts {
			dest = append(dest, &parts[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for ch := range row.Vector {
			row.Vector[ch] = complex(parts[2*ch], parts[2*ch+1])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// InsertPulses stores pulses for a deployment and returns their IDs. The
// signal vector is stored conjugated, the way the detector records it.
func (db *DB) InsertPulses(ctx context.Context, deploymentID int, pulses []signal.Pulse) ([]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	n := 5 + 2*signal.NumChannels + 2*signal.NumChannels*signal.NumChannels
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO est (deployment_id, site_id, timestamp, edsp, `+
		signalColumns+`, tnp, `+noiseColumns+`) VALUES (`+placeholders(n)+`)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(pulses))
	for _, p := range pulses {
		args := make([]any, 0, n)
		args = append(args, deploymentID, p.SiteID, p.Timestamp, p.Power)
		for _, v := range p.Signal {
			args = append(args, real(v), -imag(v))
		}
		args = append(args, p.NoisePower)
		for i := range p.NoiseCov {
			for _, v := range p.NoiseCov[i] {
				args = append(args, real(v), imag(v))
			}
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to insert pulse at site %d t=%v: %w", p.SiteID, p.Timestamp, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, tx.Commit()
}

// InsertScore records the filter score of a pulse.
func (db *DB) InsertScore(ctx context.Context, estID int64, score, theoretical float64) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO estscore (est_id, score, theoretical_score) VALUES (?, ?, ?)`,
		estID, score, theoretical)
	return err
}

// ReadPulses returns the pulses of a deployment with t0 <= timestamp <= t1
// in timestamp order. When threshold is set, only pulses with a score and
// score / theoretical_score >= *threshold are returned.
func (db *DB) ReadPulses(ctx context.Context, deploymentID int, t0, t1 float64, threshold *float64) ([]signal.Pulse, error) {
	query := `SELECT est.id, site_id, timestamp, edsp, ` + signalColumns + `, tnp, ` + noiseColumns + `
		  FROM est`
	args := []any{deploymentID, t0, t1}
	if threshold != nil {
		query += ` JOIN estscore ON est.id = estscore.est_id`
	}
	query += `
		 WHERE deployment_id = ? AND timestamp >= ? AND timestamp <= ?`
	if threshold != nil {
		query += ` AND (score / theoretical_score) >= ?`
		args = append(args, *threshold)
	}
	query += ` ORDER BY timestamp, est.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read pulses of deployment %d: %w", deploymentID, err)
	}
	defer rows.Close()

	var out []signal.Pulse
	for rows.Next() {
		var p signal.Pulse
		var ed [2 * signal.NumChannels]float64
		var nc [2 * signal.NumChannels * signal.NumChannels]float64
		dest := []any{&p.ID, &p.SiteID, &p.Timestamp, &p.Power}
		for i := range ed {
			dest = append(dest, &ed[i])
		}
		dest = append(dest, &p.NoisePower)
		for i := range nc {
			dest = append(dest, &nc[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for ch := range p.Signal {
			p.Signal[ch] = complex(ed[2*ch], -ed[2*ch+1])
		}
		for i := 0; i < signal.NumChannels; i++ {
			for j := 0; j < signal.NumChannels; j++ {
				k := 2 * (i*signal.NumChannels + j)
				p.NoiseCov[i][j] = complex(nc[k], nc[k+1])
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
