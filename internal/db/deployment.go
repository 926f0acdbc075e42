package db

import (
	"context"
	"fmt"

	"github.com/qraat/qraat/internal/config"
)

// SaveDeployment stores a deployment, its target and its sites,
// replacing any rows with the same IDs. Sites outside the deployment's
// zone are rejected with geo.ErrZoneMismatch.
func (db *DB) SaveDeployment(ctx context.Context, d *config.Deployment) error {
	if err := d.CheckZones(); err != nil {
		return fmt.Errorf("deployment %d: %w", d.ID, err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO target (id, name, max_speed_family, speed_burst, speed_sustained, speed_limit)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			max_speed_family = excluded.max_speed_family,
			speed_burst = excluded.speed_burst,
			speed_sustained = excluded.speed_sustained,
			speed_limit = excluded.speed_limit`,
		d.ID, d.Target.Name, d.Target.MaxSpeedFamily, d.Target.SpeedBurst, d.Target.SpeedSustained, d.Target.SpeedLimit)
	if err != nil {
		return fmt.Errorf("failed to save target: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO deployment (id, cal_id, target_id, utm_zone_number, utm_zone_letter)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			cal_id = excluded.cal_id,
			target_id = excluded.target_id,
			utm_zone_number = excluded.utm_zone_number,
			utm_zone_letter = excluded.utm_zone_letter`,
		d.ID, d.CalibrationID, d.ID, d.ZoneNumber, d.ZoneLetter)
	if err != nil {
		return fmt.Errorf("failed to save deployment %d: %w", d.ID, err)
	}
	for _, s := range d.Sites {
		z := d.SiteZone(s)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO site (id, name, easting, northing, utm_zone_number, utm_zone_letter)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name, easting = excluded.easting, northing = excluded.northing,
				utm_zone_number = excluded.utm_zone_number, utm_zone_letter = excluded.utm_zone_letter`,
			s.ID, s.Name, s.Easting, s.Northing, z.Number, z.Letter)
		if err != nil {
			return fmt.Errorf("failed to save site %d: %w", s.ID, err)
		}
	}
	return tx.Commit()
}

// ReadDeployment loads deployment id with its target and every site. It
// fails with geo.ErrZoneMismatch when a stored site lies in another zone.
func (db *DB) ReadDeployment(ctx context.Context, id int) (*config.Deployment, error) {
	d := &config.Deployment{ID: id}
	err := db.QueryRowContext(ctx, `
		SELECT d.cal_id, d.utm_zone_number, d.utm_zone_letter,
		       t.name, t.max_speed_family, t.speed_burst, t.speed_sustained, t.speed_limit
		  FROM deployment d
		  JOIN target t ON t.id = d.target_id
		 WHERE d.id = ?`, id).Scan(
		&d.CalibrationID, &d.ZoneNumber, &d.ZoneLetter,
		&d.Target.Name, &d.Target.MaxSpeedFamily, &d.Target.SpeedBurst, &d.Target.SpeedSustained, &d.Target.SpeedLimit)
	if err != nil {
		return nil, fmt.Errorf("deployment %d: %w", id, notFound(err))
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, easting, northing, utm_zone_number, utm_zone_letter
		  FROM site ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s config.SiteConfig
		if err := rows.Scan(&s.ID, &s.Name, &s.Easting, &s.Northing, &s.ZoneNumber, &s.ZoneLetter); err != nil {
			return nil, err
		}
		d.Sites = append(d.Sites, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := d.CheckZones(); err != nil {
		return nil, fmt.Errorf("deployment %d: %w", id, err)
	}
	return d, nil
}
