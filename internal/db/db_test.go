package db

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/mat"

	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/covariance"
	"github.com/qraat/qraat/internal/geo"
	"github.com/qraat/qraat/internal/position"
	"github.com/qraat/qraat/internal/signal"
	"github.com/qraat/qraat/internal/testutil"
	"github.com/qraat/qraat/internal/timeutil"
	"github.com/qraat/qraat/internal/track"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "qraat.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testDeployment() *config.Deployment {
	return &config.Deployment{
		ID:            1,
		CalibrationID: 1,
		ZoneNumber:    10,
		ZoneLetter:    "S",
		Sites: []config.SiteConfig{
			{ID: 1, Name: "north", Easting: 0, Northing: 0, ZoneNumber: 10, ZoneLetter: "S"},
			{ID: 2, Name: "east", Easting: 1000, Northing: 0, ZoneNumber: 10, ZoneLetter: "S"},
			{ID: 3, Name: "south", Easting: 500, Northing: 1000, ZoneNumber: 10, ZoneLetter: "S"},
		},
		Target: config.TargetConfig{Name: "fox", MaxSpeedFamily: "exp", SpeedBurst: 10, SpeedSustained: 1, SpeedLimit: 0.1},
	}
}

func seedDeployment(t *testing.T, db *DB) *config.Deployment {
	t.Helper()
	d := testDeployment()
	if err := db.SaveDeployment(context.Background(), d); err != nil {
		t.Fatalf("SaveDeployment failed: %v", err)
	}
	return d
}

func TestMigrations(t *testing.T) {
	db := setupTestDB(t)
	migrations, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}

	version, dirty, err := db.MigrateVersion(migrations)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 2 || dirty {
		t.Fatalf("version = %d dirty = %v, want 2 clean", version, dirty)
	}

	if err := db.MigrateDown(migrations); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	if version, _, _ = db.MigrateVersion(migrations); version != 1 {
		t.Fatalf("version after down = %d, want 1", version)
	}
	if err := db.MigrateUp(migrations); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if err := db.MigrateUp(migrations); err != nil {
		t.Fatalf("MigrateUp with no change failed: %v", err)
	}
}

func TestDeploymentRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	want := seedDeployment(t, db)

	got, err := db.ReadDeployment(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("ReadDeployment failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("deployment mismatch (-want +got):\n%s", diff)
	}

	if _, err := db.ReadDeployment(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadDeployment(99) error = %v, want ErrNotFound", err)
	}
}

func TestDeploymentZoneMismatch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	d := testDeployment()
	d.Sites[2].ZoneNumber = 11
	if err := db.SaveDeployment(ctx, d); !errors.Is(err, geo.ErrZoneMismatch) {
		t.Fatalf("SaveDeployment error = %v, want ErrZoneMismatch", err)
	}

	seedDeployment(t, db)
	if _, err := db.ExecContext(ctx, `
		INSERT INTO site (id, name, easting, northing, utm_zone_number, utm_zone_letter)
		VALUES (4, 'far', 0, 0, 11, 'S')`); err != nil {
		t.Fatalf("insert site failed: %v", err)
	}
	if _, err := db.ReadDeployment(ctx, 1); !errors.Is(err, geo.ErrZoneMismatch) {
		t.Errorf("ReadDeployment error = %v, want ErrZoneMismatch", err)
	}
}

func TestRuns(t *testing.T) {
	db := setupTestDB(t)
	seedDeployment(t, db)
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	db.Clock = clock

	id, err := db.StartRun(ctx, 1, RunPosition, []byte(`{"half_span":10}`))
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	run, err := db.ReadRun(ctx, id)
	if err != nil {
		t.Fatalf("ReadRun failed: %v", err)
	}
	if run.Kind != RunPosition || run.Params != `{"half_span":10}` {
		t.Errorf("run = %+v", run)
	}
	if !run.Started.Equal(start) || !run.Finished.IsZero() {
		t.Errorf("open run times = %v, %v", run.Started, run.Finished)
	}

	clock.Advance(90 * time.Second)
	if err := db.FinishRun(ctx, id); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	run, err = db.ReadRun(ctx, id)
	if err != nil {
		t.Fatalf("ReadRun failed: %v", err)
	}
	if got := run.Duration(); got != 90*time.Second {
		t.Errorf("Duration = %v, want 1m30s", got)
	}

	if _, err := db.ReadRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRun(missing) error = %v, want ErrNotFound", err)
	}
	if err := db.FinishRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishRun(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSteeringTableRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	seedDeployment(t, db)
	ctx := context.Background()

	rows := signal.CircularArrayRows(1)
	if err := db.InsertSteeringRows(ctx, 1, 1, rows); err != nil {
		t.Fatalf("InsertSteeringRows failed: %v", err)
	}
	// a partial calibration is dropped
	if err := db.InsertSteeringRows(ctx, 1, 2, rows[:10]); err != nil {
		t.Fatalf("InsertSteeringRows failed: %v", err)
	}

	table, err := db.ReadSteeringTable(ctx, 1)
	if err != nil {
		t.Fatalf("ReadSteeringTable failed: %v", err)
	}
	if diff := cmp.Diff([]int{1}, table.SiteIDs()); diff != "" {
		t.Fatalf("site IDs mismatch (-want +got):\n%s", diff)
	}
	site, _ := table.Site(1)
	for _, row := range rows {
		b := int(row.Bearing)
		if site.At(b) != row.Vector {
			t.Fatalf("bearing %d: got %v, want %v", b, site.At(b), row.Vector)
		}
		if site.RowID(b) == 0 {
			t.Fatalf("bearing %d has no row ID", b)
		}
	}

	table, err = db.ReadSteeringTable(ctx, 1, 3)
	if err != nil {
		t.Fatalf("ReadSteeringTable failed: %v", err)
	}
	if len(table.SiteIDs()) != 0 {
		t.Errorf("site 3 has no rows, got sites %v", table.SiteIDs())
	}
}

func TestPulsesRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	seedDeployment(t, db)
	ctx := context.Background()

	f := testutil.ThreeSiteFixture(t, 0.001, 2)
	pulses, err := f.Sim.Pulses(testutil.Transmitter, 0, 4)
	if err != nil {
		t.Fatalf("Pulses failed: %v", err)
	}
	ids, err := db.InsertPulses(ctx, 1, pulses)
	if err != nil {
		t.Fatalf("InsertPulses failed: %v", err)
	}

	// stored conjugated
	var im float64
	if err := db.QueryRow(`SELECT ed1i FROM est WHERE id = ?`, ids[0]).Scan(&im); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if im != -imag(pulses[0].Signal[0]) {
		t.Errorf("ed1i = %v, want %v", im, -imag(pulses[0].Signal[0]))
	}

	got, err := db.ReadPulses(ctx, 1, 0, 3, nil)
	if err != nil {
		t.Fatalf("ReadPulses failed: %v", err)
	}
	if len(got) != len(pulses) {
		t.Fatalf("read %d pulses, want %d (end inclusive)", len(got), len(pulses))
	}
	byID := make(map[int64]signal.Pulse)
	for _, p := range got {
		byID[p.ID] = p
	}
	for i, want := range pulses {
		p := byID[ids[i]]
		want.ID = ids[i]
		if diff := cmp.Diff(want, p); diff != "" {
			t.Fatalf("pulse %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp < got[i-1].Timestamp {
			t.Fatalf("pulses out of order at %d", i)
		}
	}

	got, err = db.ReadPulses(ctx, 1, 1, 2, nil)
	if err != nil {
		t.Fatalf("ReadPulses failed: %v", err)
	}
	if len(got) != 6 {
		t.Errorf("read %d pulses in [1, 2], want 6", len(got))
	}
}

func TestReadPulsesScoreThreshold(t *testing.T) {
	db := setupTestDB(t)
	seedDeployment(t, db)
	ctx := context.Background()

	f := testutil.ThreeSiteFixture(t, 0, 1)
	pulses, err := f.Sim.Pulses(testutil.Transmitter, 0, 2)
	if err != nil {
		t.Fatalf("Pulses failed: %v", err)
	}
	ids, err := db.InsertPulses(ctx, 1, pulses)
	if err != nil {
		t.Fatalf("InsertPulses failed: %v", err)
	}
	// first pulse scores 0.9, second 0.1, the rest are unscored
	if err := db.InsertScore(ctx, ids[0], 9, 10); err != nil {
		t.Fatalf("InsertScore failed: %v", err)
	}
	if err := db.InsertScore(ctx, ids[1], 1, 10); err != nil {
		t.Fatalf("InsertScore failed: %v", err)
	}

	threshold := 0.5
	got, err := db.ReadPulses(ctx, 1, 0, 10, &threshold)
	if err != nil {
		t.Fatalf("ReadPulses failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != ids[0] {
		t.Errorf("got %d pulses, want only pulse %d", len(got), ids[0])
	}
}

func testPosition(t *testing.T) *position.Position {
	t.Helper()
	f := testutil.ThreeSiteFixture(t, 0, 1)
	store := f.Store(t, testutil.Transmitter, 0, 3)
	params := config.DefaultParams()
	params.Search = config.SearchParams{HalfSpan: 10, Coarse: 2, Fine: 0, ScaleBase: 10}
	est := position.NewEstimator(1, f.Sites, params)
	spectra, err := est.Spectra(store, f.Table)
	if err != nil {
		t.Fatalf("Spectra failed: %v", err)
	}
	pos := est.Estimate(spectra, store, 0, 3)
	if !pos.HasFix() {
		t.Fatalf("test position has no fix")
	}
	return pos
}

func TestPositionRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	d := seedDeployment(t, db)
	ctx := context.Background()
	zone := d.Zone()

	run, err := db.StartRun(ctx, 1, RunPosition, nil)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	pos := testPosition(t)
	id, err := db.InsertPosition(ctx, run, pos, zone)
	if err != nil {
		t.Fatalf("InsertPosition failed: %v", err)
	}

	empty := &position.Position{DeploymentID: 1, Timestamp: 10, Start: 5, End: 15, Likelihood: math.NaN()}
	if _, err := db.InsertPosition(ctx, run, empty, zone); err != nil {
		t.Fatalf("InsertPosition without fix failed: %v", err)
	}

	rows, err := db.ReadPositions(ctx, 1, 0, 100)
	if err != nil {
		t.Fatalf("ReadPositions failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("read %d positions, want 2", len(rows))
	}
	want := PositionRow{
		ID:           id,
		RunID:        run,
		DeploymentID: 1,
		Timestamp:    pos.Timestamp,
		Start:        pos.Start,
		End:          pos.End,
		Fix:          pos.Fix,
		Zone:         zone,
		Likelihood:   pos.Likelihood,
		Activity:     pos.Activity,
		NumSites:     3,
		NumPulses:    9,
	}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Errorf("position mismatch (-want +got):\n%s", diff)
	}
	if rows[1].Zone != zone {
		t.Errorf("position without fix zone = %v, want %v", rows[1].Zone, zone)
	}
	if rows[1].Fix != nil || !math.IsNaN(rows[1].Likelihood) {
		t.Errorf("window without fix read back as %+v", rows[1])
	}

	bearings, err := db.PositionBearings(ctx, id)
	if err != nil {
		t.Fatalf("PositionBearings failed: %v", err)
	}
	if len(bearings) != 3 {
		t.Errorf("position linked to %d bearings, want 3", len(bearings))
	}

	points, err := db.ReadTrackPoints(ctx, 1, 0, 100)
	if err != nil {
		t.Fatalf("ReadTrackPoints failed: %v", err)
	}
	if len(points) != 1 || points[0].PositionID != id {
		t.Errorf("track points = %+v, want only position %d", points, id)
	}
}

func TestCovarianceRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	d := seedDeployment(t, db)
	ctx := context.Background()

	run, _ := db.StartRun(ctx, 1, RunPosition, nil)
	pos := testPosition(t)
	posID, err := db.InsertPosition(ctx, run, pos, geo.Zone{Number: d.ZoneNumber, Letter: d.ZoneLetter})
	if err != nil {
		t.Fatalf("InsertPosition failed: %v", err)
	}

	want := &covariance.Result{
		Method:  config.CovarianceBoot2,
		Status:  covariance.StatusOK,
		Center:  *pos.Fix,
		C:       mat.NewSymDense(2, []float64{4, 1, 1, 2}),
		W:       map[float64]float64{0.68: 2.3, 0.95: 6},
		Lambda1: 4.4,
		Lambda2: 1.6,
		Alpha:   0.39,
		Samples: 40,
	}
	if _, err := db.InsertCovariance(ctx, posID, want); err != nil {
		t.Fatalf("InsertCovariance failed: %v", err)
	}

	got, err := db.ReadCovariances(ctx, 1, 0, 100)
	if err != nil {
		t.Fatalf("ReadCovariances failed: %v", err)
	}
	r, ok := got[posID]
	if !ok {
		t.Fatalf("no covariance for position %d", posID)
	}
	if !mat.Equal(want.C, r.C) {
		t.Errorf("C = %v, want %v", mat.Formatted(r.C), mat.Formatted(want.C))
	}
	if diff := cmp.Diff(want, r, cmpopts.IgnoreFields(covariance.Result{}, "C")); diff != "" {
		t.Errorf("covariance mismatch (-want +got):\n%s", diff)
	}
}

func TestCovarianceUndefined(t *testing.T) {
	db := setupTestDB(t)
	d := seedDeployment(t, db)
	ctx := context.Background()

	run, _ := db.StartRun(ctx, 1, RunPosition, nil)
	posID, err := db.InsertPosition(ctx, run, testPosition(t), geo.Zone{Number: d.ZoneNumber, Letter: d.ZoneLetter})
	if err != nil {
		t.Fatalf("InsertPosition failed: %v", err)
	}
	res := &covariance.Result{Method: config.CovarianceBoot, Status: covariance.StatusUndefined, W: map[float64]float64{}}
	if _, err := db.InsertCovariance(ctx, posID, res); err != nil {
		t.Fatalf("InsertCovariance failed: %v", err)
	}
	got, err := db.ReadCovariances(ctx, 1, 0, 100)
	if err != nil {
		t.Fatalf("ReadCovariances failed: %v", err)
	}
	r := got[posID]
	if r == nil || r.Status != covariance.StatusUndefined || r.C != nil {
		t.Errorf("undefined covariance read back as %+v", r)
	}
	if !errors.Is(r.Err(), covariance.ErrBootstrap) {
		t.Errorf("Err() = %v, want ErrBootstrap", r.Err())
	}
}

func TestReplaceTrack(t *testing.T) {
	db := setupTestDB(t)
	d := seedDeployment(t, db)
	ctx := context.Background()
	zone := d.Zone()

	run, _ := db.StartRun(ctx, 1, RunPosition, nil)
	var points []track.Point
	for i := 0; i < 4; i++ {
		fix := complex(float64(10*i), 0)
		pos := &position.Position{DeploymentID: 1, Timestamp: float64(60 * i), Fix: &fix, Likelihood: 1}
		id, err := db.InsertPosition(ctx, run, pos, zone)
		if err != nil {
			t.Fatalf("InsertPosition failed: %v", err)
		}
		points = append(points, track.Point{PositionID: id, Timestamp: pos.Timestamp, P: fix, Likelihood: 1})
	}

	if err := db.ReplaceTrack(ctx, 1, points); err != nil {
		t.Fatalf("ReplaceTrack failed: %v", err)
	}
	// re-run over [60, 180] keeping only two points
	if err := db.ReplaceTrack(ctx, 1, []track.Point{points[1], points[3]}); err != nil {
		t.Fatalf("ReplaceTrack failed: %v", err)
	}

	got, err := db.ReadTrack(ctx, 1, 0, 1000)
	if err != nil {
		t.Fatalf("ReadTrack failed: %v", err)
	}
	want := []track.Point{points[0], points[1], points[3]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("track mismatch (-want +got):\n%s", diff)
	}

	if err := db.ReplaceTrack(ctx, 1, nil); err != nil {
		t.Errorf("ReplaceTrack(nil) failed: %v", err)
	}
}
