package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/db"
	"github.com/qraat/qraat/internal/geo"
	"github.com/qraat/qraat/internal/plot"
	"github.com/qraat/qraat/internal/position"
	"github.com/qraat/qraat/internal/signal"
	"github.com/qraat/qraat/internal/sim"
	"github.com/qraat/qraat/internal/version"
)

var (
	dbPath      = flag.String("db", "qraat.db", "path to sqlite db")
	deployPath  = flag.String("deployment", "", "deployment YAML (required)")
	easting     = flag.Float64("easting", 0, "transmitter easting; the site centroid when both coordinates are 0")
	northing    = flag.Float64("northing", 0, "transmitter northing")
	t0          = flag.Float64("t0", 0, "timestamp of the first pulse")
	count       = flag.Int("count", 10, "pulses per site")
	rho         = flag.Float64("rho", 1, "transmission power")
	sigN        = flag.Float64("sig-n", 0.002, "per-channel noise variance")
	kappa       = flag.Float64("kappa", 1, "array phase constant of the synthetic calibration")
	seed        = flag.Uint64("seed", 1, "noise seed")
	plotPath    = flag.String("plot", "", "write the search space of the simulated pulses to this PNG")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("qraat-sim"))
		return
	}
	if *deployPath == "" {
		log.Fatalf("-deployment is required")
	}

	d, err := config.LoadDeployment(*deployPath)
	if err != nil {
		log.Fatalf("load deployment: %v", err)
	}
	sites := d.SitePositions()
	tx := geo.Point(*easting, *northing)
	if *easting == 0 && *northing == 0 {
		tx = d.Centroid()
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer database.Close()
	ctx := context.Background()

	if err := database.SaveDeployment(ctx, d); err != nil {
		log.Fatalf("save deployment: %v", err)
	}
	ids := make([]int, 0, len(d.Sites))
	rows := signal.CircularArrayRows(*kappa)
	for _, s := range d.Sites {
		ids = append(ids, s.ID)
		if err := database.InsertSteeringRows(ctx, d.CalibrationID, s.ID, rows); err != nil {
			log.Fatalf("write steering vectors: %v", err)
		}
	}
	table := signal.CircularArrayTable(d.CalibrationID, *kappa, ids...)

	s, err := sim.New(sites, table, *rho, *sigN, *seed)
	if err != nil {
		log.Fatalf("simulator: %v", err)
	}
	pulses, err := s.Pulses(tx, *t0, *count)
	if err != nil {
		log.Fatalf("simulate: %v", err)
	}
	runID, err := database.StartRun(ctx, d.ID, db.RunSimulate, nil)
	if err != nil {
		log.Fatalf("start run: %v", err)
	}
	if _, err := database.InsertPulses(ctx, d.ID, pulses); err != nil {
		log.Fatalf("write pulses: %v", err)
	}
	if err := database.FinishRun(ctx, runID); err != nil {
		log.Fatalf("finish run: %v", err)
	}
	log.Printf("wrote %d pulses from e=%.1f n=%.1f (tx coefficient %.3g)",
		len(pulses), geo.Easting(tx), geo.Northing(tx), sim.ScaleTxCoefficient(tx, *rho, sites))

	if *plotPath != "" {
		if err := plotSearch(*plotPath, d, table, pulses, tx); err != nil {
			log.Fatalf("plot: %v", err)
		}
	}
}

func plotSearch(path string, d *config.Deployment, table *signal.SteeringTable, pulses []signal.Pulse, tx complex128) error {
	store := signal.NewStore(d.ID, pulses)
	est := position.NewEstimator(d.ID, d.SitePositions(), config.DefaultParams())
	spectra, err := est.Spectra(store, table)
	if err != nil {
		return err
	}
	pos := est.Estimate(spectra, store, store.TStart, store.TEnd+1)
	splines := position.Splines(pos.Window.Splines)
	space := &plot.SearchSpace{
		Title: fmt.Sprintf("deployment %d: %s", d.ID, pos),
		Grid:  position.LikelihoodGrid(est.Sites, splines, tx, 10, 50),
		Sites: est.Sites,
		Fix:   pos.Fix,
		Known: &tx,
	}
	return space.Save(path)
}
