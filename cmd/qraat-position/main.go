package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/covariance"
	"github.com/qraat/qraat/internal/db"
	"github.com/qraat/qraat/internal/monitoring"
	"github.com/qraat/qraat/internal/pipeline"
	"github.com/qraat/qraat/internal/plot"
	"github.com/qraat/qraat/internal/position"
	qsignal "github.com/qraat/qraat/internal/signal"
	"github.com/qraat/qraat/internal/version"
)

var (
	dbPath      = flag.String("db", "qraat.db", "path to sqlite db")
	configPath  = flag.String("config", "", "tuning config JSON (built-in defaults when empty)")
	deployPath  = flag.String("deployment", "", "deployment YAML to store before running")
	depID       = flag.Int("dep", 1, "deployment ID")
	tStart      = flag.Float64("start", math.Inf(-1), "start time (unix seconds)")
	tEnd        = flag.Float64("end", math.Inf(1), "end time (unix seconds)")
	workers     = flag.Int("workers", -1, "worker count; -1 uses the tuning config, 0 runs synchronously")
	plotDir     = flag.String("plot", "", "write a search-space PNG per fix into this directory")
	verbose     = flag.Bool("verbose", false, "enable debug logging")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func loadTuning() *config.TuningConfig {
	if *configPath == "" {
		return config.DefaultTuningConfig()
	}
	cfg, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
}

func loadDeployment(ctx context.Context, database *db.DB) *config.Deployment {
	if *deployPath != "" {
		d, err := config.LoadDeployment(*deployPath)
		if err != nil {
			log.Fatalf("load deployment: %v", err)
		}
		if err := database.SaveDeployment(ctx, d); err != nil {
			log.Fatalf("save deployment: %v", err)
		}
		return d
	}
	d, err := database.ReadDeployment(ctx, *depID)
	if err != nil {
		log.Fatalf("read deployment: %v", err)
	}
	return d
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("qraat-position"))
		return
	}
	monitoring.SetVerbose(*verbose)

	cfg := loadTuning()
	params := cfg.Params()
	if *workers >= 0 {
		params.Workers = *workers
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := loadDeployment(ctx, database)
	zone := d.Zone()

	pulses, err := database.ReadPulses(ctx, d.ID, *tStart, *tEnd, params.ScoreThreshold)
	if err != nil {
		log.Fatalf("read pulses: %v", err)
	}
	store := qsignal.NewStore(d.ID, pulses)
	for _, err := range store.Rejected {
		log.Printf("rejected pulse: %v", err)
	}
	if store.Empty() {
		log.Printf("no pulses for deployment %d", d.ID)
		return
	}

	table, err := database.ReadSteeringTable(ctx, d.CalibrationID, store.SiteIDs()...)
	if err != nil {
		log.Fatalf("read steering vectors: %v", err)
	}

	est := position.NewEstimator(d.ID, d.SitePositions(), params)
	spectra, err := est.Spectra(store, table)
	if err != nil {
		log.Fatalf("bearing spectra: %v", err)
	}
	cov, err := covariance.New(params.Covariance, params.Search)
	if err != nil {
		log.Fatalf("covariance: %v", err)
	}

	paramsJSON, err := json.Marshal(cfg)
	if err != nil {
		log.Fatalf("encode config: %v", err)
	}
	runID, err := database.StartRun(ctx, d.ID, db.RunPosition, paramsJSON)
	if err != nil {
		log.Fatalf("start run: %v", err)
	}

	if *plotDir != "" {
		if err := os.MkdirAll(*plotDir, 0o755); err != nil {
			log.Fatalf("create plot dir: %v", err)
		}
	}

	runner := pipeline.NewRunner(est, cov)
	runner.Workers = params.Workers
	var fixes, windows int
	err = runner.Run(ctx, spectra, store, func(res pipeline.Result) error {
		windows++
		posID, err := database.InsertPosition(ctx, runID, res.Position, zone)
		if err != nil {
			return err
		}
		if !res.Position.HasFix() {
			return nil
		}
		fixes++
		if res.Covariance != nil {
			if _, err := database.InsertCovariance(ctx, posID, res.Covariance); err != nil {
				return err
			}
		}
		if *plotDir != "" {
			path := filepath.Join(*plotDir, fmt.Sprintf("pos_%d.png", posID))
			if err := plotPosition(path, est, res); err != nil {
				log.Printf("plot position %d: %v", posID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("estimate positions: %v", err)
	}
	if err := database.FinishRun(ctx, runID); err != nil {
		log.Fatalf("finish run: %v", err)
	}
	run, err := database.ReadRun(ctx, runID)
	if err != nil {
		log.Fatalf("read run: %v", err)
	}
	log.Printf("run %s: %d fixes in %d windows (%s)", runID, fixes, windows, run.Duration())
}

func plotPosition(path string, est *position.Estimator, res pipeline.Result) error {
	splines := position.Splines(res.Position.Window.Splines)
	p := est.Params.Search
	scale := math.Pow(p.ScaleBase, float64(p.Fine+1))
	space := &plot.SearchSpace{
		Title: fmt.Sprintf("t=%.1f", res.Position.Timestamp),
		Grid:  position.LikelihoodGrid(est.Sites, splines, *res.Position.Fix, scale, p.HalfSpan),
		Sites: est.Sites,
		Fix:   res.Position.Fix,
	}
	if res.Covariance != nil && res.Covariance.Status == covariance.StatusOK {
		for _, level := range res.Covariance.Levels() {
			e, err := res.Covariance.Conf(level)
			if err != nil {
				return err
			}
			space.Ellipses = append(space.Ellipses, e)
		}
	}
	return space.Save(path)
}
