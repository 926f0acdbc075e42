package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"

	"github.com/qraat/qraat/internal/config"
	"github.com/qraat/qraat/internal/db"
	"github.com/qraat/qraat/internal/monitoring"
	"github.com/qraat/qraat/internal/plot"
	"github.com/qraat/qraat/internal/track"
	"github.com/qraat/qraat/internal/units"
	"github.com/qraat/qraat/internal/version"
)

var (
	dbPath      = flag.String("db", "qraat.db", "path to sqlite db")
	configPath  = flag.String("config", "", "tuning config JSON (built-in defaults when empty)")
	depID       = flag.Int("dep", 1, "deployment ID")
	tStart      = flag.Float64("start", math.Inf(-1), "start time (unix seconds)")
	tEnd        = flag.Float64("end", math.Inf(1), "end time (unix seconds)")
	optimal     = flag.Bool("optimal", false, "compute one critical path over all positions instead of overlapping windows")
	plotPath    = flag.String("plot", "", "write a track PNG to this path")
	speedUnits  = flag.String("units", units.MPS, "units for reported speeds")
	dryRun      = flag.Bool("dry-run", false, "reconstruct without writing track_pos")
	verbose     = flag.Bool("verbose", false, "enable debug logging")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("qraat-track"))
		return
	}
	monitoring.SetVerbose(*verbose)
	if !units.IsValid(*speedUnits) {
		log.Fatalf("invalid -units %q: want one of %s", *speedUnits, units.ValidUnitsString())
	}

	cfg := config.DefaultTuningConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	params := cfg.Params().Track

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer database.Close()
	ctx := context.Background()

	d, err := database.ReadDeployment(ctx, *depID)
	if err != nil {
		log.Fatalf("read deployment: %v", err)
	}
	t := d.Target
	maxSpeed, err := track.NewMaxSpeed(t.MaxSpeedFamily, t.SpeedBurst, t.SpeedSustained, t.SpeedLimit, params)
	if err != nil {
		log.Fatalf("target %s: %v", t.Name, err)
	}

	points, err := database.ReadTrackPoints(ctx, d.ID, *tStart, *tEnd)
	if err != nil {
		log.Fatalf("read positions: %v", err)
	}
	if len(points) == 0 {
		log.Printf("no positions for deployment %d", d.ID)
		return
	}

	r := track.NewReconstructor(maxSpeed, params)
	path, err := r.Reconstruct(points, *optimal)
	if err != nil {
		log.Fatalf("reconstruct track: %v", err)
	}
	mean, std := track.SpeedStats(path)
	log.Printf("track of %d/%d positions, speed %s +/- %s", len(path), len(points),
		units.FormatSpeed(mean, *speedUnits), units.FormatSpeed(std, *speedUnits))

	if !*dryRun {
		runID, err := database.StartRun(ctx, d.ID, db.RunTrack, nil)
		if err != nil {
			log.Fatalf("start run: %v", err)
		}
		if err := database.ReplaceTrack(ctx, d.ID, path); err != nil {
			log.Fatalf("write track: %v", err)
		}
		if err := database.FinishRun(ctx, runID); err != nil {
			log.Fatalf("finish run: %v", err)
		}
	}
	if *plotPath != "" {
		title := fmt.Sprintf("deployment %d (%s)", d.ID, t.Name)
		if err := plot.Track(*plotPath, title, points, path, d.SitePositions()); err != nil {
			log.Fatalf("plot track: %v", err)
		}
	}
}
