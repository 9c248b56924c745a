package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"endurance-coach/internal/analysis"
	"endurance-coach/internal/auth"
	"endurance-coach/internal/config"
	"endurance-coach/internal/ledger"
	"endurance-coach/internal/logger"
	"endurance-coach/internal/report"
	"endurance-coach/internal/scheduler"
	"endurance-coach/internal/server"
	"endurance-coach/internal/service"
	"endurance-coach/internal/store"
	"endurance-coach/internal/strava"
	"endurance-coach/internal/tui"
)

type options struct {
	configPath    string
	serve         bool
	once          bool
	importPath    string
	exportPath    string
	snapshot      bool
	clearSnapshot bool
	closeDay      string
	sync          bool
}

// maintenance reports whether any one-shot command was requested
func (o options) maintenance() bool {
	return o.importPath != "" || o.exportPath != "" || o.snapshot || o.clearSnapshot || o.closeDay != "" || o.sync
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "config file (default ~/.coach/config.yaml or config.json)")
	flag.BoolVar(&opts.serve, "serve", false, "run the HTTP API and the daily jobs")
	flag.BoolVar(&opts.once, "once", false, "print the forecast to the console and exit")
	flag.StringVar(&opts.importPath, "import", "", "import the timeline sheet of an .xlsx workbook")
	flag.StringVar(&opts.exportPath, "export", "", "write the ledger and the plan to an .xlsx workbook")
	flag.BoolVar(&opts.snapshot, "snapshot", false, "pin today's forecast seed")
	flag.BoolVar(&opts.clearSnapshot, "clear-snapshot", false, "remove the pinned forecast seed")
	flag.StringVar(&opts.closeDay, "close-day", "", "close a day: YYYY-MM-DD, DD.MM.YYYY or today")
	flag.BoolVar(&opts.sync, "sync", false, "import Strava activities into the ledger")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx := context.Background()

	cfg, err := loadConfig(opts.configPath)
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("\nPlease edit the config file at:\n  %s/config.json\n\n", configDir)
		fmt.Println("Set the load model coefficients and the sleep defaults.")
		fmt.Println("Strava credentials are optional: https://www.strava.com/settings/api")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		fmt.Printf("Config validation failed: %v\n\n", err)
		fmt.Printf("Please edit the config file at:\n  %s\n", filepath.Join(configDir, "config.json"))
		return nil
	}

	// The TUI owns the terminal, so logs go to a file there
	logOut := os.Stderr
	if !opts.serve && !opts.once && !opts.maintenance() {
		configDir, _ := config.GetConfigDir()
		if f, err := os.OpenFile(filepath.Join(configDir, "coach.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
			defer f.Close()
			logOut = f
		}
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Out: logOut})

	dbPath, err := cfg.DBPath()
	if err != nil {
		return fmt.Errorf("resolving database path: %w", err)
	}
	db, err := store.OpenPath(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	pipeline, err := analysis.NewPipeline(cfg.Pipeline(), db.Snapshots(), log)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}
	forecastSvc := service.NewForecastService(db, pipeline, log)
	ledgerSvc := service.NewLedgerService(db, log)
	reviewSvc := service.NewReviewService(db, pipeline.Model())

	if opts.maintenance() {
		if err := runMaintenance(ctx, opts, cfg, db, log, forecastSvc, ledgerSvc); err != nil {
			return err
		}
		if !opts.serve && !opts.once {
			return nil
		}
	}

	switch {
	case opts.serve:
		return serve(cfg, log, forecastSvc, ledgerSvc, reviewSvc)
	case opts.once:
		res, err := forecastSvc.Forecast(ctx)
		if err != nil {
			return err
		}
		report.NewConsole().Forecast(res.Forecast)
		return nil
	}

	var syncer tui.Syncer
	if syncSvc, err := newSyncService(ctx, cfg, db, log); err != nil {
		return err
	} else if syncSvc != nil {
		syncer = syncSvc
	}

	app := tui.NewApp(forecastSvc, db, syncer, cfg.Display)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// runMaintenance executes the one-shot commands in dependency order:
// import, sync, close day, snapshot, export.
func runMaintenance(ctx context.Context, opts options, cfg *config.Config, db *store.DB, log zerolog.Logger,
	forecastSvc *service.ForecastService, ledgerSvc *service.LedgerService) error {
	if opts.importPath != "" {
		n, err := ledgerSvc.ImportWorkbook(ctx, opts.importPath, cfg.Ledger.TimelineSheet)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d ledger rows from %s\n", n, opts.importPath)
	}

	if opts.sync {
		syncSvc, err := newSyncService(ctx, cfg, db, log)
		if err != nil {
			return err
		}
		if syncSvc == nil {
			return cfg.ValidateStrava()
		}
		res, err := syncSvc.SyncAll(ctx, nil)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d activities, filled %d ledger days (%d errors)\n",
			res.ActivitiesStored, res.DaysFilled, len(res.Errors))
	}

	if opts.closeDay != "" {
		day := time.Now()
		if !strings.EqualFold(opts.closeDay, "today") {
			var err error
			if day, err = ledger.ParseDate(opts.closeDay); err != nil {
				return err
			}
		}
		if err := forecastSvc.CloseDay(ctx, day); err != nil {
			return err
		}
		fmt.Printf("Closed %s\n", analysis.DayKey(day))
	}

	if opts.clearSnapshot {
		if err := forecastSvc.ClearSnapshot(ctx); err != nil {
			return err
		}
		fmt.Println("Snapshot cleared")
	}

	if opts.snapshot {
		snap, err := forecastSvc.CaptureSnapshot(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Pinned seed from %s (ATL %.1f, CTL %.1f)\n",
			analysis.DayKey(snap.SeedDate), snap.Seed.Acute, snap.Seed.Chronic)
	}

	if opts.exportPath != "" {
		var fc *analysis.Forecast
		res, err := forecastSvc.Forecast(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Exporting ledger without a plan")
		} else {
			fc = res.Forecast
		}
		if err := ledgerSvc.ExportWorkbook(ctx, opts.exportPath, cfg.Ledger.TimelineSheet, cfg.Ledger.PlanSheet, fc); err != nil {
			return err
		}
		fmt.Printf("Exported ledger to %s\n", opts.exportPath)
	}

	return nil
}

func serve(cfg *config.Config, log zerolog.Logger, forecastSvc *service.ForecastService,
	ledgerSvc *service.LedgerService, reviewSvc *service.ReviewService) error {
	sched := scheduler.New(log)
	if err := sched.AddJob(scheduler.PurgeSchedule, scheduler.NewPurgeSnapshotJob(forecastSvc, log)); err != nil {
		return fmt.Errorf("registering purge job: %w", err)
	}
	if cfg.Ledger.NightlyImport != "" {
		job := scheduler.NewImportJob(ledgerSvc, cfg.Ledger.NightlyImport, cfg.Ledger.TimelineSheet, log)
		if err := sched.AddJob(scheduler.ImportSchedule, job); err != nil {
			return fmt.Errorf("registering import job: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
		Forecast:       forecastSvc,
		Ledger:         ledgerSvc,
		Review:         reviewSvc,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("starting server: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	return nil
}

// newSyncService connects to Strava. It returns nil when no credentials are configured
// and runs the OAuth flow when no usable token is stored.
func newSyncService(ctx context.Context, cfg *config.Config, db *store.DB, log zerolog.Logger) (*service.SyncService, error) {
	if err := cfg.ValidateStrava(); err != nil {
		return nil, nil
	}

	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RedirectURL:  auth.RedirectURL(auth.DefaultCallbackAddr),
	})
	flow := auth.NewCallbackFlow(oauthCfg, log)

	storedAuth, err := db.GetAuth(ctx)
	if errors.Is(err, store.ErrNoAuth) {
		fmt.Println("Strava is not connected yet.")
		if err := authenticate(ctx, db, flow); err != nil {
			return nil, fmt.Errorf("authentication: %w", err)
		}
		storedAuth, err = db.GetAuth(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("checking auth: %w", err)
	}

	tokenSource := auth.NewTokenSource(ctx, oauthCfg, auth.TokenFromAuth(storedAuth), auth.PersistRefresh(db))

	// a refresh failure means the athlete revoked access
	if _, err := tokenSource.Token(); err != nil {
		log.Warn().Err(err).Msg("Stored Strava token rejected, reconnecting")
		if err := db.Disconnect(ctx); err != nil {
			return nil, fmt.Errorf("dropping stale tokens: %w", err)
		}
		if err := authenticate(ctx, db, flow); err != nil {
			return nil, fmt.Errorf("re-authentication: %w", err)
		}
		if storedAuth, err = db.GetAuth(ctx); err != nil {
			return nil, fmt.Errorf("fetching auth after login: %w", err)
		}
		tokenSource = auth.NewTokenSource(ctx, oauthCfg, auth.TokenFromAuth(storedAuth), auth.PersistRefresh(db))
	}

	client := strava.NewClient(tokenSource)
	return service.NewSyncService(client, db, cfg.Zones(), log), nil
}

func authenticate(ctx context.Context, db *store.DB, flow *auth.CallbackFlow) error {
	result, err := flow.Run(ctx)
	if err != nil {
		return err
	}

	if err := auth.SaveResult(ctx, db, result); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}

	fmt.Printf("\nConnected Strava athlete %d.\n", result.AthleteID)
	return nil
}
