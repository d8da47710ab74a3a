// Command battlegrid generates two armies, fights a battle between them on the
// grid and records the result with the configured storage backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/battlegrid/engine/internal/battle"
	"github.com/battlegrid/engine/internal/catalog"
	"github.com/battlegrid/engine/internal/config"
	"github.com/battlegrid/engine/internal/logging"
	intOtel "github.com/battlegrid/engine/internal/otel"
	"github.com/battlegrid/engine/internal/preset"
	"github.com/battlegrid/engine/internal/program"
	"github.com/battlegrid/engine/internal/recorder"
	"github.com/battlegrid/engine/internal/storage"
	"github.com/battlegrid/engine/internal/storage/memory"
	"github.com/battlegrid/engine/pkg/core"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

// AppName names the binary, its log files and its exports.
const AppName = "battlegrid"

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// app holds the services of one run.
type app struct {
	stdout       io.Writer
	sessionStart time.Time

	slogManager  *logging.SlogManager
	logger       *slog.Logger
	logFile      *os.File
	otelProvider *intOtel.Provider
	dbLogger     zerolog.Logger

	rec *recorder.Recorder
}

func run(args []string, stdout io.Writer) int {
	opts, err := parseFlags(args, stdout)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stdout, err)
		return exitError
	}
	if opts.Version {
		fmt.Fprintf(stdout, "%s %s (built %s)\n", AppName, Version, BuildDate)
		return exitOK
	}

	a := &app{stdout: stdout, sessionStart: time.Now()}
	a.setupLogging(opts.ConfigDir)
	defer a.shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.fight(ctx, opts)
}

// setupLogging loads the config and moves logging from the console to the
// session log file, with the OTel bridge when enabled.
func (a *app) setupLogging(configDir string) {
	a.slogManager = logging.NewSlogManager()
	a.slogManager.Setup(nil, viper.GetString("logLevel"), nil)
	a.logger = a.slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.logger.Info("Loaded config")
	}
	a.slogManager.SetLevel(viper.GetString("logLevel"))

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		a.logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
		return
	}

	logFilePath := logging.LogFilePath(logsDir, AppName, a.sessionStart)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		a.logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
		return
	}
	a.logFile = logFile
	a.dbLogger = zerolog.New(logFile).With().Timestamp().Logger()

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		a.otelProvider, err = intOtel.New(intOtel.Config{
			Enabled:         otelCfg.Enabled,
			ServiceName:     otelCfg.ServiceName,
			ServiceVersion:  Version,
			BatchTimeout:    otelCfg.BatchTimeout,
			LogWriter:       logFile,
			Endpoint:        otelCfg.Endpoint,
			Insecure:        otelCfg.Insecure,
			MetricsInterval: otelCfg.MetricsInterval,
		})
		if err != nil {
			a.logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if a.otelProvider != nil {
		otelLogProvider = a.otelProvider.LoggerProvider()
	}
	a.slogManager.Setup(logFile, viper.GetString("logLevel"), otelLogProvider)
	a.logger = a.slogManager.Logger()
	a.logger.Info("Logging to file", "path", logFilePath, "version", Version)

	a.slogManager.GetBattleName = func() string { return viper.GetString("battle.name") }
	a.slogManager.GetBattleID = func() uint {
		if a.rec != nil {
			return a.rec.BattleID()
		}
		return 0
	}
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.slogManager.Flush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "flushing logs:", err)
	}
	if a.otelProvider != nil {
		if err := a.otelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "shutting down OTel provider:", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func (a *app) templates(path string) ([]core.Unit, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	units, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Loaded unit catalog", "path", path, "units", len(units))
	return units, nil
}

// openStorage creates and initializes the configured backend, falling back
// to an in-memory backend that exports nothing.
func (a *app) openStorage() storage.Backend {
	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg, storageDeps{
		LogManager:   a.slogManager,
		DBLogger:     a.dbLogger,
		SessionStart: a.sessionStart,
	})
	if err == nil {
		err = backend.Init()
	}
	if err != nil {
		a.logger.Error("Failed to initialize storage backend, keeping the battle in memory", "type", storageCfg.Type, "error", err)
		if backend != nil {
			_ = backend.Close()
		}
		return memory.New(config.MemoryConfig{})
	}
	a.logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return backend
}

func (a *app) fight(ctx context.Context, opts cliOptions) int {
	bc := config.GetBattleConfig()

	templates, err := a.templates(bc.CatalogPath)
	if err != nil {
		a.logger.Error("Failed to load unit catalog", "error", err)
		fmt.Fprintln(a.stdout, err)
		return exitError
	}

	seed := bc.Seed
	if seed == 0 {
		seed = a.sessionStart.UnixNano()
	}
	rng := preset.NewRand(seed)
	computer := preset.Generate(templates, bc.MaxPoints, rng)
	player := preset.Mirror(preset.Generate(templates, bc.MaxPoints, rng))

	field := &program.Field{Player: player, Computer: computer}
	program.Bind(field)

	backend := a.openStorage()
	defer func() {
		if err := backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	a.rec, err = recorder.New(recorder.Dependencies{Backend: backend, Logger: a.logger})
	if err != nil {
		a.logger.Error("Failed to create recorder", "error", err)
		return exitError
	}

	record := &core.Battle{
		Name:           bc.Name,
		Seed:           seed,
		StartTime:      time.Now(),
		PlayerPoints:   player.Points,
		ComputerPoints: computer.Points,
		PlayerArmy:     core.SnapshotArmy(player),
		ComputerArmy:   core.SnapshotArmy(computer),
	}
	if err := a.rec.Start(record); err != nil {
		a.logger.Error("Failed to start recording", "error", err)
	}

	battleLogs := core.MultiBattleLog{a.rec}
	if !opts.Quiet {
		battleLogs = append(battleLogs, logging.NewConsoleBattleLogger(a.stdout))
	}

	sim, err := battle.New(
		battle.WithBattleLog(battleLogs),
		battle.WithLogger(a.logger),
		battle.WithMaxRounds(bc.MaxRounds),
	)
	if err != nil {
		a.logger.Error("Failed to create simulator", "error", err)
		return exitError
	}

	fmt.Fprintf(a.stdout, "%s: %d player units (%d pts) vs %d computer units (%d pts), seed %d\n",
		bc.Name, len(player.Units), player.Points, len(computer.Units), computer.Points, seed)

	res, simErr := sim.Simulate(ctx, player, computer)
	if simErr != nil && !errors.Is(simErr, battle.ErrInterrupted) {
		a.logger.Error("Battle failed", "error", simErr)
		return exitError
	}

	summary := recorder.Summarize(res, player, computer, time.Now())
	if err := a.rec.Finish(&summary); err != nil {
		a.logger.Error("Failed to store battle summary", "error", err)
	}

	var exported string
	if e, ok := backend.(storage.Exportable); ok {
		exported = e.ExportedFilePath()
	}
	printSummary(a.stdout, summary, exported)

	if simErr != nil {
		return exitInterrupted
	}
	return exitOK
}

func printSummary(w io.Writer, s core.BattleSummary, exported string) {
	fmt.Fprintf(w, "outcome: %s after %d rounds (%d actions, %d attacks, %d moves)\n",
		s.Outcome, s.Rounds, s.Actions, s.Attacks, s.Moves)
	fmt.Fprintf(w, "survivors: %d player, %d computer\n", len(s.PlayerAlive), len(s.ComputerAlive))
	if exported != "" {
		fmt.Fprintf(w, "recorded to %s\n", exported)
	}
}
