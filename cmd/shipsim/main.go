package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shipcore/shipcore/internal/config"
	"github.com/shipcore/shipcore/internal/dispatcher"
	"github.com/shipcore/shipcore/internal/influx"
	"github.com/shipcore/shipcore/internal/logging"
	"github.com/shipcore/shipcore/internal/mission"
	"github.com/shipcore/shipcore/internal/monitor"
	intOtel "github.com/shipcore/shipcore/internal/otel"
	"github.com/shipcore/shipcore/internal/parser"
	"github.com/shipcore/shipcore/internal/shipclass"
	"github.com/shipcore/shipcore/internal/storage"
	"github.com/shipcore/shipcore/internal/telemetry"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - Version can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "shipsim"
)

// global variables
var (
	SessionStartTime time.Time = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// dbLogger drives the dispatcher and database logs
	dbLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFile *os.File

	// Services
	eventDispatcher *dispatcher.Dispatcher
	commands        *dispatcher.Commands
	missionCtx      *mission.Context
	monitorService  *monitor.Service
	storageBackend  storage.Backend
)

type options struct {
	configDir string
	scenario  string
	classes   string
	resume    string
	ticks     int
	dt        time.Duration
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.StringVar(&opts.configDir, "config", ".", "directory containing "+config.ConfigFileName)
	fs.StringVar(&opts.scenario, "scenario", "", "YAML scenario file")
	fs.StringVar(&opts.classes, "classes", "", "YAML ship class overlay")
	fs.StringVar(&opts.resume, "resume", "", "session ID or mission name to restore before the scenario")
	fs.IntVar(&opts.ticks, "ticks", 0, "extra ticks to run after the script")
	fs.DurationVar(&opts.dt, "dt", 100*time.Millisecond, "simulation step")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.ticks < 0 {
		return opts, errors.New("-ticks must not be negative")
	}
	if opts.dt <= 0 {
		return opts, errors.New("-dt must be positive")
	}
	return opts, nil
}

// setupLogging loads config and wires slog, zerolog, Graylog and OTel.
func setupLogging(opts options) {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(opts.configDir); err != nil {
		config.LoadDefaults()
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", opts.configDir)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	logFilePath := logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if _, err := os.Stat(logFilePath); err == nil {
		os.Rename(logFilePath, logFilePath+".old")
	}
	var err error
	LogFile, err = os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
		LogFile = nil
	}

	var logOut io.Writer = os.Stdout
	if LogFile != nil {
		logOut = LogFile
	}

	level := config.GetString("logLevel")
	zlLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		zlLevel = zerolog.InfoLevel
	}
	dbLogger = zerolog.New(logOut).Level(zlLevel).With().Timestamp().Str("app", AppName).Logger()

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logOut,
			MetricWriter: logOut,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		w, err := logging.NewGraylogWriter(graylogCfg.Address)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err, "address", graylogCfg.Address)
		} else {
			SlogManager.Graylog = w
		}
	}

	SlogManager.Context = func() []slog.Attr {
		if missionCtx == nil {
			return nil
		}
		return []slog.Attr{
			slog.String("mission", missionCtx.Name()),
			slog.Uint64("tick", missionCtx.Ticks()),
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(logOut, level, otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", logFilePath, "version", Version, "build", BuildDate)
}

func setupMission(name string, opts options) error {
	var err error
	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(dbLogger))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	classes := shipclass.Default()
	if opts.classes != "" {
		classes, err = shipclass.Load(opts.classes)
		if err != nil {
			return err
		}
		Logger.Info("Loaded ship classes", "path", opts.classes, "classes", len(classes.Names()))
	}

	missionCtx, err = mission.New(mission.Options{
		Name:       name,
		Logger:     Logger,
		Classes:    classes,
		Events:     eventDispatcher,
		Ship:       config.GetShipConfig(),
		Lifecycle:  config.GetLifecycleConfig(),
		Combat:     config.GetCombatConfig(),
		Teams:      config.GetTeamConfig(),
		TickLength: opts.dt,
	})
	if err != nil {
		return fmt.Errorf("creating mission: %w", err)
	}

	commands = dispatcher.NewCommands(logging.NewDispatcherLogger(dbLogger))
	missionCtx.RegisterCommands(commands, parser.NewParser(Logger))
	commands.Register("save", func(dispatcher.Command) (any, error) {
		return missionCtx.Session().String(), saveMission()
	})
	commands.Register("status", func(dispatcher.Command) (any, error) {
		if monitorService == nil {
			return nil, errors.New("monitor not initialized")
		}
		_, out := monitorService.GetProgramStatus()
		return out, nil
	})
	return nil
}

func setupMonitor(ctx context.Context) {
	cfg := config.GetMonitorConfig()
	deps := monitor.Dependencies{
		Mission:  missionCtx,
		Logger:   Logger,
		Interval: cfg.Interval,
	}
	if OTelProvider != nil {
		deps.Meter = OTelProvider.Meter("github.com/shipcore/shipcore/internal/monitor")
	}

	// a disabled monitor still answers the status command
	if !cfg.Enabled {
		monitorService = monitor.NewService(deps)
		return
	}

	deps.Sinks = append(deps.Sinks, monitor.StorageSink{Backend: storageBackend})
	if cfg.CSVDir != "" {
		out, err := telemetry.NewOutputManager(cfg.CSVDir)
		if err != nil {
			Logger.Error("Failed to open CSV telemetry", "error", err, "dir", cfg.CSVDir)
		} else {
			deps.Sinks = append(deps.Sinks, monitor.CSVSink{Out: out})
		}
	}

	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		m := influx.NewManager(dbLogger, influxCfg)
		if err := m.Connect(ctx); err != nil {
			Logger.Error("Failed to connect to InfluxDB", "error", err)
		} else {
			deps.Sinks = append(deps.Sinks, monitor.InfluxSink{Manager: m})
		}
	}

	monitorService = monitor.NewService(deps)
	monitorService.Start()
}

// runCommand dispatches one command and prints its result.
func runCommand(cmd dispatcher.Command) {
	result, err := commands.Dispatch(cmd)
	if err != nil {
		Logger.Warn("Command failed", "command", cmd.Name, "line", cmd.Line, "error", err)
		fmt.Printf("%d: %s: error: %v\n", cmd.Line, cmd.Name, err)
		return
	}
	if result != nil {
		fmt.Printf("%d: %s: %v\n", cmd.Line, cmd.Name, result)
	}
}

func run(opts options) error {
	ctx := context.Background()

	var sc *Scenario
	name := config.GetString("missionName")
	if opts.scenario != "" {
		var err error
		sc, err = LoadScenario(opts.scenario)
		if err != nil {
			return err
		}
		if sc.Name != "" {
			name = sc.Name
		}
	}

	if err := setupMission(name, opts); err != nil {
		return err
	}
	if err := initStorage(); err != nil {
		return err
	}
	storage.RecordEvents(eventDispatcher, storageBackend, func() string {
		return missionCtx.Session().String()
	}, 1024)
	setupMonitor(ctx)

	if opts.resume != "" {
		save, err := storageBackend.LoadMission(opts.resume)
		if err != nil {
			return fmt.Errorf("resuming %q: %w", opts.resume, err)
		}
		if err := missionCtx.Load(save); err != nil {
			Logger.Warn("Mission restored with errors", "error", err)
		}
		Logger.Info("Mission restored", "session", save.SessionID, "ships", missionCtx.Len())
	}

	extraTicks := opts.ticks
	if sc != nil {
		for _, entry := range sc.Ships {
			spawn, err := entry.SpawnData()
			if err == nil {
				_, err = missionCtx.Spawn(spawn)
			}
			if err != nil {
				Logger.Warn("Scenario ship skipped", "ship", entry.Name, "error", err)
			}
		}

		script, err := parser.NewParser(Logger).ParseScript(sc.Script)
		if err != nil {
			return err
		}
		for _, cmd := range script {
			runCommand(cmd)
		}
		extraTicks += sc.Ticks
	}

	for i := 0; i < extraTicks; i++ {
		missionCtx.Tick(opts.dt)
	}

	if err := saveMission(); err != nil {
		return err
	}
	if monitorService != nil {
		_, out := monitorService.GetProgramStatus()
		fmt.Println(out)
	}
	return nil
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if monitorService != nil {
		if err := monitorService.Close(); err != nil {
			Logger.Error("Failed to close monitor sinks", "error", err)
		}
	}
	if eventDispatcher != nil {
		eventDispatcher.Close()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Error("Failed to shut down OTel provider", "error", err)
		}
	}
	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
	}
	if closer, ok := SlogManager.Graylog.(io.Closer); ok {
		closer.Close()
	}
	if LogFile != nil {
		LogFile.Close()
	}
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	setupLogging(opts)
	Logger.Info("Starting up...")

	err = run(opts)
	shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}
