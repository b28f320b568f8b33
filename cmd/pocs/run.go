package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	_ "github.com/panoptes/pocs-core/migrations"

	"github.com/panoptes/pocs-core/internal/api"
	"github.com/panoptes/pocs-core/internal/audit"
	"github.com/panoptes/pocs-core/internal/command"
	"github.com/panoptes/pocs-core/internal/dispatch"
	"github.com/panoptes/pocs-core/internal/infrastructure/config"
	"github.com/panoptes/pocs-core/internal/infrastructure/database"
	"github.com/panoptes/pocs-core/internal/infrastructure/influxdb"
	"github.com/panoptes/pocs-core/internal/infrastructure/logging"
	"github.com/panoptes/pocs-core/internal/messaging"
	"github.com/panoptes/pocs-core/internal/metrics"
	"github.com/panoptes/pocs-core/internal/observatory"
	"github.com/panoptes/pocs-core/internal/queue"
	"github.com/panoptes/pocs-core/internal/safety"
	"github.com/panoptes/pocs-core/internal/statemachine"
	"github.com/panoptes/pocs-core/internal/supervisor"
	"github.com/panoptes/pocs-core/internal/weather"
)

// unitWatchInterval is how often messaging unit liveness is exported.
const unitWatchInterval = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the unit supervisor",
	Long: `Run the unit supervisor until it powers down or receives SIGINT/SIGTERM.

Starts the command and telemetry relays, the command listener, the
safety monitor, the control loop and the HTTP status server. Either
signal powers the unit down: the mount is parked and every messaging
unit is terminated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// run is the actual application logic, separated from the command for
// testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting POCS",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", getConfigPath(),
		"unit", cfg.Unit.Name,
		"simulators", cfg.Simulator,
	)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	commands, err := openQueue(ctx, cfg, queue.NameCommand, log)
	if err != nil {
		return err
	}
	defer commands.Close() //nolint:errcheck // shutdown
	schedule, err := openQueue(ctx, cfg, queue.NameSchedule, log)
	if err != nil {
		return err
	}
	defer schedule.Close() //nolint:errcheck // shutdown

	store, err := weather.Open(cfg.Weather, influxClient, db)
	if err != nil {
		return fmt.Errorf("opening weather store: %w", err)
	}

	m := metrics.New()

	machine, err := statemachine.New(cfg.Control.InitialState)
	if err != nil {
		return fmt.Errorf("creating state machine: %w", err)
	}
	machine.SetLogger(log.Component("statemachine"))
	machine.OnTransition(m.Transition)
	m.SetState(machine.State())

	if !cfg.HasSimulator(config.SimulatorMount) {
		log.Warn("no mount driver available, using the simulated mount")
	}
	obs := observatory.NewSimulator(cfg.Unit.Name, observatory.DefaultNight, clock.RealClock{})

	monitor := safety.NewMonitor(safety.Config{
		SimulateNight:     cfg.HasSimulator(config.SimulatorNight),
		SimulateWeather:   cfg.HasSimulator(config.SimulatorWeather),
		WeatherStale:      cfg.GetWeatherStale(),
		RequiredFreeSpace: cfg.GetRequiredFreeSpace(),
		Directory:         cfg.Unit.Directory,
	}, obs, store)
	monitor.SetLogger(log.Component("safety"))
	monitor.SetController(machine)
	monitor.AddRecorder(m)
	if influxClient != nil {
		monitor.AddRecorder(safety.NewInfluxRecorder(influxClient, cfg.Unit.Name))
	}

	commandRepo := audit.NewSQLiteRepository(db.DB)
	commandLog := audit.NewCommandLog(commandRepo)
	commandLog.SetLogger(log.Component("audit"))

	dispatcher := dispatch.New()
	dispatcher.SetLogger(log.Component("dispatch"))
	dispatcher.AddObserver(commandLog)
	dispatcher.AddObserver(m)

	deps := supervisor.Deps{
		Name:        cfg.Unit.Name,
		SleepDelay:  cfg.GetSleepDelay(),
		SafeDelay:   cfg.GetSafeDelay(),
		Machine:     machine,
		Observatory: obs,
		Safety:      monitor,
		Dispatcher:  dispatcher,
		Logger:      log.Component("supervisor"),
	}

	var topology *messaging.Topology
	if cfg.Messaging.Enabled {
		topology = messaging.NewTopology(cfg, commands)
		topology.SetLogger(log.Component("messaging"))
		topology.SetRecorder(commandRecorders{commandLog, m})
		topology.SetConnectionRecorder(m)
		deps.Messaging = topology
		deps.CommandQueue = commands
		deps.ScheduleQueue = schedule
	} else {
		log.Info("messaging disabled")
	}

	sup, err := supervisor.New(deps)
	if err != nil {
		return fmt.Errorf("creating supervisor: %w", err)
	}

	if topology != nil {
		if err := sup.StartMessaging(ctx); err != nil {
			return fmt.Errorf("starting messaging: %w", err)
		}
		defer func() {
			if closeErr := topology.Close(); closeErr != nil {
				log.Debug("closing messaging topology", "error", closeErr)
			}
		}()
	}

	if cfg.API.Enabled {
		checks := map[string]api.HealthChecker{"database": db}
		if influxClient != nil {
			checks["influxdb"] = influxClient
		}
		server, err := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log.Component("api"),
			Unit:     sup,
			Safety:   monitor,
			Commands: commandRepo,
			Checks:   checks,
			Metrics:  m.Handler(),
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer stop()
		return sup.Run(gctx)
	})
	g.Go(func() error {
		watchUnits(gctx, sup, m)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("running unit: %w", err)
	}

	log.Info("POCS stopped", "unit", cfg.Unit.Name)
	return nil
}

func openQueue(ctx context.Context, cfg *config.Config, name string, log *logging.Logger) (queue.Queue, error) {
	q, err := queue.Open(ctx, cfg.Queue, name)
	if err != nil {
		return nil, fmt.Errorf("opening %s queue: %w", name, err)
	}
	log.Info("queue ready", "name", name, "backend", cfg.Queue.Backend)
	return q, nil
}

// uptimer is implemented by units backed by an OS process.
type uptimer interface {
	Uptime() time.Duration
}

// watchUnits exports messaging unit liveness and relay uptime until ctx
// is done.
func watchUnits(ctx context.Context, sup *supervisor.Supervisor, m *metrics.Metrics) {
	ticker := time.NewTicker(unitWatchInterval)
	defer ticker.Stop()

	for {
		for _, u := range sup.Units() {
			m.SetUnitAlive(u.Name(), u.Alive())
			if r, ok := u.(uptimer); ok {
				m.SetUnitUptime(u.Name(), r.Uptime())
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// commandRecorders fans received commands out to several recorders.
type commandRecorders []messaging.CommandRecorder

func (rs commandRecorders) Received(ctx context.Context, c command.Command) {
	for _, r := range rs {
		r.Received(ctx, c)
	}
}
