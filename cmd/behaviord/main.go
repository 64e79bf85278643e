// Command behaviord loads behavior graphs, spawns agents with simulated
// bodies and ticks them, exposing the world over HTTP and MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AaronLay10/behaviorgraph/internal/api"
	"github.com/AaronLay10/behaviorgraph/internal/command"
	"github.com/AaronLay10/behaviorgraph/internal/config"
	"github.com/AaronLay10/behaviorgraph/internal/events"
	"github.com/AaronLay10/behaviorgraph/internal/graph"
	"github.com/AaronLay10/behaviorgraph/internal/logging"
	"github.com/AaronLay10/behaviorgraph/internal/mqtt"
	"github.com/AaronLay10/behaviorgraph/internal/sim"
	"github.com/AaronLay10/behaviorgraph/internal/skills"
	"github.com/AaronLay10/behaviorgraph/internal/storage/postgres"
	"github.com/AaronLay10/behaviorgraph/internal/version"
	"github.com/AaronLay10/behaviorgraph/internal/world"
)

func main() {
	configPath := flag.String("config", "config/runtime.yaml", "path to runtime.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("behaviord failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.RuntimeConfig, log *slog.Logger) error {
	api.InitMetrics()
	api.SetServiceName(cfg.ServiceName())
	if err := api.InitTLS(cfg.TLSFiles()); err != nil {
		return err
	}
	api.InitAlerts()
	if err := api.InitAuth(); err != nil {
		return err
	}

	pg := openPostgres(cfg, log)
	if pg != nil {
		defer pg.Close()
		events.SetSink(pg)
		api.SetEventHistory(pg)
		api.SetGraphStore(pg)
	}

	catalog, err := loadSkills(cfg)
	if err != nil {
		return err
	}

	w := world.New(world.Options{
		Workers:      cfg.Workers(),
		LenientNames: cfg.Service.LenientNames,
		Skills:       catalog,
		Logger:       log,
	})

	defs, err := loadGraphs(cfg, pg, log)
	if err != nil {
		return err
	}
	for name, def := range defs {
		w.AddGraph(name, def)
	}

	g, ctx := errgroup.WithContext(ctx)

	bridge, client := startMQTT(ctx, g, cfg, w, log)
	if client != nil {
		defer func() {
			bridge.SetServiceState(cfg.ServiceName(), mqtt.StateOffline)
			client.Disconnect()
		}()
	}

	queue, err := openCommandQueue(ctx, cfg, log)
	if err != nil {
		return err
	}
	if queue != nil {
		defer queue.Close()
		api.SetCommandQueue(queue, cfg.Commands.Driver)
		dispatcher := command.NewDispatcher(w, cfg.Commands.Driver, cfg.Commands.Workers, log)
		g.Go(func() error { return dispatcher.Run(ctx, queue) })
	}

	if err := spawnAgents(w, cfg.Agents, log); err != nil {
		return err
	}
	if bridge != nil {
		for _, a := range w.Agents() {
			bridge.Announce(a.ID, a.Graph, a.Spawned)
		}
	}

	api.SetWorld(w)
	api.SetWorldReady(true)
	api.StartAlertMonitor(ctx, 10*time.Second)
	api.WatchHalts(ctx)
	go watchConnections(ctx, client, pg, queue)

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "behaviord starting", map[string]interface{}{
		"service":  cfg.ServiceName(),
		"hostname": hostname,
		"pid":      os.Getpid(),
		"version":  version.Version,
		"graphs":   len(defs),
		"agents":   w.Len(),
	})

	g.Go(func() error { return w.Run(ctx, cfg.TickInterval()) })
	g.Go(func() error { return api.Serve(ctx, cfg.HTTPPort(), log) })

	err = g.Wait()

	api.SetWorldReady(false)
	events.Emit("info", "system.shutdown", "behaviord stopping", map[string]interface{}{
		"service": cfg.ServiceName(),
		"agents":  w.Len(),
	})
	events.CloseAllSubscribers()
	return err
}

// openPostgres connects when enabled. A failed connection leaves the daemon
// running without persistence and marks the dependency not ready.
func openPostgres(cfg *config.RuntimeConfig, log *slog.Logger) *postgres.Client {
	if !cfg.Postgres.Enabled {
		api.SetDependencyState(api.DepPostgres, false, true)
		return nil
	}
	pw, err := config.ResolveSecret("PGPASSWORD")
	if err != nil {
		log.Error("failed to resolve PGPASSWORD", "error", err)
		api.SetDependencyState(api.DepPostgres, false, false)
		return nil
	}
	pg, err := postgres.Open(postgres.ConfigFromEnv(pw))
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		api.SetDependencyState(api.DepPostgres, false, false)
		return nil
	}
	api.SetDependencyState(api.DepPostgres, true, false)
	log.Info("postgres connected")
	return pg
}

func loadSkills(cfg *config.RuntimeConfig) (*skills.Catalog, error) {
	if cfg.Skills.Path == "" {
		return skills.NewCatalog()
	}
	catalog, err := skills.Load(cfg.Skills.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}
	return catalog, nil
}

// loadGraphs reads the graph directory, then overlays stored graphs when
// from_store is set.
func loadGraphs(cfg *config.RuntimeConfig, pg *postgres.Client, log *slog.Logger) (map[string]*graph.Definition, error) {
	defs, err := graph.LoadDir(cfg.GraphDir())
	if err != nil {
		return nil, err
	}
	if !cfg.Graphs.FromStore {
		return defs, nil
	}
	if pg == nil {
		log.Warn("graphs.from_store set but postgres is unavailable")
		return defs, nil
	}

	rows, err := pg.ListGraphs()
	if err != nil {
		return nil, fmt.Errorf("failed to list stored graphs: %w", err)
	}
	for _, row := range rows {
		stored, err := pg.LoadGraph(row.Name)
		if err != nil {
			return nil, err
		}
		def, err := graph.Parse([]byte(stored.Document))
		if err != nil {
			return nil, fmt.Errorf("stored graph %s: %w", row.Name, err)
		}
		defs[row.Name] = def
		log.Info("loaded stored graph", "graph", row.Name, "revision", stored.Revision)
	}
	return defs, nil
}

func startMQTT(ctx context.Context, g *errgroup.Group, cfg *config.RuntimeConfig, w *world.World, log *slog.Logger) (*mqtt.Bridge, *mqtt.Client) {
	if !cfg.MQTT.Enabled {
		api.SetDependencyState(api.DepMQTT, false, true)
		return nil, nil
	}

	user, err := config.ResolveSecret("MQTT_USERNAME")
	if err == nil {
		var pass string
		pass, err = config.ResolveSecret("MQTT_PASSWORD")
		cfg.MQTT.Username, cfg.MQTT.Password = user, pass
	}
	if err != nil {
		log.Warn("failed to resolve mqtt credentials", "error", err)
	}

	topics := mqtt.Topics{Prefix: cfg.TopicPrefix()}
	client := mqtt.NewClient(mqtt.Options{
		Broker:      cfg.MQTTBroker(),
		ClientID:    cfg.MQTTClientID(),
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		WillTopic:   topics.ServiceStatus(),
		WillPayload: mqtt.ServiceStatusPayload(cfg.ServiceName(), mqtt.StateOffline),
		Logger:      log,
	})
	connected := client.StartWithRetry()
	api.SetDependencyState(api.DepMQTT, connected, false)

	bridge := mqtt.NewBridge(client, topics, w, log)
	if err := bridge.Start(); err != nil {
		log.Warn("mqtt command subscription failed", "error", err)
	}
	bridge.SetServiceState(cfg.ServiceName(), mqtt.StateOnline)
	g.Go(func() error { return bridge.Run(ctx) })
	return bridge, client
}

// openCommandQueue builds the configured command queue, or returns nil when
// no driver is set. Unlike postgres, a configured queue that cannot connect
// stops startup.
func openCommandQueue(ctx context.Context, cfg *config.RuntimeConfig, log *slog.Logger) (command.Queue, error) {
	qc := cfg.Commands
	switch qc.Driver {
	case "":
		api.SetDependencyState(api.DepCommands, false, true)
		return nil, nil
	case config.DriverMemory:
		api.SetDependencyState(api.DepCommands, true, true)
		return command.NewMemoryQueue(qc.Buffer), nil
	case config.DriverRedis:
		pw, err := config.ResolveSecret("REDIS_PASSWORD")
		if err != nil {
			return nil, fmt.Errorf("failed to resolve REDIS_PASSWORD: %w", err)
		}
		q, err := command.NewRedisQueue(ctx, command.RedisConfig{
			Address:   cfg.RedisAddress(),
			Password:  pw,
			DB:        qc.Redis.DB,
			Queue:     qc.Redis.Queue,
			BlockWait: qc.Redis.BlockWait,
		})
		if err != nil {
			return nil, err
		}
		api.SetDependencyState(api.DepCommands, true, false)
		log.Info("command queue connected", "driver", qc.Driver, "address", cfg.RedisAddress())
		return q, nil
	case config.DriverRabbitMQ:
		q, err := command.NewRabbitMQQueue(command.RabbitMQConfig{
			URL:        cfg.RabbitMQURL(),
			Queue:      qc.RabbitMQ.Queue,
			Prefetch:   qc.RabbitMQ.Prefetch,
			Durable:    qc.RabbitMQ.Durable,
			AutoDelete: qc.RabbitMQ.AutoDelete,
		})
		if err != nil {
			return nil, err
		}
		api.SetDependencyState(api.DepCommands, true, false)
		log.Info("command queue connected", "driver", qc.Driver)
		return q, nil
	}
	return nil, fmt.Errorf("unknown command queue driver: %s", qc.Driver)
}

// spawnAgents creates the configured population. Agent i of a spec with a
// seed uses seed+i for both its interpreter and its body.
func spawnAgents(w *world.World, specs []config.AgentSpec, log *slog.Logger) error {
	for _, spec := range specs {
		for i := 0; i < spec.Count; i++ {
			var seed uint64
			if spec.Seed != 0 {
				seed = spec.Seed + uint64(i)
			}
			bodySeed := seed
			if bodySeed == 0 {
				bodySeed = rand.Uint64()
			}
			a, err := w.Spawn(spec.Graph, sim.New(bodySeed, sim.DefaultOptions()), seed)
			if err != nil {
				return fmt.Errorf("failed to spawn %s: %w", spec.Graph, err)
			}
			log.Info("agent spawned", "agent", a.ID, "graph", spec.Graph)
		}
	}
	return nil
}

// watchConnections refreshes dependency readiness until ctx is done.
func watchConnections(ctx context.Context, client *mqtt.Client, pg *postgres.Client, queue command.Queue) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	pinger, _ := queue.(interface{ Ping(context.Context) error })
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if client != nil {
			api.SetDependencyState(api.DepMQTT, client.IsConnected(), false)
		}
		if pg != nil {
			api.SetDependencyState(api.DepPostgres, pg.Ping() == nil, false)
		}
		if pinger != nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			api.SetDependencyState(api.DepCommands, pinger.Ping(pingCtx) == nil, false)
			cancel()
		}
	}
}
