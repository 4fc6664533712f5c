package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"air_monitor/internal/handlers"
	"air_monitor/internal/ingest"
	"air_monitor/internal/logger"
	"air_monitor/internal/repository"
	"air_monitor/internal/repository/db"
	"air_monitor/internal/server"
	"air_monitor/internal/service"

	"github.com/spf13/viper"
)

const (
	defaultSimTick  = 1 * time.Second
	shutdownTimeout = 10 * time.Second
	connectTimeout  = 10 * time.Second
)

func main() {
	// load config.yml before the logger so log_level applies
	cfgErr := loadConfig()

	// init logger
	log := logger.Get(viper.GetString("log_level"))
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	if err := useMaintenanceStore(ctx, repos, log); err != nil {
		log.Fatalw("failed to init maintenance store", "err", err)
	}

	deps, closeIngest, err := openIngest(log)
	if err != nil {
		log.Fatalw("failed to init ingest", "err", err, "driver", viper.GetString("ingest.driver"))
	}
	defer func() {
		if cerr := closeIngest.Close(); cerr != nil {
			log.Errorw("failed to close ingest", "err", cerr)
		}
	}()
	deps.Log = log
	deps.Config = serviceConfig()

	services := service.NewService(repos, deps)
	apiHandler := handlers.NewHandler(services, log)

	// start simulator (only with the simulator driver)
	if services.Simulator != nil {
		go services.Simulator.Run(ctx, durationOr("ingest.sim_tick", defaultSimTick))
	}

	// subscribe and run the startup maintenance check
	if err := services.Session.Start(ctx); err != nil {
		log.Fatalw("failed to start monitoring session", "err", err)
	}

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, services.Session, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	viper.SetEnvPrefix("AIRMON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()
	return viper.ReadInConfig()
}

func setDefaults() {
	viper.SetDefault("port", server.DefaultPort)
	viper.SetDefault("log_level", logger.InfoLevel)
	viper.SetDefault("db.path", "air_monitor.db")
	viper.SetDefault("ingest.driver", "simulator")
	viper.SetDefault("ingest.path", ingest.DefaultPath)
	viper.SetDefault("ingest.sim_tick", defaultSimTick)
	viper.SetDefault("mqtt.client_id", "air-monitor")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("kafka.group_id", "air-monitor")
	viper.SetDefault("alerts.cooldown", service.DefaultAlertCooldown)
	viper.SetDefault("maintenance.store", "sqlite")
	viper.SetDefault("maintenance.interval", service.DefaultMaintenanceInterval)
	viper.SetDefault("redis.key", repository.DefaultMaintenanceKey)
	viper.SetDefault("auth.token_ttl", time.Hour)
}

func serviceConfig() service.Config {
	return service.Config{
		Path:                viper.GetString("ingest.path"),
		AlertCooldown:       durationOr("alerts.cooldown", service.DefaultAlertCooldown),
		MaintenanceInterval: durationOr("maintenance.interval", service.DefaultMaintenanceInterval),
		SigningKey:          viper.GetString("auth.signing_key"),
		TokenTTL:            durationOr("auth.token_ttl", time.Hour),
	}
}

func durationOr(key string, def time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return def
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "air_monitor.db")
		dbPath = "air_monitor.db"
	}
	return db.InitDB(dbPath)
}

// useMaintenanceStore swaps the SQLite maintenance record for Redis when
// several processes share one device.
func useMaintenanceStore(ctx context.Context, repos *repository.Repository, log *logger.Logger) error {
	switch store := viper.GetString("maintenance.store"); store {
	case "", "sqlite":
		return nil
	case "redis":
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		client, err := repository.NewRedisClient(cctx, viper.GetString("redis.addr"))
		if err != nil {
			return err
		}
		repos.Maintenance = repository.NewMaintenanceRedis(client, viper.GetString("redis.key"))
		log.Infow("maintenance store", "store", "redis", "addr", viper.GetString("redis.addr"))
		return nil
	default:
		return fmt.Errorf("unknown maintenance.store %q", store)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openIngest builds the snapshot source and device resetter for the
// configured driver.
func openIngest(log *logger.Logger) (service.Deps, io.Closer, error) {
	path := viper.GetString("ingest.path")
	switch driver := viper.GetString("ingest.driver"); driver {
	case "", "simulator":
		feed := ingest.NewFeed()
		return service.Deps{
			Source:   feed,
			Resetter: ingest.LogResetter{Log: log.Component("resetter")},
			Feed:     feed,
		}, nopCloser{}, nil
	case "mqtt":
		src, err := ingest.DialMQTT(ingest.MQTTConfig{
			Broker:     viper.GetString("mqtt.broker"),
			ClientID:   viper.GetString("mqtt.client_id"),
			Username:   viper.GetString("mqtt.username"),
			Password:   viper.GetString("mqtt.password"),
			QoS:        byte(viper.GetInt("mqtt.qos")),
			ResetTopic: path + "/reset",
			Timeout:    connectTimeout,
		})
		if err != nil {
			return service.Deps{}, nil, err
		}
		return service.Deps{Source: src, Resetter: src}, src, nil
	case "kafka":
		src := ingest.NewKafkaSource(ingest.KafkaConfig{
			Brokers:    viper.GetStringSlice("kafka.brokers"),
			GroupID:    viper.GetString("kafka.group_id"),
			ResetTopic: path + ".reset",
		})
		return service.Deps{Source: src, Resetter: src}, src, nil
	default:
		return service.Deps{}, nil, fmt.Errorf("unknown ingest.driver %q", driver)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http server listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, session service.Session, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines and the subscription
	cancel()
	session.Close()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
