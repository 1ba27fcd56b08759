package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/khlpkg/gateway"
	"github.com/khlpkg/gateway/config"
	"github.com/khlpkg/gateway/errorrate"
	"github.com/khlpkg/gateway/event"
	"github.com/khlpkg/gateway/gatewayutil"
	"github.com/khlpkg/gateway/gatewayutil/log"
	"github.com/khlpkg/gateway/plugin"
	"github.com/khlpkg/gateway/plugin/natsrelay"
	"github.com/khlpkg/gateway/rest"
	"github.com/khlpkg/gateway/rolecache"
)

const alertSubject = "khl.alerts"

// alertHook publishes warnings and errors to NATS.
type alertHook struct {
	conn *nats.Conn
}

var _ logrus.Hook = &alertHook{}

func (h *alertHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.ErrorLevel,
		logrus.FatalLevel,
		logrus.PanicLevel,
		logrus.WarnLevel,
	}
}

func (h *alertHook) Fire(entry *logrus.Entry) error {
	if err := h.conn.Publish(alertSubject, []byte(fmt.Sprintf("[%s] %s", entry.Level, entry.Message))); err != nil {
		return fmt.Errorf("unable to publish alert. %w", err)
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to a yaml configuration file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("unable to read .env file: ", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("invalid configuration: ", err)
	}
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}
	gatewayLogger := log.New(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restOptions := []rest.Option{
		rest.WithRateLimiter(gatewayutil.NewRequestRateLimiter()),
		rest.WithLogger(gatewayLogger.WithField("component", "rest")),
	}
	if cfg.BaseURL != "" {
		restOptions = append(restOptions, rest.WithBaseURL(cfg.BaseURL))
	}
	api, err := rest.New(cfg.Token, restOptions...)
	if err != nil {
		logger.Fatal("unable to create http api client: ", err)
	}

	cacheOptions := []rolecache.Option{rolecache.WithLogger(gatewayLogger.WithField("component", "rolecache"))}
	if cfg.RedisURL != "" {
		rdb, err := rolecache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("unable to connect to redis: ", err)
		}
		defer rdb.Close()
		cacheOptions = append(cacheOptions, rolecache.WithStore(rolecache.NewRedisStore(rdb, rolecache.DefaultKeyPrefix)))
	}
	roles := rolecache.New(api, cacheOptions...)

	tracerProvider := sdktrace.NewTracerProvider()
	defer func() {
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracerProvider.Shutdown(shutdown)
	}()

	handlers := []plugin.Handler{
		plugin.On("ping", func(ctx context.Context, evt event.Event) (bool, error) {
			if !strings.HasPrefix(evt.Base().Content, ".ping") && !strings.HasPrefix(evt.Base().Content, "。ping") {
				return false, nil
			}
			logger.WithField("author", evt.Base().AuthorID).Info("pong")
			return true, nil
		}, event.GroupText, event.PrivateText),
	}
	if cfg.NATSURL != "" {
		nc, err := natsrelay.Dial(cfg.NATSURL, "khlbot")
		if err != nil {
			logger.Fatal("unable to connect to nats: ", err)
		}
		defer nc.Drain()
		logger.AddHook(&alertHook{conn: nc})

		var relayOptions []natsrelay.Option
		if cfg.NATSSubject != "" {
			relayOptions = append(relayOptions, natsrelay.WithSubjectPrefix(cfg.NATSSubject))
		}
		handlers = append([]plugin.Handler{natsrelay.New(nc, relayOptions...)}, handlers...)
	}
	chain := plugin.NewChain(handlers,
		plugin.WithTracerProvider(tracerProvider),
		plugin.WithLogger(gatewayLogger.WithField("component", "plugin")),
	)

	clientOptions := append(cfg.Options(),
		gateway.WithDispatcher(chain),
		gateway.WithRoleProvider(roles),
		gateway.WithLogger(gatewayLogger.WithField("component", "client")),
	)
	client, err := gateway.NewClient(clientOptions...)
	if err != nil {
		logger.Fatal("unable to create gateway client: ", err)
	}

	monitor := errorrate.New(
		errorrate.WithLogger(gatewayLogger.WithField("component", "errorrate")),
		errorrate.WithAlert(func(failures int) {
			logger.WithField("failures", failures).Error("gateway keeps failing to connect")
		}),
	)
	session, err := gatewayutil.NewSession(client,
		gatewayutil.WithEndpointResolver(api),
		gatewayutil.WithIdentityResolver(api),
		gatewayutil.WithDialRateLimiter(gatewayutil.NewLocalDialRateLimiter(5*time.Second)),
		gatewayutil.WithErrorRateMonitor(monitor),
		gatewayutil.WithDispatchWorkers(cfg.DispatchWorkers),
	)
	if err != nil {
		logger.Fatal("unable to create session: ", err)
	}

	logger.Info("starting gateway session")
	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("session stopped: ", err)
		return
	}
	logger.Info("session stopped")
}
