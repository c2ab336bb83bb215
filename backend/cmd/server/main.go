package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	mqttbroker "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"

	"smart-led-controller/backend/internal/api"
	"smart-led-controller/backend/internal/broadcast"
	"smart-led-controller/backend/internal/config"
	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/export"
	"smart-led-controller/backend/internal/metrics"
	mqttapi "smart-led-controller/backend/internal/mqtt"
	"smart-led-controller/backend/internal/realtime"
	"smart-led-controller/backend/internal/services"
	"smart-led-controller/backend/internal/store"
	"smart-led-controller/backend/pkg/mqtt"
	"smart-led-controller/backend/pkg/router"
	"smart-led-controller/backend/pkg/utils"
)

func main() {
	sigCtx, sigCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer sigCancel()

	config, err := config.New("")
	if err != nil {
		fatalIfErr(slog.Default(), fmt.Errorf("failed to create config: %w", err))
	}

	defer utils.LogOnError(slog.Default(), config.Close, "failed to close config")

	logger := getLogger(config)
	m := metrics.New()

	st, fallback := openStore(sigCtx, logger, config)
	defer utils.LogOnError(logger, st.Close, "failed to close store")

	if config.SeedHistory {
		if _, err := services.SeedHistory(sigCtx, logger, st, control.NewGenerator(nil), time.Now(), config.Location); err != nil {
			logger.Warn("failed to seed reading history", utils.ErrAttr(err))
		}
	}

	// Persistence: breaker-guarded primary store, plus the optional Influx mirror
	resilient := store.NewResilientSink(logger, st, store.BreakerSettings{
		Failures:      config.BreakerFailures,
		OpenFor:       config.BreakerOpenFor,
		OnStateChange: m.SetBreakerState,
	})
	sink := store.Tee{resilient}

	if config.InfluxURL != "" {
		influx := store.NewInfluxSink(logger, store.InfluxConfig{
			URL:    config.InfluxURL,
			Token:  config.InfluxToken,
			Org:    config.InfluxOrg,
			Bucket: config.InfluxBucket,
		})
		defer utils.LogOnError(logger, influx.Close, "failed to close influx client")
		sink = append(sink, influx)
	}

	// Control loop
	engine := control.NewEngine(control.WithLocation(config.Location))
	lighting := services.NewLightingService(logger, engine, broadcast.New(logger, m), sink,
		services.WithTickInterval(config.TickInterval),
		services.WithMetrics(m),
	)

	loopCtx, loopCancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := lighting.Run(loopCtx); err != nil {
			logger.Error("control loop failed", utils.ErrAttr(err))
			sigCancel()
		}
	}()

	services := services.NewServices(logger, st, lighting, config.Location)
	if fallback {
		services.RegisterStoreFallback()
	}
	services.RegisterBreaker(resilient)

	//  MQTT Broker
	var mqttBroker *mqttbroker.Server
	if config.MQTTEnabled {
		mqttAddr := fmt.Sprintf(":%d", config.MQTTBrokerPort)
		mqttBroker, err = getMQTTServer(logger, mqttAddr)
		fatalIfErr(logger, err)

		go func() {
			logger.Info("MQTT broker listening", slog.String("address", mqttAddr))

			if err := mqttBroker.Serve(); err != nil {
				logger.Error("MQTT broker failed", utils.ErrAttr(err))
				sigCancel()
			}
		}()
	}

	// MQTT client
	mb, err := mqtt.NewMQTTBuilder(logger, mqtt.MQTTClientOptions{
		BrokerURL: config.MQTTBroker,
		ClientID:  clientID(config.MQTTClientID),
		Username:  config.MQTTUsername,
		Password:  config.MQTTPassword,
	})
	fatalIfErr(logger, err)

	mqttHandler := mqttapi.NewMQTTHandler(logger, lighting)
	registerMQTTHandlers(logger, mb, mqttHandler)

	go func() {
		if err := mb.Connect(sigCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Failed to connect to MQTT broker", utils.ErrAttr(err))
		}
	}()

	_, err = mqttHandler.AttachTelemetry(sigCtx, mb.Client())
	fatalIfErr(logger, err)
	services.RegisterMQTTClient(mb.Client())

	// Kafka export
	if len(config.KafkaBrokers) > 0 {
		exporter := export.NewKafkaExporter(logger, export.NewKafkaWriter(config.KafkaBrokers, config.KafkaTopic), config.MQTTClientID)
		if _, err := lighting.Subscribe(sigCtx, exporter); err != nil {
			fatalIfErr(logger, fmt.Errorf("failed to attach kafka exporter: %w", err))
		}
		logger.Info("exporting readings to kafka", slog.String("topic", config.KafkaTopic), slog.Any("brokers", config.KafkaBrokers))
	}

	// HTTP
	rb := router.NewRouteBuilder(logger)
	rb.Use(m.Middleware)

	apiHandler := api.NewAPIHandler(logger, services, config.Location)
	ws := realtime.NewHandler(logger, lighting, config.CORSOrigins)
	registerHTTPHandlers(logger, rb, apiHandler, ws, m)

	cors := handlers.CORS(
		handlers.AllowedOrigins(config.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", api.RequestIDHeader}),
		handlers.ExposedHeaders([]string{api.RequestIDHeader}),
	)

	httpServer := api.NewHTTPServer(logger, fmt.Sprintf(":%d", config.Port), cors(rb.Router()))
	httpServer.StartOnBackground(sigCancel)

	// Wait for signal (either OS or some failure)
	<-sigCtx.Done()
	logger.Info("received signal, shutting down...")

	logger.Info("http server shutting down...")
	if err := httpServer.ShutdownWithDefaultTimeout(); err != nil {
		logger.Error("http server shutdown failed", utils.ErrAttr(err))
	}

	// Stopping the loop closes every observer, websocket sessions included
	logger.Info("stopping control loop...")
	loopCancel()
	<-loopDone
	ws.Wait()

	logger.Info("disconnecting from MQTT broker...")
	mb.Disconnect()

	if mqttBroker != nil {
		logger.Info("mqtt broker shutting down...")

		if err := mqttBroker.Close(); err != nil {
			logger.Error("mqtt broker shutdown failed", utils.ErrAttr(err))
		}
	}

	logger.Info("server exited gracefully")
}

// openStore connects to the configured database. When it stays unreachable the server
// runs on an in-memory store so the control loop keeps serving, and fallback is true.
func openStore(ctx context.Context, l *slog.Logger, c *config.Config) (store.Store, bool) {
	st, err := store.OpenWithRetry(ctx, l, c.Dialect, c.Database, c.DBConnectRetries)
	if err == nil {
		return st, false
	}

	l.Error("database unavailable, falling back to in-memory store",
		utils.ErrAttr(err), slog.Int("retention", c.MemoryRetention))
	return store.NewMemoryStore(c.MemoryRetention), true
}

func getMQTTServer(l *slog.Logger, addr string) (*mqttbroker.Server, error) {
	server := mqttbroker.New(&mqttbroker.Options{
		Logger: l.With(slog.String("component", "mqtt-broker")),
	})
	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: addr})

	err := server.AddListener(tcp)
	if err != nil {
		return nil, err
	}

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, err
	}

	return server, nil
}

// registerHTTPHandlers registers all HTTP handlers.
func registerHTTPHandlers(l *slog.Logger, rb *router.RouteBuilder, h *api.Handler, ws *realtime.Handler, m *metrics.Metrics) {
	l.Info("Registering HTTP handlers...")

	h.Register(rb)
	rb.Router().Handle("/ws", ws)
	rb.Router().Handle("/metrics", m.Handler())

	rb.Router().Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/routes", http.StatusFound)
	})

	l.Info("HTTP handlers registered successfully", slog.Int("routes", len(rb.Routes())))
}

// registerMQTTHandlers registers all MQTT handlers.
func registerMQTTHandlers(l *slog.Logger, mb *mqtt.MQTTBuilder, h *mqttapi.Handler) {
	l.Info("Registering MQTT handlers...")
	h.RegisterSensorDataPublish(mb)
	h.RegisterCommandSubscribe(mb)
	l.Info("MQTT handlers registered successfully")
}

// clientID suffixes base so several controllers can share a broker.
func clientID(base string) string {
	id := utils.NewUUID()
	return base + "-" + id[len(id)-8:]
}

func getLogger(config *config.Config) *slog.Logger {
	logOptions := slog.HandlerOptions{
		Level:       config.LogLevel,
		ReplaceAttr: utils.SlogReplacer,
	}

	return slog.New(slog.NewJSONHandler(config.LogOutput, &logOptions)).
		With(slog.String("version", utils.GetVersionShort()))
}

func fatalIfErr(l *slog.Logger, err error) {
	if err == nil {
		return
	}

	l.Error("error", utils.ErrAttr(err))
	os.Exit(1)
}
