package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/auth"
	"github.com/ukydev/fleetflow/internal/config"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/fleet"
	"github.com/ukydev/fleetflow/internal/handlers"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/models"
	"github.com/ukydev/fleetflow/internal/notify"
	"github.com/ukydev/fleetflow/internal/shift"
)

const (
	authRateLimit     = 10
	authRateWindow    = 60 // seconds
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// newRouter builds the view layer. Every route except auth and health needs a
// signed-in identity, and /api/admin needs the admin role claim.
func newRouter(identities handlers.IdentityManager, reader fleet.Reader, session *shift.Session, logger logrus.FieldLogger) http.Handler {
	authMiddleware := middleware.NewAuthMiddleware(identities)
	limit := middleware.NewRateLimitMiddleware().RateLimit(authRateLimit, authRateWindow)
	admin := authMiddleware.RequireRole(models.RoleAdmin)

	authHandler := handlers.NewAuthHandler(identities, logger)
	driverHandler := handlers.NewDriverHandler(session)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health)

	mux.Handle("POST /api/auth/signin", limit(http.HandlerFunc(authHandler.SignIn)))
	mux.Handle("POST /api/auth/signup", limit(http.HandlerFunc(authHandler.SignUp)))
	mux.HandleFunc("POST /api/auth/signout", authHandler.SignOut)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	mux.HandleFunc("GET /api/fleet/snapshot", handlers.FleetSnapshot)

	mux.HandleFunc("GET /api/driver/dashboard", driverHandler.Dashboard)
	mux.HandleFunc("POST /api/driver/checklist/{id}/toggle", driverHandler.ToggleChecklistItem)
	mux.HandleFunc("POST /api/driver/checklist/confirm", driverHandler.ConfirmChecklist)
	mux.HandleFunc("POST /api/driver/clock-in", driverHandler.ClockIn)
	mux.HandleFunc("GET /api/driver/logs", driverHandler.Trips)
	mux.HandleFunc("POST /api/driver/logs", driverHandler.SubmitLog)
	mux.HandleFunc("POST /api/driver/logs/preview", driverHandler.PreviewLog)

	mux.Handle("GET /api/admin/active-drivers", admin(http.HandlerFunc(handlers.ActiveDrivers)))
	mux.Handle("GET /api/admin/maintenance", admin(http.HandlerFunc(handlers.Maintenance)))
	mux.Handle("GET /api/admin/analytics", admin(http.HandlerFunc(handlers.Analytics)))

	var h http.Handler = mux
	h = authMiddleware.Authenticate(h)
	h = middleware.FleetScope(reader)(h)
	h = middleware.RequestLogger(logger)(h)
	return h
}

// resetOnIdentityChange clears the shift session whenever the signed-in
// account changes, including sign-out.
func resetOnIdentityChange(session *shift.Session) auth.Listener {
	var last string
	return func(identity *models.Identity) {
		uid := ""
		if identity != nil {
			uid = identity.UID
		}
		if uid != last {
			session.Reset()
		}
		last = uid
	}
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.Log)

	client, err := db.ConnectMongo(cfg.Mongo.URI)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	logger.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")
	database := client.Database(cfg.Mongo.Database)

	accounts := &db.MongoAccountCollection{Collection: database.Collection(db.CollectionAccounts)}
	if err := accounts.EnsureIndexes(context.Background()); err != nil {
		logger.WithError(err).Warn("Failed to create account indexes")
	}

	service, err := auth.NewService(cfg.Auth)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create auth service")
	}
	resolver := auth.NewResolver(service, accounts, &auth.FileSessionStore{Path: cfg.Auth.SessionFile}, logger)

	aggregator := fleet.NewAggregator(fleet.Sources{
		Drivers:   &db.MongoSource{Collection: database.Collection(db.CollectionDrivers)},
		DailyLogs: &db.MongoSource{Collection: database.Collection(db.CollectionDailyLogs)},
		Vehicles:  &db.MongoSource{Collection: database.Collection(db.CollectionVehicles)},
	}, logger)
	session := shift.NewSession(resolver, &db.MongoCollection{Collection: database.Collection(db.CollectionDailyLogs)}, logger)

	unbind := aggregator.Bind(resolver)
	stopReset := resolver.OnAuthStateChange(resetOnIdentityChange(session))

	if cfg.MQTT.Broker != "" {
		publisher, err := notify.NewMQTTPublisher(cfg.MQTT, logger)
		if err != nil {
			logger.WithError(err).Warn("MQTT disabled, snapshot summaries will not be published")
		} else {
			detach := notify.NewNotifier(publisher, cfg.MQTT.Topic, logger).Attach(aggregator)
			defer publisher.Close()
			defer detach()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := resolver.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to resolve identity")
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(resolver, aggregator, session, logger),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown incomplete")
	}

	stopReset()
	unbind()
	aggregator.Close()
	if err := client.Disconnect(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Failed to disconnect from MongoDB")
	}
}
