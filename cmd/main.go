// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/event-reservations/internal/auth"
	"github.com/Shivanand-hulikatti/event-reservations/internal/clock"
	"github.com/Shivanand-hulikatti/event-reservations/internal/config"
	"github.com/Shivanand-hulikatti/event-reservations/internal/database"
	"github.com/Shivanand-hulikatti/event-reservations/internal/handler"
	"github.com/Shivanand-hulikatti/event-reservations/internal/mail"
	"github.com/Shivanand-hulikatti/event-reservations/internal/memstore"
	"github.com/Shivanand-hulikatti/event-reservations/internal/model"
	"github.com/Shivanand-hulikatti/event-reservations/internal/notify"
	"github.com/Shivanand-hulikatti/event-reservations/internal/repository"
	"github.com/Shivanand-hulikatti/event-reservations/internal/service"
	"github.com/Shivanand-hulikatti/event-reservations/internal/storage"
	"github.com/Shivanand-hulikatti/event-reservations/internal/ticket"
)

func main() {
	var (
		configPath string
		store      string
		migrate    bool
		issueToken string
	)
	pflag.StringVar(&configPath, "config", "", "path to a YAML config file")
	pflag.StringVar(&store, "store", "", "storage backend: postgres or memory (overrides config)")
	pflag.BoolVar(&migrate, "migrate", true, "apply database migrations on startup")
	pflag.StringVar(&issueToken, "issue-token", "", "print a 24h bearer token for USER_ID:ROLE and exit (local development)")
	pflag.Parse()

	cfg, err := config.Load(configPath)
	if err == nil && store != "" {
		cfg.Store = store
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if issueToken != "" {
		if err := printToken(cfg, issueToken); err != nil {
			fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, migrate, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// ledger is the reservation store used by both the controller and the
// ticket issuer.
type ledger interface {
	service.ReservationStore
	ticket.ReservationStore
}

type inbox interface {
	service.InboxStore
	notify.Inbox
}

// stores is the set of persistence ports, backed by one implementation.
type stores struct {
	tx            service.TxRunner
	events        service.EventStore
	capacity      service.CapacityStore
	reservations  ledger
	profiles      service.ProfileStore
	notifications inbox
}

func run(cfg config.Config, migrate bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage backend ────────────────────────────────────────────────
	var st stores
	switch cfg.Store {
	case config.StoreMemory:
		mem := memstore.New()
		st = stores{tx: mem, events: mem, capacity: mem, reservations: mem, profiles: mem, notifications: mem}
		logger.Warn("using in-memory store; data is lost on exit")
	default:
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		logger.Info("connected to PostgreSQL", "host", cfg.Database.Host, "db", cfg.Database.DBName)

		if migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		events := repository.NewEventRepository(pool)
		st = stores{
			tx:            events,
			events:        events,
			capacity:      events,
			reservations:  repository.NewReservationRepository(pool),
			profiles:      repository.NewProfileRepository(pool),
			notifications: repository.NewNotificationRepository(pool),
		}
	}

	objects, err := storage.NewDisk(cfg.Storage.Dir, cfg.Storage.BaseURL)
	if err != nil {
		return err
	}

	// ── 2. Notification dispatcher ────────────────────────────────────────
	dispatcher := notify.NewDispatcher(
		notify.NewMemoryQueue(cfg.Notify.QueueSize),
		notify.WithWorkers(cfg.Notify.Workers),
		notify.WithTaskTimeout(cfg.Notify.TaskTimeout),
		notify.WithLogger(logger.With("component", "notify")),
	)
	dispatcher.Start()
	mailer := mail.NewSender(cfg.Mail.ResendAPIKey, cfg.Mail.From, cfg.Mail.Endpoint, logger.With("component", "mail"))
	clk := clock.NewSystem()
	notifier := notify.NewNotifier(dispatcher, mailer, st.notifications, st.profiles, clk, logger.With("component", "notify"))

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	signer := ticket.NewSigner([]byte(cfg.Ticket.SigningSecret))
	authn := auth.NewAuthenticator([]byte(cfg.Auth.JWTSecret), logger)

	router := handler.NewRouter(handler.Deps{
		Events: service.NewEventService(st.events, clk, logger),
		Reservations: service.NewReservationService(
			st.tx, st.events, st.capacity, st.reservations, notifier,
			service.WithClock(clk), service.WithLogger(logger.With("component", "reservations")),
		),
		Issuer: ticket.NewIssuer(
			st.reservations, st.events, st.profiles, objects, signer,
			ticket.NewPDFRenderer(""), cfg.Ticket.PublicBaseURL, logger.With("component", "ticket"),
		),
		Verifier:     ticket.NewVerifier(st.reservations, st.events, st.profiles, objects, signer),
		Profiles:     service.NewProfileService(st.profiles, st.notifications, objects, clk, logger),
		Authenticate: authn.Middleware,
		FilesDir:     objects.Root(),
		Logger:       logger,
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Requests are drained first so their notifications are queued
		// before the dispatcher stops accepting work.
		if derr := dispatcher.Close(shutdownCtx); derr != nil {
			logger.Warn("notification queue not drained", "error", derr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printToken(cfg config.Config, spec string) error {
	userID, role, ok := strings.Cut(spec, ":")
	if !ok {
		return errors.New("expected USER_ID:ROLE")
	}
	authn := auth.NewAuthenticator([]byte(cfg.Auth.JWTSecret), nil)
	token, err := authn.IssueToken(userID, model.Role(role), 24*time.Hour)
	if err != nil {
		return err
	}
	if _, err := authn.Parse(token); err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
