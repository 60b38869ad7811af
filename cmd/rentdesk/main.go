package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"rentdesk/internal/app/commands"
	billingapp "rentdesk/internal/app/handlers/billing"
	bookingapp "rentdesk/internal/app/handlers/booking"
	unitsapp "rentdesk/internal/app/handlers/units"
	"rentdesk/internal/app/middleware"
	appoutbox "rentdesk/internal/app/outbox"
	"rentdesk/internal/app/queries"
	"rentdesk/internal/app/schedule"
	appuow "rentdesk/internal/app/uow"
	domainbilling "rentdesk/internal/domain/billing"
	domainuser "rentdesk/internal/domain/user"
	"rentdesk/internal/infra/broker/kafka"
	"rentdesk/internal/infra/config"
	mongodb "rentdesk/internal/infra/db/mongo"
	ginserver "rentdesk/internal/infra/http/gin"
	"rentdesk/internal/infra/notify"
	"rentdesk/internal/infra/obs"
	infraoutbox "rentdesk/internal/infra/outbox"
	"rentdesk/internal/infra/render"
	"rentdesk/internal/infra/storage/memory"
	"rentdesk/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg = config.Config{
			Env:                env,
			HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
			StorageMode:        "memory",
			IdempotencyTTL:     168 * time.Hour,
			OutboxPollInterval: 500 * time.Millisecond,
			OverdueSweepEvery:  time.Hour,
		}
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application bootstrap failed", "error", err)
		os.Exit(1)
	}

	if cfg.StorageMode == "memory" {
		fixturesPath := getenv("USERS_FIXTURES", "")
		if fixturesPath == "" {
			fixturesPath = defaultUserFixturesPath()
		}
		if err := loadUserFixtures(ctx, app.users, fixturesPath, logger); err != nil {
			logger.Warn("user fixtures load failed", "error", err, "path", fixturesPath)
		}
	}

	go func() {
		if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()
	go app.sweeper.Run(ctx)
	if app.notifyConsumer != nil {
		go func() {
			topics := []string{
				cfg.KafkaTopicPrefix + "booking.events.v1",
				cfg.KafkaTopicPrefix + "invoice.events.v1",
			}
			if err := app.notifyConsumer.Run(ctx, topics); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notification consumer stopped", "error", err)
			}
		}()
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		app.close(logger)
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers       ginserver.Handlers
	worker         *infraoutbox.Worker
	sweeper        *schedule.Runner
	notifyConsumer *kafka.Consumer
	producer       *kafka.Producer
	mongoClient    *mongodb.Client
	users          domainuser.Repository
	ready          func() error
}

func buildApplication(cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{ready: func() error { return nil }}

	var (
		uowFactory  appuow.UoWFactory
		recordBox   appoutbox.Outbox
		workerStore infraoutbox.Store
		idStore     middleware.IdempotencyStore
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		app.mongoClient = client
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		mongoBox := infraoutbox.NewMongoStore(client.DB)
		uowFactory = mongodb.Factory{
			DB:           client.DB,
			UnitsRepo:    mongodb.NewUnitRepository(client.DB),
			BookingsRepo: mongodb.NewBookingRepository(client.DB),
			InvoicesRepo: mongodb.NewInvoiceRepository(client.DB),
			LedgerRepo:   mongodb.NewLedgerRepository(client.DB),
			OutboxStore:  mongoBox,
		}
		recordBox = mongoBox
		workerStore = mongoBox
		idStore = mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		app.users = mongodb.NewUserRepository(client.DB)
	default:
		store := memory.NewStore()
		box := memory.NewOutbox()
		uowFactory = memory.Factory{Store: store, Outbox: box}
		recordBox = box
		workerStore = box
		idStore = memory.NewIdempotencyStore()
		app.users = memory.NewUserRepository()
	}

	encoder := appoutbox.JSONEventEncoder{IDGenerator: uuid.NewString}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		UoWFactory: uowFactory,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.ConfirmBookingCommand{}.Key(), &bookingapp.ConfirmBookingHandler{
		UoWFactory: uowFactory,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		UoWFactory: uowFactory,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.CompleteBookingCommand{}.Key(), &bookingapp.CompleteBookingHandler{
		UoWFactory: uowFactory,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, billingapp.GenerateInvoiceCommand{}.Key(), &billingapp.GenerateInvoiceHandler{
		UoWFactory: uowFactory,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, billingapp.PayInvoiceCommand{}.Key(), &billingapp.PayInvoiceHandler{
		UoWFactory: uowFactory,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, billingapp.SweepOverdueCommand{}.Key(), &billingapp.SweepOverdueHandler{
		UoWFactory: uowFactory,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, unitsapp.CreateUnitCommand{}.Key(), &unitsapp.CreateUnitHandler{
		UoWFactory: uowFactory,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, unitsapp.UpdateUnitCommand{}.Key(), &unitsapp.UpdateUnitHandler{
		UoWFactory: uowFactory,
	})
	commands.RegisterHandler(commandBus, unitsapp.DeleteUnitCommand{}.Key(), &unitsapp.DeleteUnitHandler{
		UoWFactory: uowFactory,
		Encoder:    encoder,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.CheckAvailabilityQuery{}.Key(), &bookingapp.CheckAvailabilityHandler{
		UoWFactory: uowFactory,
	})
	queries.RegisterHandler(queryBus, bookingapp.MyBookingsQuery{}.Key(), &bookingapp.MyBookingsHandler{
		UoWFactory: uowFactory,
	})
	queries.RegisterHandler(queryBus, bookingapp.HostBookingsQuery{}.Key(), &bookingapp.HostBookingsHandler{
		UoWFactory: uowFactory,
	})
	queries.RegisterHandler(queryBus, unitsapp.HostUnitsQuery{}.Key(), &unitsapp.HostUnitsHandler{
		UoWFactory: uowFactory,
	})
	queries.RegisterHandler(queryBus, billingapp.LandlordLedgerQuery{}.Key(), &billingapp.LandlordLedgerHandler{
		UoWFactory: uowFactory,
	})
	queries.RegisterHandler(queryBus, billingapp.MonthlyRevenueQuery{}.Key(), &billingapp.MonthlyRevenueHandler{
		UoWFactory: uowFactory,
	})

	dispatchBus := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.OutboxFlush(recordBox),
		middleware.Transaction(uowFactory, nil),
	)
	askBus := middleware.ChainQueries(queryBus)

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			logger.Warn("kafka producer unavailable, events stay local", "error", err)
		} else {
			app.producer = producer
		}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.NotifyGroupID, nil, notify.EventConsumer{
			Notifier: notify.LogNotifier{Logger: logger},
			Logger:   logger,
		})
		if err != nil {
			logger.Warn("kafka consumer unavailable, notifications disabled", "error", err)
		} else {
			app.notifyConsumer = consumer
		}
	}

	var uploader s3.Uploader = s3.NoopUploader{}
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
		if err != nil {
			logger.Warn("object storage unavailable, invoice statements disabled", "error", err)
		} else {
			uploader = client
		}
	}
	renderer := render.InvoiceRenderer{UoWFactory: uowFactory, Uploader: uploader}

	app.worker = &infraoutbox.Worker{
		Store:       workerStore,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		ID:          "rentdesk-" + uuid.NewString(),
		Backoff:     cfg.RetryBackoff,
		Consumers: map[string]infraoutbox.Consumer{
			"booking.confirmed": func(ctx context.Context, doc *infraoutbox.EventDocument) error {
				_, err := commands.Dispatch[billingapp.GenerateInvoiceCommand, *billingapp.GenerateInvoiceResult](ctx, dispatchBus, billingapp.GenerateInvoiceCommand{
					CommandID: uuid.NewString(),
					BookingID: doc.Aggregate,
				})
				return err
			},
			"invoice.issued": func(ctx context.Context, doc *infraoutbox.EventDocument) error {
				url, err := renderer.RenderInvoice(ctx, domainbilling.InvoiceID(doc.Aggregate))
				if err != nil {
					return err
				}
				logger.Info("invoice statement rendered", "invoice_id", doc.Aggregate, "url", url)
				return nil
			},
		},
	}
	if app.producer != nil {
		app.worker.Producer = app.producer
	}

	app.sweeper = &schedule.Runner{
		Name:     "overdue-invoice-sweep",
		Interval: cfg.OverdueSweepEvery,
		Logger:   logger,
		Job: func(ctx context.Context, now time.Time) error {
			res, err := commands.Dispatch[billingapp.SweepOverdueCommand, *billingapp.SweepOverdueResult](ctx, dispatchBus, billingapp.SweepOverdueCommand{Now: now})
			if err != nil {
				return err
			}
			if res != nil && res.Flipped > 0 {
				logger.Info("invoices flagged overdue", "count", res.Flipped)
			}
			return nil
		},
	}

	auth := ginserver.AuthMiddleware{
		Resolver: ginserver.RepositoryResolver{Users: app.users},
		Logger:   logger,
	}
	app.handlers = ginserver.Handlers{
		Booking: ginserver.BookingHandler{
			Commands: dispatchBus,
			Queries:  askBus,
		},
		Billing: ginserver.BillingHandler{
			Commands: dispatchBus,
			Queries:  askBus,
		},
		HostUnit: ginserver.HostUnitHandler{
			Commands: dispatchBus,
			Queries:  askBus,
		},
		AuthMiddleware: auth.Handle,
	}
	return app, nil
}

func (a *application) close(logger *slog.Logger) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Error("kafka producer close failed", "error", err)
		}
	}
	if a.notifyConsumer != nil {
		if err := a.notifyConsumer.Close(); err != nil {
			logger.Error("kafka consumer close failed", "error", err)
		}
	}
}

type userFixture struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func loadUserFixtures(ctx context.Context, repo domainuser.Repository, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("user fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures []userFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures {
		user, err := domainuser.NewUser(domainuser.CreateParams{
			ID:        domainuser.ID(fx.ID),
			Email:     fx.Email,
			Name:      fx.Name,
			Role:      domainuser.Role(fx.Role),
			CreatedAt: now,
		})
		if err != nil {
			logger.Error("fixture invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if err := repo.Save(ctx, user); err != nil {
			logger.Error("cannot store fixture user", "user_id", fx.ID, "error", err)
			continue
		}
		logger.Info("user fixture imported", "user_id", user.ID, "role", user.Role)
	}
	return nil
}

func defaultUserFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "users.json"),
		filepath.Join("..", "data", "users.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
