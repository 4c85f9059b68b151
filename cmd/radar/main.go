package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/onchainradar/radar/internal/blockchain"
	"github.com/onchainradar/radar/internal/config"
	"github.com/onchainradar/radar/internal/directory"
	"github.com/onchainradar/radar/internal/http_api"
	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/internal/notificator"
	"github.com/onchainradar/radar/internal/radar"
	"github.com/onchainradar/radar/internal/repository"
	"github.com/onchainradar/radar/internal/scheduler"
	"github.com/onchainradar/radar/internal/textgen"
	"github.com/onchainradar/radar/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "radar",
		Usage: "Onchain Radar watches wallets and notifies their followers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-driver", Usage: "Database driver (postgres or sqlite)"},
			&cli.StringFlag{Name: "sqlite-path", Usage: "SQLite database file"},
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.IntFlag{Name: "api-port", Usage: "HTTP API port"},
			&cli.IntFlag{Name: "page-size", Usage: "Transactions fetched per address and sweep"},
			&cli.IntFlag{Name: "cold-start-depth", Usage: "Transactions considered on the first sweep of an address"},
			&cli.IntFlag{Name: "sweep-concurrency", Usage: "Addresses swept in parallel"},
			&cli.StringFlag{Name: "sweep-schedule", Aliases: []string{"s"}, Usage: "Cron spec of the in-process sweep, empty to disable"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the API, the Telegram bot and the sweep scheduler",
				Action: serve,
			},
			{
				Name:   "sweep",
				Usage:  "Run one sweep and exit",
				Action: sweep,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("database-driver") {
		cfg.DatabaseDriver = c.String("database-driver")
	}
	if c.IsSet("sqlite-path") {
		cfg.SQLitePath = c.String("sqlite-path")
	}
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("page-size") {
		cfg.PageSize = c.Int("page-size")
	}
	if c.IsSet("cold-start-depth") {
		cfg.ColdStartDepth = c.Int("cold-start-depth")
	}
	if c.IsSet("sweep-concurrency") {
		cfg.SweepConcurrency = c.Int("sweep-concurrency")
	}
	if c.IsSet("sweep-schedule") {
		cfg.SweepSchedule = c.String("sweep-schedule")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// services holds the wired application
type services struct {
	repo      models.Repository
	radar     *radar.Radar
	directory *directory.Directory
	telegram  *notificator.TelegramNotificator
}

func build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*services, error) {
	// Initialize database
	var (
		db  models.Repository
		err error
	)
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err = repository.NewSQLiteDB(cfg.SQLitePath, log)
	default:
		db, err = repository.NewPostgresDB(ctx, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	s := &services{repo: db}

	// Initialize notification channels
	channels := make(map[models.ChannelName]models.Channel)
	if cfg.FarcasterEnabled() {
		s.directory = directory.NewDirectory(cfg.NeynarBaseURL, cfg.NeynarAPIKey, log)
		channels[models.ChannelFarcaster] = notificator.NewFarcasterNotificator(log, cfg.NeynarBaseURL, cfg.NeynarAPIKey, cfg.NeynarSignerUUID, s.directory)
	}
	if cfg.TelegramEnabled() {
		s.telegram, err = notificator.NewTelegramNotificator(log, cfg.TelegramBotToken)
		if err != nil {
			db.Close()
			return nil, err
		}
		channels[models.ChannelTelegram] = s.telegram
	}
	if cfg.EmailEnabled() {
		channels[models.ChannelEmail] = notificator.NewEmailNotificator(log, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPSender)
	}

	// Text generation is optional, the composer falls back to a template
	var generator models.TextGenerator
	if cfg.OpenAIAPIKey != "" {
		generator = textgen.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, log)
	}
	composer := notificator.NewComposer(generator, cfg.CallTimeout, log)
	notifier := notificator.NewNotificator(log, db, composer, channels, cfg.FrameBaseURL, cfg.CallTimeout)

	provider := blockchain.NewCovalent(cfg.CovalentBaseURL, cfg.CovalentAPIKey, cfg.CovalentRatePerSec, log)

	s.radar = radar.NewRadar(db, provider, notifier, log, radar.Config{
		ChainID:        cfg.ChainID,
		ChainName:      cfg.ChainName,
		PageSize:       cfg.PageSize,
		ColdStartDepth: cfg.ColdStartDepth,
		Concurrency:    cfg.SweepConcurrency,
		CallTimeout:    cfg.CallTimeout,
	})
	if s.telegram != nil {
		s.telegram.AttachRadar(s.radar)
	}
	return s, nil
}

func setup(c *cli.Context) (*config.Config, *logger.Logger, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %v", err)
	}
	return cfg, log, nil
}

func serve(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.repo.Close()

	if s.directory != nil {
		s.directory.StartPeriodicUpdate()
		defer s.directory.Stop()
	}
	if s.telegram != nil {
		go s.telegram.Start(ctx)
	}

	var sched *scheduler.Scheduler
	if cfg.SweepSchedule != "" {
		sched, err = scheduler.NewScheduler(cfg.SweepSchedule, s.radar, s.repo, cfg.InstanceID, cfg.SweepTimeout, log)
		if err != nil {
			return err
		}
		sched.Start()
	}

	apiServer := http_api.NewHTTPServer(s.radar, cfg.APIPort, cfg.CronSecret, cfg.SweepTimeout, log)
	go apiServer.Start()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	if err := apiServer.Shutdown(); err != nil {
		log.Error("Failed to shut down HTTP server", "error", err)
	}
	if sched != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), http_api.ShutdownTimeout)
		sched.Stop(stopCtx)
		cancel()
	}
	return nil
}

func sweep(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.repo.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.SweepTimeout)
	defer cancel()

	res, err := s.radar.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("checked=%d newActivities=%d errors=%d\n", res.Checked, res.NewActivities, res.Errors)
	return nil
}
