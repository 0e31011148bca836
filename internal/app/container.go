package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/richblaalid/chuckbox/internal/cache"
	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/metrics"
	"github.com/richblaalid/chuckbox/internal/payments/square"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository"
	"github.com/richblaalid/chuckbox/internal/repository/db"
	"github.com/richblaalid/chuckbox/internal/service"
	"github.com/richblaalid/chuckbox/internal/worker"
)

// Background task intervals / Intervalles des tâches de fond
const (
	tokenPurgeInterval = 24 * time.Hour
	syncExpiryInterval = 10 * time.Minute
	cleanupInterval    = 24 * time.Hour
	lockPruneInterval  = time.Hour
	lockIdleAfter      = 30 * time.Minute
	dbStatsInterval    = time.Minute
)

// Container holds application dependencies / Contient les dépendances de l'application
type Container struct {
	DB       *sql.DB
	DBType   db.DatabaseType
	Config   *config.Config
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // Serves /metrics
	Repos    *repository.Adapter
	Cache    ports.Cache
	Gateway  ports.PaymentGateway // nil when Square is disabled
	Mailer   *service.Mailer
	Workers  *worker.Runner

	ProfileRepo       ports.ProfileRepository
	RefreshTokenStore ports.RefreshTokenStore

	AuthSvc         *service.AuthService
	ProfileSvc      *service.ProfileService
	PasswordSvc     *service.PasswordService
	VerificationSvc *service.VerificationService
	Access          *service.Access
	UnitSvc         *service.UnitService
	Notifier        *service.BillingNotifier
	LedgerSvc       *service.LedgerService
	PaymentSvc      *service.PaymentService
	RosterSvc       *service.RosterService
	ExtensionSvc    *service.ExtensionService
	AdvancementSvc  *service.AdvancementService
	ContactSvc      *service.ContactService

	closers []func() error
}

// Options tune container construction / Options de construction du conteneur
type Options struct {
	// Registerer receives the Prometheus collectors; the default registry when nil
	Registerer prometheus.Registerer
	// SkipWorkers leaves background tasks stopped (CLI commands)
	SkipWorkers bool
	// EmailSender replaces the SMTP sender
	EmailSender ports.EmailSender
}

// NewContainer initializes application container / Initialise le conteneur de l'application
func NewContainer(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	c := &Container{Config: cfg}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c.Metrics = metrics.NewMetrics(reg)
	c.Gatherer = prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.Gatherer = g
	}

	if err := c.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}

	if err := db.Migrate(c.DB, c.DBType, cfg.Database.MigrationsPath); err != nil {
		c.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	c.initRepositories()

	if err := c.initCache(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("cache init: %w", err)
	}

	if err := c.initGateway(); err != nil {
		c.Close()
		return nil, fmt.Errorf("square init: %w", err)
	}

	if err := c.initServices(opts.EmailSender); err != nil {
		c.Close()
		return nil, fmt.Errorf("service init: %w", err)
	}

	if err := c.initWorkers(); err != nil {
		c.Close()
		return nil, fmt.Errorf("worker init: %w", err)
	}
	if !opts.SkipWorkers {
		if err := c.Workers.Start(context.Background()); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.updateDatabaseMetrics()
	return c, nil
}

// initDatabase opens the configured database / Ouvre la base configurée
func (c *Container) initDatabase(ctx context.Context) error {
	dbType, err := db.ParseDatabaseType(c.Config.Database.Type)
	if err != nil {
		return err
	}
	c.DBType = dbType

	database, err := db.Open(ctx, db.DatabaseConfig{
		Type:         dbType,
		DSN:          c.Config.Database.DSN,
		MaxOpenConns: c.Config.Database.MaxOpenConns,
		MaxIdleConns: c.Config.Database.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize %s database: %w", dbType, err)
	}
	c.DB = database
	c.closers = append(c.closers, func() error {
		slog.Info("closing database")
		return database.Close()
	})
	return nil
}

// initRepositories initializes repositories / Initialise les repositories
func (c *Container) initRepositories() {
	c.Repos = repository.NewAdapter(c.DB, c.DBType.String())
	c.ProfileRepo = c.Repos.ProfileRepository()
	c.RefreshTokenStore = c.Repos.RefreshTokenStore()
	slog.Info("repositories initialized", "type", c.DBType)
}

// initCache picks Redis when enabled, else an in-process map / Redis si activé, sinon mémoire
func (c *Container) initCache(ctx context.Context) error {
	if !c.Config.Cache.Enabled {
		c.Cache = cache.NewMemory()
		return nil
	}
	rc, err := cache.NewRedis(ctx, cache.RedisOptions{
		Addr:     c.Config.Cache.Addr,
		Password: c.Config.Cache.Password,
		DB:       c.Config.Cache.DB,
		Prefix:   c.Config.Cache.Prefix,
	})
	if err != nil {
		return err
	}
	c.Cache = rc
	c.closers = append(c.closers, rc.Close)
	slog.Info("redis cache connected", "addr", c.Config.Cache.Addr)
	return nil
}

// initGateway creates the Square client when enabled / Crée le client Square si activé
func (c *Container) initGateway() error {
	if !c.Config.Square.Enabled {
		slog.Info("card payments disabled")
		return nil
	}
	client, err := square.NewClient(square.Options{
		Environment: c.Config.Square.Environment,
		AccessToken: c.Config.Square.AccessToken,
		APIVersion:  c.Config.Square.APIVersion,
		BaseURL:     c.Config.Square.BaseURL,
		Timeout:     c.Config.Square.Timeout,
	})
	if err != nil {
		return err
	}
	c.Gateway = client
	slog.Info("square payments enabled", "environment", c.Config.Square.Environment)
	return nil
}

// initServices initializes application services / Initialise les services applicatifs
func (c *Container) initServices(sender ports.EmailSender) error {
	if sender == nil {
		smtp, err := service.NewEmailService(c.Config.SMTP)
		if err != nil {
			return fmt.Errorf("failed to initialize email service: %w", err)
		}
		sender = smtp
	}

	mailer, err := service.NewMailer(sender, c.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	c.Mailer = mailer

	units := c.Repos.UnitRepository()
	members := c.Repos.MembershipRepository()
	scouts := c.Repos.ScoutRepository()
	fin := c.Repos.FinanceRepository()

	c.AuthSvc = service.NewAuthService(c.ProfileRepo, c.RefreshTokenStore, c.Config, c.DB, c.Metrics)
	c.VerificationSvc = service.NewVerificationService(c.ProfileRepo, mailer, c.Config, c.Metrics)
	c.ProfileSvc = service.NewProfileService(c.ProfileRepo, c.RefreshTokenStore, c.VerificationSvc, c.Config, c.Metrics)
	c.PasswordSvc = service.NewPasswordService(c.ProfileRepo, c.RefreshTokenStore, mailer, c.Config)

	c.Access = service.NewAccess(members, scouts)
	c.UnitSvc = service.NewUnitService(c.DB, units, members, c.ProfileRepo, mailer, c.Config)
	c.Notifier = service.NewBillingNotifier(units, scouts, fin, mailer, c.Config)
	c.LedgerSvc = service.NewLedgerService(c.DB, fin, scouts, c.Access, c.Notifier, c.Metrics)
	c.PaymentSvc = service.NewPaymentService(c.Gateway, c.LedgerSvc, units, fin, c.Access, mailer, c.Metrics)
	c.RosterSvc = service.NewRosterService(c.DB, scouts, fin, members, c.ProfileRepo, c.Access, c.Metrics)
	c.ExtensionSvc = service.NewExtensionService(c.DB, c.Repos.ExtensionRepository(), scouts, c.Access, c.RosterSvc, c.Config, c.Metrics)
	c.AdvancementSvc = service.NewAdvancementService(c.DB, c.Repos.AdvancementRepository(), scouts, c.Cache, c.Config.Cache.TTL, c.Metrics)
	c.ContactSvc = service.NewContactService(mailer, c.Config)

	// Queued emails and billing notices drain before the database closes
	c.closers = append(c.closers, func() error {
		c.Notifier.Wait()
		c.Mailer.Wait()
		return nil
	})
	return nil
}

// initWorkers registers periodic maintenance / Enregistre la maintenance périodique
func (c *Container) initWorkers() error {
	c.Workers = worker.NewRunner(c.Metrics)

	tasks := []worker.Task{
		{Name: "token_purge", Interval: tokenPurgeInterval, Run: c.AuthSvc.PurgeExpiredTokens},
		{Name: "sync_expiry", Interval: syncExpiryInterval, Run: func(ctx context.Context) error {
			_, err := c.ExtensionSvc.ExpireSyncs(ctx)
			return err
		}},
		{Name: "invite_purge", Interval: cleanupInterval, Run: c.UnitSvc.PurgeExpiredInvites},
		{Name: "extension_token_purge", Interval: cleanupInterval, Run: func(ctx context.Context) error {
			_, err := c.ExtensionSvc.PurgeTokens(ctx)
			return err
		}},
		{Name: "throttle_prune", Interval: lockPruneInterval, Run: func(context.Context) error {
			c.AuthSvc.PruneLocks(lockIdleAfter)
			c.VerificationSvc.PruneThrottles()
			return nil
		}},
		{Name: "db_stats", Interval: dbStatsInterval, Run: func(context.Context) error {
			c.updateDatabaseMetrics()
			return nil
		}},
	}

	if c.Config.Backup.Enabled {
		if c.DBType != db.SQLite {
			slog.Warn("backup is only supported for sqlite, skipping", "type", c.DBType)
		} else {
			b, err := worker.NewBackup(c.DB, c.Config.Database.DSN, c.Config.Backup)
			if err != nil {
				return err
			}
			tasks = append(tasks, b.Task())
			slog.Info("automatic database backup enabled",
				"interval", c.Config.Backup.Interval, "retention_days", c.Config.Backup.RetentionDays)
		}
	}

	for _, t := range tasks {
		if err := c.Workers.Add(t); err != nil {
			return err
		}
	}
	c.closers = append(c.closers, func() error {
		c.Workers.Stop()
		slog.Info("background workers stopped")
		return nil
	})
	return nil
}

// updateDatabaseMetrics updates database metrics / Met à jour les métriques de la BD
func (c *Container) updateDatabaseMetrics() {
	stats := c.DB.Stats()
	c.Metrics.UpdateDatabaseConnections(stats.OpenConnections)
}

// Ping checks the database and the cache / Vérifie la base et le cache
func (c *Container) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if p, ok := c.Cache.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

// Close performs graceful shutdown in reverse order / Effectue un arrêt gracieux en ordre inverse
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
