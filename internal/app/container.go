package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/you/feedauth/domain"
	"github.com/you/feedauth/internal/config"
	"github.com/you/feedauth/internal/http/handlers"
	"github.com/you/feedauth/internal/infrastructure/audit"
	"github.com/you/feedauth/internal/infrastructure/auth"
	"github.com/you/feedauth/internal/infrastructure/database"
	"github.com/you/feedauth/internal/infrastructure/notifications"
	"github.com/you/feedauth/internal/infrastructure/repositories"
	"github.com/you/feedauth/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	DB          *gorm.DB
	Mongo       *mongo.Client
	RedisClient *redis.Client

	// Repositories
	Accounts   domain.AccountRepository
	OTPStore   domain.OTPStore
	Challenges domain.ChallengeStore

	// Services
	Audit       domain.AuditLogger
	PasswordSvc domain.PasswordService
	TokenSvc    domain.ChallengeTokenService
	Notifier    domain.Notifier
	CredSvc     *services.CredentialServiceImpl
	DeviceSvc   *services.DeviceServiceImpl
	OTPSvc      *services.OTPServiceImpl
	PolicySvc   *services.AccessPolicyServiceImpl
	LoginSvc    *services.LoginServiceImpl

	// Handlers
	AuthHandlers *handlers.AuthHandlers
}

// NewContainer creates and initializes all dependencies. Whatever was opened
// before a failure is closed again.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	container := &Container{Config: cfg, Logger: logger}

	steps := []func(context.Context) error{
		container.initDatabase,
		container.initRedis,
		container.initServices,
		container.initPolicy,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			_ = container.Close()
			return nil, err
		}
	}

	container.initLogin()
	return container, nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	if c.Config.DBDriver == "mongo" {
		client, err := database.OpenMongo(ctx, c.Config.MongoURI)
		if err != nil {
			return err
		}
		c.Mongo = client

		repo := repositories.NewMongoAccountRepository(client.Database(c.Config.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		c.Accounts = repo
		return nil
	}

	db, err := database.Open(c.Config.DBDriver, c.Config.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	c.DB = db

	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	c.Accounts = repositories.NewAccountRepository(db)
	return nil
}

func (c *Container) initRedis(ctx context.Context) error {
	rc := database.NewRedis(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	c.RedisClient = rc.Client
	if err := rc.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	c.OTPStore = repositories.NewOTPStore(c.RedisClient)
	c.Challenges = repositories.NewChallengeStore(c.RedisClient)
	return nil
}

func (c *Container) initServices(context.Context) error {
	c.Audit = audit.NewSlogAuditLogger(c.Logger)
	c.PasswordSvc = auth.NewPasswordService(bcrypt.DefaultCost)
	c.TokenSvc = auth.NewChallengeTokenService(c.Config.ChallengeSecret, c.Config.ChallengeIssuer)

	notifier, err := c.buildNotifier()
	if err != nil {
		return err
	}
	c.Notifier = notifier

	generator, err := services.NewCodeGenerator(c.Config.OTP_Generator, c.Config.OTP_Length, c.Config.OTP_TTL)
	if err != nil {
		return err
	}

	c.CredSvc = services.NewCredentialService(c.Accounts, c.PasswordSvc, c.Audit)
	c.DeviceSvc = services.NewDeviceService(c.Accounts, c.Audit)
	c.OTPSvc = services.NewOTPService(c.OTPStore, c.Notifier, generator, c.Audit, services.OTPConfig{
		Length:       c.Config.OTP_Length,
		TTL:          c.Config.OTP_TTL,
		MaxAttempts:  c.Config.OTP_MaxAttempts,
		ResendWindow: c.Config.OTP_ResendWindow,
		Retention:    c.Config.OTP_Retention,
	})
	return nil
}

// buildNotifier picks the delivery channel. "sms" routes through Twilio and
// falls back to email. Only the explicit "log" channel writes codes to the
// log instead of delivering them.
func (c *Container) buildNotifier() (domain.Notifier, error) {
	switch c.Config.NotifyChannel {
	case "log":
		c.Logger.Warn("notifications.channel is log, codes are not delivered")
		return notifications.NewLogNotifier(c.Logger), nil
	case "email":
		return c.buildMailer()
	case "sms":
		if c.Config.TwilioSID == "" {
			return nil, errors.New("sms channel requires twilio credentials")
		}
		email, err := c.buildMailer()
		if err != nil {
			return nil, err
		}
		sms := notifications.NewTwilioService(c.Config.TwilioSID, c.Config.TwilioToken, c.Config.TwilioFrom)
		return notifications.NewRouter(sms, email, c.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported notification channel %q", c.Config.NotifyChannel)
	}
}

func (c *Container) buildMailer() (*notifications.MailServiceImpl, error) {
	if c.Config.SMTP.Host == "" {
		return nil, fmt.Errorf("%s channel requires smtp.host", c.Config.NotifyChannel)
	}
	return notifications.NewMailService(notifications.SMTPOptions{
		Host:     c.Config.SMTP.Host,
		Port:     c.Config.SMTP.Port,
		Username: c.Config.SMTP.Username,
		Password: c.Config.SMTP.Password,
		From:     c.Config.SMTP.From,
	})
}

func (c *Container) initPolicy(ctx context.Context) error {
	// nil DB keeps policies in memory when accounts live in mongo
	cas, err := auth.NewCasbinService(c.DB, c.Config.PolicyModelPath)
	if err != nil {
		return fmt.Errorf("failed to build access policy: %w", err)
	}
	c.PolicySvc = services.NewAccessPolicyService(cas.E, c.Config.PolicyLocation)

	rules := make([]services.WindowRule, 0, len(c.Config.PolicyWindows))
	for _, w := range c.Config.PolicyWindows {
		rules = append(rules, services.WindowRule{Class: w.Class, Start: w.Start, End: w.End})
	}
	added, err := c.PolicySvc.SeedDefaults(ctx, rules)
	if err != nil {
		return err
	}
	if added > 0 {
		c.Logger.Info("casbin: seeded default access windows", "count", added)
	}
	return nil
}

func (c *Container) initLogin() {
	c.LoginSvc = services.NewLoginService(
		c.Accounts,
		c.CredSvc,
		c.DeviceSvc,
		c.OTPSvc,
		c.PolicySvc,
		c.Challenges,
		c.TokenSvc,
		c.Audit,
	)
	c.AuthHandlers = handlers.NewAuthHandlers(c.LoginSvc, c.OTPSvc, c.CredSvc, c.Accounts, c.Config.LoginRedirect)
}

// Close closes all connections
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		errs = append(errs, c.RedisClient.Close())
	}

	if c.Mongo != nil {
		errs = append(errs, c.Mongo.Disconnect(context.Background()))
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}

	return errors.Join(errs...)
}
