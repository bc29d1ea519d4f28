package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/you/feedauth/domain"
)

const defaultConfigPath = "config/config.yml"

type AppConfig struct {
	Port            int    `yaml:"port"`
	GinMode         string `yaml:"gin_mode"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	LoginRedirect   string `yaml:"login_redirect"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Env    string `yaml:"env"`
}

type DatabaseConfig struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type OTPConfig struct {
	TTL          string `yaml:"ttl"`
	Length       int    `yaml:"length"`
	MaxAttempts  int    `yaml:"max_attempts"`
	ResendWindow string `yaml:"resend_window"`
	Retention    string `yaml:"retention"`
	Generator    string `yaml:"generator"`
}

type ChallengeConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

type WindowRule struct {
	Class string `yaml:"class"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type PolicyConfig struct {
	Timezone  string       `yaml:"timezone"`
	ModelPath string       `yaml:"model_path"`
	Windows   []WindowRule `yaml:"windows"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type NotificationsConfig struct {
	Channel string       `yaml:"channel"`
	SMTP    SMTPConfig   `yaml:"smtp"`
	Twilio  TwilioConfig `yaml:"twilio"`
}

type RateLimitConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
	Burst    int    `yaml:"burst"`
}

type ConfigFile struct {
	App           AppConfig           `yaml:"app"`
	Log           LogConfig           `yaml:"log"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	OTP           OTPConfig           `yaml:"otp"`
	Challenge     ChallengeConfig     `yaml:"challenge"`
	Policy        PolicyConfig        `yaml:"policy"`
	Notifications NotificationsConfig `yaml:"notifications"`
	RateLimit     RateLimitConfig     `yaml:"ratelimit"`
}

type Config struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
	LoginRedirect   string

	LogLevel  string
	LogFormat string
	LogEnv    string

	DBDriver      string
	DSN           string
	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTP_TTL          time.Duration
	OTP_Length       int
	OTP_MaxAttempts  int
	OTP_ResendWindow time.Duration
	OTP_Retention    time.Duration
	OTP_Generator    string

	ChallengeSecret string
	ChallengeIssuer string

	PolicyLocation  *time.Location
	PolicyModelPath string
	PolicyWindows   []WindowRule

	NotifyChannel string
	SMTP          SMTPConfig
	TwilioSID     string
	TwilioToken   string
	TwilioFrom    string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads the file named by CONFIG_PATH (default config/config.yml).
func Load() (*Config, error) {
	return LoadFile(env("CONFIG_PATH", defaultConfigPath))
}

// LoadFile reads path, applies environment overrides and defaults, and
// validates the result.
func LoadFile(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	applyEnv(configFile)
	applyDefaults(configFile)
	return build(configFile)
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

// applyEnv lets secrets and endpoints come from the environment instead of
// the checked-in file.
func applyEnv(f *ConfigFile) {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			f.App.Port = p
		}
	}
	f.Database.Driver = env("DATABASE_DRIVER", f.Database.Driver)
	f.Database.DSN = env("DATABASE_DSN", f.Database.DSN)
	f.Database.MongoURI = env("MONGO_URI", f.Database.MongoURI)
	f.Redis.Addr = env("REDIS_ADDR", f.Redis.Addr)
	f.Redis.Password = env("REDIS_PASSWORD", f.Redis.Password)
	f.Challenge.Secret = env("CHALLENGE_SECRET", f.Challenge.Secret)
	f.Notifications.SMTP.Username = env("SMTP_USERNAME", f.Notifications.SMTP.Username)
	f.Notifications.SMTP.Password = env("SMTP_PASSWORD", f.Notifications.SMTP.Password)
	f.Notifications.Twilio.AccountSID = env("TWILIO_ACCOUNT_SID", f.Notifications.Twilio.AccountSID)
	f.Notifications.Twilio.AuthToken = env("TWILIO_AUTH_TOKEN", f.Notifications.Twilio.AuthToken)
	f.Log.Level = env("LOG_LEVEL", f.Log.Level)
}

func applyDefaults(f *ConfigFile) {
	if f.App.Port == 0 {
		f.App.Port = 5000
	}
	if f.App.GinMode == "" {
		f.App.GinMode = "release"
	}
	if f.App.ShutdownTimeout == "" {
		f.App.ShutdownTimeout = "10s"
	}
	if f.App.LoginRedirect == "" {
		f.App.LoginRedirect = "/home/feed"
	}
	if f.Log.Level == "" {
		f.Log.Level = "info"
	}
	if f.Log.Format == "" {
		f.Log.Format = "json"
	}
	if f.Database.Driver == "" {
		f.Database.Driver = "postgres"
	}
	if f.Database.MongoDatabase == "" {
		f.Database.MongoDatabase = "database"
	}
	if f.Redis.Addr == "" {
		f.Redis.Addr = "localhost:6379"
	}
	if f.OTP.TTL == "" {
		f.OTP.TTL = "5m"
	}
	if f.OTP.Length == 0 {
		f.OTP.Length = 6
	}
	if f.OTP.MaxAttempts == 0 {
		f.OTP.MaxAttempts = 5
	}
	if f.OTP.ResendWindow == "" {
		f.OTP.ResendWindow = "30s"
	}
	if f.OTP.Retention == "" {
		f.OTP.Retention = "10m"
	}
	if f.OTP.Generator == "" {
		f.OTP.Generator = "random"
	}
	if f.Challenge.Issuer == "" {
		f.Challenge.Issuer = "feedauth"
	}
	if len(f.Policy.Windows) == 0 {
		f.Policy.Windows = []WindowRule{{Class: "mobile", Start: "06:00", End: "18:00"}}
	}
	if f.Notifications.Channel == "" {
		f.Notifications.Channel = "email"
	}
	if f.Notifications.SMTP.Port == 0 {
		f.Notifications.SMTP.Port = 587
	}
	if f.RateLimit.Requests == 0 {
		f.RateLimit.Requests = 10
	}
	if f.RateLimit.Window == "" {
		f.RateLimit.Window = "1m"
	}
	if f.RateLimit.Burst == 0 {
		f.RateLimit.Burst = f.RateLimit.Requests
	}
}

func build(f *ConfigFile) (*Config, error) {
	shutdown, err := time.ParseDuration(f.App.ShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	otpTTL, err := time.ParseDuration(f.OTP.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP TTL: %w", err)
	}

	resWnd, err := time.ParseDuration(f.OTP.ResendWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP resend window: %w", err)
	}

	retention, err := time.ParseDuration(f.OTP.Retention)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP retention: %w", err)
	}

	rlWnd, err := time.ParseDuration(f.RateLimit.Window)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit window: %w", err)
	}

	loc := time.Local
	if f.Policy.Timezone != "" {
		loc, err = time.LoadLocation(f.Policy.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid policy timezone: %w", err)
		}
	}

	cfg := &Config{
		Port:              fmt.Sprintf("%d", f.App.Port),
		GinMode:           f.App.GinMode,
		ShutdownTimeout:   shutdown,
		LoginRedirect:     f.App.LoginRedirect,
		LogLevel:          f.Log.Level,
		LogFormat:         f.Log.Format,
		LogEnv:            f.Log.Env,
		DBDriver:          f.Database.Driver,
		DSN:               f.Database.DSN,
		MongoURI:          f.Database.MongoURI,
		MongoDatabase:     f.Database.MongoDatabase,
		RedisAddr:         f.Redis.Addr,
		RedisPassword:     f.Redis.Password,
		RedisDB:           f.Redis.DB,
		OTP_TTL:           otpTTL,
		OTP_Length:        f.OTP.Length,
		OTP_MaxAttempts:   f.OTP.MaxAttempts,
		OTP_ResendWindow:  resWnd,
		OTP_Retention:     retention,
		OTP_Generator:     f.OTP.Generator,
		ChallengeSecret:   f.Challenge.Secret,
		ChallengeIssuer:   f.Challenge.Issuer,
		PolicyLocation:    loc,
		PolicyModelPath:   f.Policy.ModelPath,
		PolicyWindows:     f.Policy.Windows,
		NotifyChannel:     f.Notifications.Channel,
		SMTP:              f.Notifications.SMTP,
		TwilioSID:         f.Notifications.Twilio.AccountSID,
		TwilioToken:       f.Notifications.Twilio.AuthToken,
		TwilioFrom:        f.Notifications.Twilio.FromNumber,
		RateLimitRequests: f.RateLimit.Requests,
		RateLimitWindow:   rlWnd,
		RateLimitBurst:    f.RateLimit.Burst,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "postgres", "sqlite":
		if c.DSN == "" {
			errs = append(errs, errors.New("database dsn is required"))
		}
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, errors.New("mongo uri is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DBDriver))
	}
	if len(c.ChallengeSecret) < 32 {
		errs = append(errs, errors.New("challenge secret must be at least 32 bytes"))
	}
	if c.OTP_Length < 4 || c.OTP_Length > 10 {
		errs = append(errs, fmt.Errorf("otp length %d out of range", c.OTP_Length))
	}
	if c.OTP_TTL <= 0 {
		errs = append(errs, errors.New("otp ttl must be positive"))
	}
	if c.OTP_MaxAttempts < 1 {
		errs = append(errs, errors.New("otp max_attempts must be at least 1"))
	}
	switch c.OTP_Generator {
	case "random", "totp":
	default:
		errs = append(errs, fmt.Errorf("unsupported otp generator %q", c.OTP_Generator))
	}
	switch c.NotifyChannel {
	case "log":
	case "email":
		if c.SMTP.Host == "" {
			errs = append(errs, errors.New("email channel requires smtp.host"))
		}
	case "sms":
		if c.TwilioSID == "" || c.TwilioToken == "" || c.TwilioFrom == "" {
			errs = append(errs, errors.New("sms channel requires twilio account_sid, auth_token and from_number"))
		}
		if c.SMTP.Host == "" {
			errs = append(errs, errors.New("sms channel requires smtp.host for the email fallback"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported notification channel %q", c.NotifyChannel))
	}
	for _, w := range c.PolicyWindows {
		if domain.ParseDeviceClass(w.Class) != domain.DeviceClass(w.Class) {
			errs = append(errs, fmt.Errorf("window class %q must be one of mobile, desktop, unknown", w.Class))
		}
		if _, err := domain.ParseClock(w.Start); err != nil {
			errs = append(errs, fmt.Errorf("window %s start: %w", w.Class, err))
		}
		if _, err := domain.ParseClock(w.End); err != nil {
			errs = append(errs, fmt.Errorf("window %s end: %w", w.Class, err))
		}
	}
	return errors.Join(errs...)
}
