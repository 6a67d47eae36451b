package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage providers supported for report archival.
const (
	StorageProviderDrive      = "drive"
	StorageProviderCloudinary = "cloudinary"
)

// Auditor providers supported for the fairness review.
const (
	AuditorProviderOpenAI    = "openai"
	AuditorProviderAnthropic = "anthropic"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	MaxUploadMB int

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	JudgeTimeout  time.Duration

	AuditorProvider string
	AuditorAPIKey   string
	AuditorBaseURL  string
	AuditorModel    string
	AuditTimeout    time.Duration

	StorageProvider      string
	StorageTimeout       time.Duration
	DriveCredentialsFile string
	DriveRootFolderID    string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	CloudinaryAPIURL       string

	RedisURL    string
	LockTTL     time.Duration
	DatabaseURL string
	NATSURL     string
	NATSSubject string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Exam Grader")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("upload.max_mb", 15)
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("judge.timeout", "90s")
	v.SetDefault("auditor.provider", AuditorProviderOpenAI)
	v.SetDefault("auditor.model", "llama-3.3-70b-versatile")
	v.SetDefault("audit.timeout", "30s")
	v.SetDefault("storage.provider", StorageProviderDrive)
	v.SetDefault("storage.timeout", "30s")
	v.SetDefault("cloudinary.folder", "gema/grading")
	v.SetDefault("lock.ttl", "60s")
	v.SetDefault("nats.subject", "gema.grading.completed")

	judgeTimeout, err := parseDuration(v, "judge.timeout")
	if err != nil {
		return Config{}, err
	}
	auditTimeout, err := parseDuration(v, "audit.timeout")
	if err != nil {
		return Config{}, err
	}
	storageTimeout, err := parseDuration(v, "storage.timeout")
	if err != nil {
		return Config{}, err
	}
	lockTTL, err := parseDuration(v, "lock.ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		MaxUploadMB:            v.GetInt("upload.max_mb"),
		GeminiAPIKey:           v.GetString("gemini.api_key"),
		GeminiModel:            v.GetString("gemini.model"),
		GeminiBaseURL:          v.GetString("gemini.base_url"),
		JudgeTimeout:           judgeTimeout,
		AuditorProvider:        strings.ToLower(strings.TrimSpace(v.GetString("auditor.provider"))),
		AuditorAPIKey:          v.GetString("auditor.api_key"),
		AuditorBaseURL:         v.GetString("auditor.base_url"),
		AuditorModel:           v.GetString("auditor.model"),
		AuditTimeout:           auditTimeout,
		StorageProvider:        strings.ToLower(strings.TrimSpace(v.GetString("storage.provider"))),
		StorageTimeout:         storageTimeout,
		DriveCredentialsFile:   v.GetString("drive.credentials_file"),
		DriveRootFolderID:      v.GetString("drive.root_folder_id"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		CloudinaryAPIURL:       v.GetString("cloudinary.api_url"),
		RedisURL:               v.GetString("redis.url"),
		LockTTL:                lockTTL,
		DatabaseURL:            v.GetString("database.url"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 15
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("gemini api key must be provided")
	}
	if c.AuditorAPIKey == "" {
		return fmt.Errorf("auditor api key must be provided")
	}

	switch c.AuditorProvider {
	case AuditorProviderOpenAI, AuditorProviderAnthropic:
	default:
		return fmt.Errorf("unsupported auditor provider %q", c.AuditorProvider)
	}

	if c.LockTTL <= c.StorageTimeout {
		return fmt.Errorf("lock ttl (%s) must exceed storage timeout (%s)", c.LockTTL, c.StorageTimeout)
	}

	switch c.StorageProvider {
	case StorageProviderDrive:
		if c.DriveCredentialsFile == "" || c.DriveRootFolderID == "" {
			return fmt.Errorf("drive credentials file and root folder id must be provided")
		}
	case StorageProviderCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			return fmt.Errorf("cloudinary credentials must be provided")
		}
	default:
		return fmt.Errorf("unsupported storage provider %q", c.StorageProvider)
	}

	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return duration, nil
}
