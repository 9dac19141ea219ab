// Package config loads and validates runtime configuration from flags,
// LISTINGWATCH_* environment variables and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"listingwatch/internal/domain"
)

// Scheduler interval bounds.
const (
	MinInterval = 5 * time.Minute
	MaxInterval = 10 * time.Minute
)

// Supported storage backends.
const (
	StorageBlob     = "blob"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the full runtime configuration. Components never read the
// environment themselves; everything is resolved here and handed to
// constructors explicitly.
type Config struct {
	// Listings API
	APIKey     string
	APIBaseURL string
	FetchLimit int

	// Scheduler
	Interval time.Duration
	Instance string

	// Dispatch
	Channel     domain.Channel
	Recipients  []string
	LinkBaseURL string

	// Storage
	Storage       string // blob | postgres | memory
	BlobDir       string
	BlobName      string
	PostgresDSN   string
	ClickhouseDSN string // empty disables the audit log

	// Twilio (sms)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string

	// SMTP (email)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string

	// FCM (push)
	FCMCredentialsPath string

	// Telegram
	TelegramBotToken string

	// HTTP surface
	MetricsAddr string
}

// InitConfig defines CLI flags on the command and binds them to viper with
// the LISTINGWATCH env prefix.
func InitConfig(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.String("api-key", "", "Market-data API key")
	flags.String("api-base-url", "", "Market-data API base URL override")
	flags.Int("fetch-limit", 50, "Number of latest listings to fetch per run")

	flags.Duration("interval", MinInterval, "Scheduler tick interval (5m-10m)")
	flags.String("instance", "listingwatch", "Instance name used in run IDs")

	flags.String("channel", "sms", "Notification channel (sms, email, push, telegram)")
	flags.StringSlice("recipients", []string{}, "Recipient list (phone numbers, emails, device tokens or chat IDs)")
	flags.String("link-base-url", "", "Base URL for per-listing detail links")

	flags.String("storage", StorageBlob, "Notified-set backend (blob, postgres, memory)")
	flags.String("blob-dir", "data", "Blob container directory")
	flags.String("blob-name", "notified.json", "Blob file name inside the container")
	flags.String("postgres-dsn", "", "PostgreSQL connection string")
	flags.String("clickhouse-dsn", "", "ClickHouse connection string (empty disables the audit log)")

	flags.String("twilio-account-sid", "", "Twilio account SID")
	flags.String("twilio-auth-token", "", "Twilio auth token")
	flags.String("twilio-from", "", "Twilio sender phone number")

	flags.String("smtp-host", "", "SMTP server host")
	flags.Int("smtp-port", 587, "SMTP server port")
	flags.String("smtp-username", "", "SMTP username")
	flags.String("smtp-password", "", "SMTP password")
	flags.String("email-from", "", "Email sender identity")

	flags.String("fcm-credentials", "", "Path to Firebase service account JSON")
	flags.String("telegram-bot-token", "", "Telegram bot token")

	flags.String("metrics-addr", ":9090", "HTTP address for /health, /metrics and /status")

	_ = viper.BindPFlags(flags)

	viper.SetEnvPrefix("LISTINGWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// LoadConfig resolves the configuration from viper and validates it.
// A .env file in the working directory is loaded first when present.
func LoadConfig() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	recipients := viper.GetStringSlice("recipients")
	for i, r := range recipients {
		recipients[i] = strings.TrimSpace(r)
	}

	cfg := &Config{
		APIKey:     viper.GetString("api-key"),
		APIBaseURL: viper.GetString("api-base-url"),
		FetchLimit: viper.GetInt("fetch-limit"),

		Interval: viper.GetDuration("interval"),
		Instance: viper.GetString("instance"),

		Channel:     domain.Channel(strings.ToLower(viper.GetString("channel"))),
		Recipients:  recipients,
		LinkBaseURL: viper.GetString("link-base-url"),

		Storage:       strings.ToLower(viper.GetString("storage")),
		BlobDir:       viper.GetString("blob-dir"),
		BlobName:      viper.GetString("blob-name"),
		PostgresDSN:   viper.GetString("postgres-dsn"),
		ClickhouseDSN: viper.GetString("clickhouse-dsn"),

		TwilioAccountSID: viper.GetString("twilio-account-sid"),
		TwilioAuthToken:  viper.GetString("twilio-auth-token"),
		TwilioFrom:       viper.GetString("twilio-from"),

		SMTPHost:     viper.GetString("smtp-host"),
		SMTPPort:     viper.GetInt("smtp-port"),
		SMTPUsername: viper.GetString("smtp-username"),
		SMTPPassword: viper.GetString("smtp-password"),
		EmailFrom:    viper.GetString("email-from"),

		FCMCredentialsPath: viper.GetString("fcm-credentials"),
		TelegramBotToken:   viper.GetString("telegram-bot-token"),

		MetricsAddr: viper.GetString("metrics-addr"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and cross-field constraints.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required (--api-key or LISTINGWATCH_API_KEY)")
	}
	if c.FetchLimit <= 0 {
		return fmt.Errorf("fetch limit must be positive, got %d", c.FetchLimit)
	}

	if c.Interval < MinInterval || c.Interval > MaxInterval {
		return fmt.Errorf("interval must be between %v and %v, got %v", MinInterval, MaxInterval, c.Interval)
	}

	if !c.Channel.IsValid() {
		return fmt.Errorf("unknown channel %q (valid: sms, email, push, telegram)", c.Channel)
	}
	if len(c.Recipients) == 0 {
		return fmt.Errorf("at least one recipient is required (--recipients or LISTINGWATCH_RECIPIENTS)")
	}
	for _, r := range c.Recipients {
		if r == "" {
			return fmt.Errorf("recipient list contains an empty entry")
		}
	}

	switch c.Storage {
	case StorageBlob:
		if c.BlobDir == "" || c.BlobName == "" {
			return fmt.Errorf("blob storage requires --blob-dir and --blob-name")
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres storage requires --postgres-dsn")
		}
	case StorageMemory:
		// No backing configuration; dedup state is lost on restart.
	default:
		return fmt.Errorf("unknown storage backend %q (valid: blob, postgres, memory)", c.Storage)
	}

	switch c.Channel {
	case domain.ChannelSMS:
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFrom == "" {
			return fmt.Errorf("sms channel requires --twilio-account-sid, --twilio-auth-token and --twilio-from")
		}
	case domain.ChannelEmail:
		if c.SMTPHost == "" || c.EmailFrom == "" {
			return fmt.Errorf("email channel requires --smtp-host and --email-from")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("invalid smtp port %d", c.SMTPPort)
		}
	case domain.ChannelPush:
		if c.FCMCredentialsPath == "" {
			return fmt.Errorf("push channel requires --fcm-credentials")
		}
	case domain.ChannelTelegram:
		if c.TelegramBotToken == "" {
			return fmt.Errorf("telegram channel requires --telegram-bot-token")
		}
	}

	return nil
}
