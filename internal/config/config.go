package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log        LogConfig       `mapstructure:"log"`
	HTTP       HTTPConfig      `mapstructure:"http"`
	Store      StoreConfig     `mapstructure:"store"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Line       LineConfig      `mapstructure:"line"`
	Twitter    TwitterConfig   `mapstructure:"twitter"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Relay      RelayConfig     `mapstructure:"relay"`
	Archive    ArchiveConfig   `mapstructure:"archive"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr        string `mapstructure:"addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	AdminAPIKey string `mapstructure:"admin_api_key"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

// StoreConfig selects the SQL backend holding weight records.
type StoreConfig struct {
	Driver         string `mapstructure:"driver"` // mysql | postgres | sqlite
	DatabaseConfig `mapstructure:",squash"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	DedupTTL    time.Duration `mapstructure:"dedup_ttl"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type LineConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	ChannelAccessToken string `mapstructure:"channel_access_token"`
	ChannelSecret      string `mapstructure:"channel_secret"`
	TimeoutMs          int    `mapstructure:"timeout_ms"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type TwitterConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	APIKeySecret      string        `mapstructure:"api_key_secret"`
	AccessToken       string        `mapstructure:"access_token"`
	AccessTokenSecret string        `mapstructure:"access_token_secret"`
	TimeoutMs         int           `mapstructure:"timeout_ms"`
	Breaker           BreakerConfig `mapstructure:"breaker"`
}

// Enabled reports whether all four OAuth1 credentials are present.
func (t TwitterConfig) Enabled() bool {
	return t.APIKey != "" && t.APIKeySecret != "" && t.AccessToken != "" && t.AccessTokenSecret != ""
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type RelayConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	Interval  time.Duration `mapstructure:"interval"`
}

type ArchiveConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	BatchWait time.Duration `mapstructure:"batch_wait"`
}

// credentialEnv keeps the variable names the bot was originally deployed with.
var credentialEnv = map[string]string{
	"line.channel_access_token":   "CHANNEL_ACCESS_TOKEN",
	"line.channel_secret":         "CHANNEL_SECRET",
	"twitter.api_key":             "TWITTER_API_KEY",
	"twitter.api_key_secret":      "TWITTER_API_KEY_SECRET",
	"twitter.access_token":        "TWITTER_ACCESS_TOKEN",
	"twitter.access_token_secret": "TWITTER_ACCESS_TOKEN_SECRET",
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides
// (KW_* plus the plain credential names). A .env file in the working directory is loaded first.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (KW_*)
	v.SetEnvPrefix("KW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range credentialEnv {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that makes the process unable to start.
// Missing credentials are not fatal here: the webhook refuses batches without a
// reply token, and posting is disabled without the X keys.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("store.driver: unsupported %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		return fmt.Errorf("store.dsn: required")
	}
	if c.Line.BaseURL == "" || c.Twitter.BaseURL == "" {
		return fmt.Errorf("line.base_url and twitter.base_url: required")
	}
	return nil
}
