package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	SpApi    SpApiConfig    `mapstructure:"spapi"`
	Ads      AdsConfig      `mapstructure:"ads"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"` // sqlite
	Host            string        `mapstructure:"host"` // postgres
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-appropriate connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

// RegionConfig holds the per-region SP-API endpoint and credentials.
// Regions are explicit configuration handed to clients at construction;
// nothing reads region state globally.
type RegionConfig struct {
	Endpoint       string   `mapstructure:"endpoint"`
	RefreshToken   string   `mapstructure:"refresh_token"`
	MarketplaceIDs []string `mapstructure:"marketplace_ids"`
}

type SpApiConfig struct {
	ClientID      string                  `mapstructure:"client_id"`
	ClientSecret  string                  `mapstructure:"client_secret"`
	TokenURL      string                  `mapstructure:"token_url"`
	DefaultRegion string                  `mapstructure:"default_region"`
	Regions       map[string]RegionConfig `mapstructure:"regions"`
}

// Region resolves a region name, falling back to the default region.
func (c *SpApiConfig) Region(name string) (RegionConfig, error) {
	if name == "" {
		name = c.DefaultRegion
	}
	region, ok := c.Regions[name]
	if !ok {
		return RegionConfig{}, fmt.Errorf("unknown SP-API region %q", name)
	}
	return region, nil
}

type AdsConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenURL     string `mapstructure:"token_url"`
	Endpoint     string `mapstructure:"endpoint"`
	RefreshToken string `mapstructure:"refresh_token"`
}

type ReportsConfig struct {
	PollLimit      int           `mapstructure:"poll_limit"`
	PollAfter      time.Duration `mapstructure:"poll_after"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffCap     time.Duration `mapstructure:"backoff_cap"`
	StuckThreshold time.Duration `mapstructure:"stuck_threshold"`
}

type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/sellerops.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("spapi.default_region", "na")
	v.SetDefault("spapi.regions.na.endpoint", "https://sellingpartnerapi-na.amazon.com")
	v.SetDefault("spapi.regions.eu.endpoint", "https://sellingpartnerapi-eu.amazon.com")
	v.SetDefault("spapi.regions.fe.endpoint", "https://sellingpartnerapi-fe.amazon.com")
	v.SetDefault("ads.endpoint", "https://advertising-api.amazon.com")
	v.SetDefault("reports.poll_limit", 50)
	v.SetDefault("reports.poll_after", time.Minute)
	v.SetDefault("reports.backoff_base", time.Minute)
	v.SetDefault("reports.backoff_cap", 30*time.Minute)
	v.SetDefault("reports.stuck_threshold", 2*time.Hour)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.use_ssl", true)
	v.SetDefault("archive.bucket", "sellerops-debug")
	v.SetDefault("archive.prefix", "report-documents")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("spapi.client_id", "SPAPI_CLIENT_ID")
	v.BindEnv("spapi.client_secret", "SPAPI_CLIENT_SECRET")
	v.BindEnv("spapi.regions.na.refresh_token", "SPAPI_NA_REFRESH_TOKEN")
	v.BindEnv("spapi.regions.eu.refresh_token", "SPAPI_EU_REFRESH_TOKEN")
	v.BindEnv("spapi.regions.fe.refresh_token", "SPAPI_FE_REFRESH_TOKEN")
	v.BindEnv("ads.client_id", "ADS_CLIENT_ID")
	v.BindEnv("ads.client_secret", "ADS_CLIENT_SECRET")
	v.BindEnv("ads.refresh_token", "ADS_REFRESH_TOKEN")
	v.BindEnv("archive.access_key", "ARCHIVE_ACCESS_KEY")
	v.BindEnv("archive.secret_key", "ARCHIVE_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
