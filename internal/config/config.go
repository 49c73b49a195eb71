package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	State        StateConfig        `mapstructure:"state"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Admin        AdminConfig        `mapstructure:"admin"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Log          LogConfig          `mapstructure:"log"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	Verification VerificationConfig `mapstructure:"verification"`
	Attendance   AttendanceConfig   `mapstructure:"attendance"`
	Linking      LinkingConfig      `mapstructure:"linking"`
}

type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	Mode                    string        `mapstructure:"mode"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

type DatabaseConfig struct {
	Backend  string         `mapstructure:"backend"` // "postgres" | "memory"
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DB              string        `mapstructure:"db"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type StateConfig struct {
	Backend string `mapstructure:"backend"` // "redis" | "memory"
}

type JWTConfig struct {
	SigningKey     string        `mapstructure:"signing_key"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type AdminConfig struct {
	UserIDs []string `mapstructure:"user_ids"`
}

type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SMTPConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

// ExhaustionPolicy selects what happens when a challenge runs out of attempts.
type ExhaustionPolicy string

const (
	ExhaustionRateLimit ExhaustionPolicy = "rate_limit"
	ExhaustionPurge     ExhaustionPolicy = "purge"
)

type VerificationConfig struct {
	AllowedDomains   []string         `mapstructure:"allowed_domains"`
	CodeLength       int              `mapstructure:"code_length"`
	CodeTTL          time.Duration    `mapstructure:"code_ttl"`
	MaxAttempts      int              `mapstructure:"max_attempts"`
	ExhaustionPolicy ExhaustionPolicy `mapstructure:"exhaustion_policy"`
	Cooldown         time.Duration    `mapstructure:"cooldown"`
	ResendInterval   time.Duration    `mapstructure:"resend_interval"`
	HashCost         int              `mapstructure:"hash_cost"`
}

type AttendanceConfig struct {
	CodeLength          int `mapstructure:"code_length"`
	MaxGenerateAttempts int `mapstructure:"max_generate_attempts"`
}

type LinkingConfig struct {
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.graceful_shutdown_timeout", 15*time.Second)

	v.SetDefault("database.backend", "postgres")
	v.SetDefault("state.backend", "memory")

	v.SetDefault("jwt.issuer", "mlh-ttu")
	v.SetDefault("jwt.access_token_ttl", time.Hour)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 12*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("verification.allowed_domains", []string{"ttu.edu"})
	v.SetDefault("verification.code_length", 6)
	v.SetDefault("verification.code_ttl", 10*time.Minute)
	v.SetDefault("verification.max_attempts", 3)
	v.SetDefault("verification.exhaustion_policy", string(ExhaustionRateLimit))
	v.SetDefault("verification.cooldown", 5*time.Minute)
	v.SetDefault("verification.resend_interval", 30*time.Second)
	v.SetDefault("verification.hash_cost", 10)

	v.SetDefault("attendance.code_length", 6)
	v.SetDefault("attendance.max_generate_attempts", 5)

	v.SetDefault("linking.token_ttl", 10*time.Minute)
}

// Load reads config.yaml, overlays environment variables, and returns Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	// Environment variable override: DATABASE_POSTGRES_HOST -> database.postgres.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
