// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env  string
	Port string

	CORSOrigins []string

	Postgres PostgresConfig

	DocStore      string
	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	PoolCacheTTL  time.Duration

	RabbitURI      string
	RabbitExchange string

	JWTSecret string
	JWTTTL    time.Duration

	SessionTick    time.Duration
	SessionIdleTTL time.Duration

	RollbarToken string

	Generator GeneratorConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Name, p.SSLMode,
	)
}

type GeneratorConfig struct {
	Mock    bool
	UseCLI  bool
	CLIPath string
	Model   string
	APIKey  string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] could not read .env: %v", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("env", "dev")
	v.SetDefault("port", "8080")
	v.SetDefault("cors_origins", "*")

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "mcq_user")
	v.SetDefault("db_password", "mcq_password")
	v.SetDefault("db_name", "mcq_practice")
	v.SetDefault("db_sslmode", "disable")

	v.SetDefault("docstore", "mongo")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "mcq_practice")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("pool_cache_ttl", 10*time.Minute)

	v.SetDefault("rabbitmq_uri", "")
	v.SetDefault("rabbitmq_exchange", "")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_ttl", 72*time.Hour)

	v.SetDefault("session_tick", time.Second)
	v.SetDefault("session_idle_ttl", 2*time.Hour)

	v.SetDefault("rollbar_token", "")

	v.SetDefault("mock_generator", false)
	v.SetDefault("use_cli_generator", false)
	v.SetDefault("claude_cli_path", "claude")
	v.SetDefault("anthropic_model", "claude-opus-4-5-20251101")
	v.SetDefault("anthropic_api_key", "")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:         strings.ToLower(v.GetString("env")),
		Port:        v.GetString("port"),
		CORSOrigins: splitList(v.GetString("cors_origins")),
		Postgres: PostgresConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
		},
		DocStore:       strings.ToLower(v.GetString("docstore")),
		MongoURI:       v.GetString("mongo_uri"),
		MongoDatabase:  v.GetString("mongo_database"),
		RedisAddr:      v.GetString("redis_addr"),
		RedisPassword:  v.GetString("redis_password"),
		PoolCacheTTL:   v.GetDuration("pool_cache_ttl"),
		RabbitURI:      v.GetString("rabbitmq_uri"),
		RabbitExchange: v.GetString("rabbitmq_exchange"),
		JWTSecret:      v.GetString("jwt_secret"),
		JWTTTL:         v.GetDuration("jwt_ttl"),
		SessionTick:    v.GetDuration("session_tick"),
		SessionIdleTTL: v.GetDuration("session_idle_ttl"),
		RollbarToken:   v.GetString("rollbar_token"),
		Generator: GeneratorConfig{
			Mock:    v.GetBool("mock_generator"),
			UseCLI:  v.GetBool("use_cli_generator"),
			CLIPath: v.GetString("claude_cli_path"),
			Model:   v.GetString("anthropic_model"),
			APIKey:  v.GetString("anthropic_api_key"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DocStore != "mongo" && c.DocStore != "memory" {
		return fmt.Errorf("DOCSTORE must be 'mongo' or 'memory', got %q", c.DocStore)
	}
	if c.JWTSecret == "" {
		if c.Env == "prod" {
			return fmt.Errorf("JWT_SECRET is required in prod")
		}
		c.JWTSecret = "mcq-practice-dev-signing-key"
		log.Println("[config] JWT_SECRET not set, using development key")
	}
	if c.SessionTick <= 0 {
		return fmt.Errorf("SESSION_TICK must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
