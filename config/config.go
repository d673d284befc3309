package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Identity IdentityConfig `mapstructure:"identity"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	GRPCAddress string `mapstructure:"grpc_address"`
	// Inbound websocket requests per second per connection.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	RequestBurst      int     `mapstructure:"request_burst"`
	// Expected client heartbeat interval; zero disables idle detection.
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	// Run embedded migrations on startup.
	Migrate bool `mapstructure:"migrate"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN is the keyword/value connection string understood by both pgx and
// lib/pq.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type GameConfig struct {
	DisconnectGrace time.Duration `mapstructure:"disconnect_grace"`
	CommandTimeout  time.Duration `mapstructure:"command_timeout"`
	SampleInterval  time.Duration `mapstructure:"sample_interval"`
	SettledRoomTTL  time.Duration `mapstructure:"settled_room_ttl"`
}

type IdentityConfig struct {
	// "jwt" or "header".
	Mode      string `mapstructure:"mode"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.grpc_address", ":9090")
	v.SetDefault("server.requests_per_second", 10.0)
	v.SetDefault("server.request_burst", 20)
	v.SetDefault("server.heartbeat", 30*time.Second)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.migrate", true)
	v.SetDefault("game.disconnect_grace", 30*time.Second)
	v.SetDefault("game.command_timeout", 5*time.Second)
	v.SetDefault("game.sample_interval", 15*time.Second)
	v.SetDefault("game.settled_room_ttl", 10*time.Minute)
	v.SetDefault("identity.mode", "jwt")
	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path, then applies RELICROOM_* environment
// overrides. A missing config file is not an error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("relicroom")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
