package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Products ProductsConfig `yaml:"products"`
	Stat     StatConfig     `yaml:"stat"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RabbitMQConfig configures the optional event mirror. When Enabled is false
// the process runs fully self-contained and no broker connection is made.
type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Exchange string `yaml:"exchange"`
}

type ProductsConfig struct {
	CSVPath string `yaml:"csv_path"`
}

type StatConfig struct {
	CSVOutputPath string `yaml:"csv_output_path"`
}

// Load reads the YAML config file and applies environment overrides. A .env
// file next to the binary is honored when present; secrets like the database
// password normally arrive this way instead of living in config.yaml.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: 8000},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "murchace",
			Database: "murchace",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: "murchace.orders",
		},
		Products: ProductsConfig{CSVPath: "static/product-list.csv"},
		Stat:     StatConfig{CSVOutputPath: "static/stat.csv"},
	}
}

func applyEnv(cfg *Config) {
	overrideString(&cfg.Database.Host, "MURCHACE_DB_HOST")
	overrideInt(&cfg.Database.Port, "MURCHACE_DB_PORT")
	overrideString(&cfg.Database.User, "MURCHACE_DB_USER")
	overrideString(&cfg.Database.Password, "MURCHACE_DB_PASSWORD")
	overrideString(&cfg.Database.Database, "MURCHACE_DB_NAME")
	overrideString(&cfg.RabbitMQ.Password, "MURCHACE_AMQP_PASSWORD")
	overrideInt(&cfg.Server.Port, "MURCHACE_PORT")
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
