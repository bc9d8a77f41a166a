package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel   string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat  string   `yaml:"log-format" env:"LOG_FORMAT" env-default:"json"`
	HTTPPort   string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	GossipPort string   `yaml:"gossip-port" env:"GOSSIP_PORT" env-default:"9091"`
	Ruleset    string   `yaml:"ruleset" env:"RULESET" env-default:"checkers"`
	Peers      []string `yaml:"peers" env:"PEERS" env-separator:","`
	Agent      Agent    `yaml:"agent"`
	Storage    Storage  `yaml:"storage"`
	Redis      Redis    `yaml:"redis"`
}

// Agent - an empty key makes the node generate one at boot, which gives it a new identity.
type Agent struct {
	Name string `yaml:"name" env:"AGENT_NAME" env-default:"player"`
	Key  string `yaml:"key" env:"AGENT_KEY"`
}

// Storage - driver is one of memory, redis, sqlite or postgres.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
	DSN    string `yaml:"dsn" env:"STORAGE_DSN" env-default:"movechain.db"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file. Variables from an optional .env file
// next to the working directory take part in the environment overrides.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unable to load .env file: %w", err)
	}

	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
