package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string       `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string       `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string       `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis             Redis        `yaml:"redis"`
	SQLiteStoragePath string       `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./vocabulary.db"`
	Game              Game         `yaml:"game"`
	Vocabulary        []Vocabulary `yaml:"vocabulary"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Game struct {
	// CPUDelay is how long the CPU "thinks" before replying in a local game.
	CPUDelay time.Duration `yaml:"cpu-delay" env:"GAME_CPU_DELAY" env-default:"800ms"`
}

// Vocabulary is a quiz word seeded into storage at start-up.
type Vocabulary struct {
	Prompt string `yaml:"prompt"`
	Answer string `yaml:"answer"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	if that.Host == "" || that.Port == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
