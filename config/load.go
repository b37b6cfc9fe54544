package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const defaultConfigPath = "config.yml"

// Load reads config.yml when present and overlays environment
// variables. A .env file next to the binary is honored first.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	var cfg AppConfig
	path := os.Getenv("UGEL_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
