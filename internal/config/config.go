package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultFile is where settings persist between runs. The file is created
// with defaults on first launch so users have something to edit.
const DefaultFile = "quiz_config.json"

type Config struct {
	DataDir     string `json:"data_dir"`
	OllamaModel string `json:"ollama_model"`
	OllamaHost  string `json:"ollama_host"`
}

func defaults() Config {
	return Config{
		DataDir:     "data",
		OllamaModel: "llama3.2",
		OllamaHost:  "http://localhost:11434",
	}
}

// Load reads the config file at path, creating it with defaults when it does
// not exist. Environment variables override file values so deployments can
// adjust settings without touching the file.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultFile
	}

	cfg := defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if err := cfg.Save(path); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if v := os.Getenv("QUIZ_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.OllamaHost = v
	}
	return cfg, nil
}

// Save writes the config as indented JSON so hand edits stay pleasant.
func (c Config) Save(path string) error {
	if path == "" {
		path = DefaultFile
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
