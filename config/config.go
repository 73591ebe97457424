package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"anemiacbc/logging"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const DefaultPath = "config.yaml"

type Config struct {
	Data struct {
		Path   string `yaml:"path"`
		DBPath string `yaml:"db_path"`
	} `yaml:"data"`
	Model struct {
		Dir            string  `yaml:"dir"`
		Type           string  `yaml:"type"`
		NTrees         int     `yaml:"n_trees"`
		MaxDepth       int     `yaml:"max_depth"`
		TestRatio      float64 `yaml:"test_ratio"`
		Seed           int64   `yaml:"seed"`
		Threshold      float64 `yaml:"threshold"`
		CategoryPolicy string  `yaml:"category_policy"`
	} `yaml:"model"`
	Http struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		CacheSize      int      `yaml:"cache_size"`
		MaxBodyBytes   int64    `yaml:"max_body_bytes"`
		WatchArtifact  bool     `yaml:"watch_artifact"`
	} `yaml:"http"`
	Log logging.Config `yaml:"log"`
}

func Default() *Config {
	c := &Config{}
	c.Data.Path = "data/anemia_cbc.csv"
	c.Data.DBPath = "data/anemia.db"
	c.Model.Dir = "models"
	c.Model.Type = "random_forest"
	c.Model.NTrees = 150
	c.Model.TestRatio = 0.2
	c.Model.Seed = 42
	c.Model.Threshold = 0.5
	c.Model.CategoryPolicy = "strict"
	c.Http.Port = 5000
	c.Http.AllowedOrigins = []string{"*"}
	c.Http.CacheSize = 1024
	c.Http.MaxBodyBytes = 1 << 20
	c.Http.WatchArtifact = true
	c.Log.Level = "info"
	return c
}

// Load starts from Default, overlays the YAML file at path when it exists,
// then a .env file and ANEMIA_* environment variables.
func Load(path string) (*Config, error) {
	c := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("ANEMIA_DATA_PATH", &c.Data.Path)
	setString("ANEMIA_DB_PATH", &c.Data.DBPath)
	setString("ANEMIA_MODEL_DIR", &c.Model.Dir)
	setString("ANEMIA_CATEGORY_POLICY", &c.Model.CategoryPolicy)
	setString("ANEMIA_LOG_LEVEL", &c.Log.Level)
	setString("ANEMIA_LOG_FILE", &c.Log.File)

	if v := os.Getenv("ANEMIA_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ANEMIA_PORT: %w", err)
		}
		c.Http.Port = port
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Data.Path == "" {
		return errors.New("data.path is required")
	}
	if c.Model.Dir == "" {
		return errors.New("model.dir is required")
	}
	if c.Model.TestRatio <= 0 || c.Model.TestRatio >= 1 {
		return fmt.Errorf("model.test_ratio %v must be in (0, 1)", c.Model.TestRatio)
	}
	if c.Model.Threshold <= 0 || c.Model.Threshold >= 1 {
		return fmt.Errorf("model.threshold %v must be in (0, 1)", c.Model.Threshold)
	}
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	return nil
}
