package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

type S3Config struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Region      string `yaml:"region"`
	Extension   string `yaml:"extension"`
	Concurrency uint   `yaml:"concurrency"`
	MaxRetries  int    `yaml:"max-retries"`
}

// Config is shared by the qk-* commands. Each command only reads the
// sections it needs.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	S3     S3Config     `yaml:"s3"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		S3: S3Config{
			Region:      "us-east-1",
			Extension:   "png",
			Concurrency: 16,
			MaxRetries:  10,
		},
	}
}

// Load starts from Default, applies the yaml file at path if path is set,
// then the QK_* environment. envFiles are loaded into the environment first;
// missing ones are skipped and never override variables already set.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		dec := yaml.NewDecoder(f)
		dec.SetStrict(true)
		err = dec.Decode(&cfg)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	if c.S3.Concurrency == 0 {
		return errors.New("s3.concurrency must be at least 1")
	}
	if c.S3.Extension == "" || strings.Contains(c.S3.Extension, "/") {
		return fmt.Errorf("s3.extension %q is not a file extension", c.S3.Extension)
	}
	return nil
}

func applyEnv(c *Config) error {
	c.Server.Addr = getenv("QK_ADDR", c.Server.Addr)
	c.Log.Level = getenv("QK_LOG_LEVEL", c.Log.Level)
	c.S3.Bucket = getenv("QK_S3_BUCKET", c.S3.Bucket)
	c.S3.Prefix = getenv("QK_S3_PREFIX", c.S3.Prefix)
	c.S3.Region = getenv("QK_S3_REGION", c.S3.Region)
	c.S3.Extension = getenv("QK_S3_EXTENSION", c.S3.Extension)

	var err error
	if c.Server.ShutdownTimeout, err = getduration("QK_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout); err != nil {
		return err
	}
	if c.Log.Console, err = getbool("QK_LOG_CONSOLE", c.Log.Console); err != nil {
		return err
	}
	concurrency, err := getuint("QK_S3_CONCURRENCY", uint64(c.S3.Concurrency))
	if err != nil {
		return err
	}
	c.S3.Concurrency = uint(concurrency)
	maxRetries, err := getuint("QK_S3_MAX_RETRIES", uint64(c.S3.MaxRetries))
	if err != nil {
		return err
	}
	c.S3.MaxRetries = int(maxRetries)
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getuint(k string, def uint64) (uint64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getbool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

func getduration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}
