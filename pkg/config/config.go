package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	Environment string `yaml:"environment" default:"dev" validate:"required"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"9999" validate:"min=1,max=65535"`
		ReadBufferSize  int           `yaml:"read_buffer_size" default:"4096" validate:"min=64"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"1s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Admin struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"admin"`
	Protocol struct {
		Delimiter        string `yaml:"delimiter" default:"||" validate:"required"`
		LearningResponse string `yaml:"learning_response" default:"LEARNING" validate:"oneof=LEARNING HOLD"`
	} `yaml:"protocol"`
	Training struct {
		WindowSize           int     `yaml:"window_size" default:"5000" validate:"min=10"`
		RetrainInterval      int     `yaml:"retrain_interval" default:"100" validate:"min=1"`
		MinRows              int     `yaml:"min_rows" default:"100" validate:"min=2"`
		PriceChangeThreshold float64 `yaml:"price_change_threshold" default:"0.5"`
		RSIPeriod            int     `yaml:"rsi_period" default:"14" validate:"min=2"`
		EMAFast              int     `yaml:"ema_fast" default:"12" validate:"min=1"`
		EMASlow              int     `yaml:"ema_slow" default:"26" validate:"min=1"`
		Epochs               int     `yaml:"epochs" default:"200" validate:"min=1"`
		LearningRate         float64 `yaml:"learning_rate" default:"0.1"`
	} `yaml:"training"`
	Policy struct {
		DefaultThreshold float64 `yaml:"default_threshold" default:"0.55" validate:"min=0,max=1"`
		MinThreshold     float64 `yaml:"min_threshold" default:"0.5" validate:"min=0,max=1"`
		MaxThreshold     float64 `yaml:"max_threshold" default:"0.7" validate:"min=0,max=1"`
		HistoryCapacity  int     `yaml:"history_capacity" default:"64" validate:"min=1"`
		VolatilityFilter bool    `yaml:"volatility_filter"`
		RangeFilter      bool    `yaml:"range_filter"`
		RangeProximity   float64 `yaml:"range_proximity" default:"0.05"`
		Lookback         int     `yaml:"lookback" default:"20" validate:"min=3"`
	} `yaml:"policy"`
	Audit struct {
		Backend string `yaml:"backend" default:"none" validate:"oneof=none kafka clickhouse redis"`
		Kafka   struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"decisions"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"gzip"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"250ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Host         string        `yaml:"host" default:"localhost"`
			Port         int           `yaml:"port" default:"9000"`
			Database     string        `yaml:"database" default:"xgbmodel"`
			Table        string        `yaml:"table" default:"decisions"`
			User         string        `yaml:"user" default:"default"`
			Password     string        `yaml:"password"`
			AsyncInsert  bool          `yaml:"async_insert"`
			WaitForAsync bool          `yaml:"wait_for_async_insert"`
			DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"clickhouse"`
		Redis struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Channel  string `yaml:"channel" default:"decisions"`
		} `yaml:"redis"`
	} `yaml:"audit"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
}

// Load reads and parses a YAML configuration file, applying defaults and
// validating the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&c)
}

// Default returns a configuration with every default applied, used when no
// config file is given.
func Default() (*Config, error) {
	var c Config
	return finish(&c)
}

// LoadWithEnv loads config from YAML (or defaults when path is empty) and
// overrides selected fields with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	var c *Config
	var err error
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("LISTEN_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("LISTEN_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("LISTEN_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("AUDIT_BACKEND"); v != "" {
		c.Audit.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Audit.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func finish(c *Config) (*Config, error) {
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags plus the cross-field rules the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Policy.MinThreshold > c.Policy.MaxThreshold {
		return fmt.Errorf("policy.min_threshold %v exceeds policy.max_threshold %v",
			c.Policy.MinThreshold, c.Policy.MaxThreshold)
	}
	if c.Policy.DefaultThreshold < c.Policy.MinThreshold || c.Policy.DefaultThreshold > c.Policy.MaxThreshold {
		return fmt.Errorf("policy.default_threshold %v outside [%v, %v]",
			c.Policy.DefaultThreshold, c.Policy.MinThreshold, c.Policy.MaxThreshold)
	}
	if c.Training.EMAFast >= c.Training.EMASlow {
		return fmt.Errorf("training.ema_fast must be below training.ema_slow")
	}
	if c.Audit.Backend == "kafka" && len(c.Audit.Kafka.Brokers) == 0 {
		return fmt.Errorf("audit.kafka.brokers cannot be empty for the kafka backend")
	}
	return nil
}
