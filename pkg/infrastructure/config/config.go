// Package config loads engine settings from a YAML file and the environment.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

type Config struct {
	Env         string `yaml:"env" env:"MRP_ENV" env-default:"local"`
	LogLevel    string `yaml:"log_level" env:"MRP_LOG_LEVEL"`
	StoragePath string `yaml:"storage_path" env:"MRP_STORAGE_PATH"` // empty keeps plans in memory
	MetricsPath string `yaml:"metrics_path" env:"MRP_METRICS_PATH"` // textfile collector output
	Planning    `yaml:"planning"`
	Capacity    `yaml:"capacity"`
	Run         `yaml:"run"`
}

type Planning struct {
	HorizonDays            int     `yaml:"horizon_days" env:"MRP_HORIZON_DAYS" env-default:"90"`
	BucketDays             int     `yaml:"bucket_days" env:"MRP_BUCKET_DAYS" env-default:"1"`
	IncludeSafetyStock     bool    `yaml:"include_safety_stock" env:"MRP_INCLUDE_SAFETY_STOCK" env-default:"true"`
	ConsiderLeadTimes      bool    `yaml:"consider_lead_times" env:"MRP_CONSIDER_LEAD_TIMES" env-default:"true"`
	NetChangeOnly          bool    `yaml:"net_change_only" env:"MRP_NET_CHANGE_ONLY" env-default:"false"`
	DefaultLotSizing       string  `yaml:"default_lot_sizing" env:"MRP_DEFAULT_LOT_SIZING" env-default:"LotForLot"`
	DefaultFixedQty        float64 `yaml:"default_fixed_qty" env:"MRP_DEFAULT_FIXED_QTY" env-default:"0"`
	DefaultPeriodsOfSupply int     `yaml:"default_periods_of_supply" env:"MRP_DEFAULT_PERIODS_OF_SUPPLY" env-default:"0"`
	RunCapacity            bool    `yaml:"run_capacity" env:"MRP_RUN_CAPACITY" env-default:"false"`
}

type Capacity struct {
	Mode                string  `yaml:"mode" env:"MRP_CAPACITY_MODE" env-default:"infinite"`
	Shift               string  `yaml:"shift" env:"MRP_CAPACITY_SHIFT" env-default:"whole"`
	IncludeSetupTime    bool    `yaml:"include_setup_time" env:"MRP_INCLUDE_SETUP_TIME" env-default:"true"`
	IncludeQueueTime    bool    `yaml:"include_queue_time" env:"MRP_INCLUDE_QUEUE_TIME" env-default:"true"`
	IncludeMoveTime     bool    `yaml:"include_move_time" env:"MRP_INCLUDE_MOVE_TIME" env-default:"true"`
	IncludeEfficiency   bool    `yaml:"include_efficiency" env:"MRP_INCLUDE_EFFICIENCY" env-default:"true"`
	HighThreshold       float64 `yaml:"high_threshold" env:"MRP_HIGH_THRESHOLD" env-default:"80"`
	OverloadThreshold   float64 `yaml:"overload_threshold" env:"MRP_OVERLOAD_THRESHOLD" env-default:"100"`
	BottleneckThreshold float64 `yaml:"bottleneck_threshold" env:"MRP_BOTTLENECK_THRESHOLD" env-default:"120"`
}

type Run struct {
	Workers  int           `yaml:"workers" env:"MRP_WORKERS" env-default:"0"`
	Deadline time.Duration `yaml:"deadline" env:"MRP_DEADLINE" env-default:"0s"`
	Schedule string        `yaml:"schedule" env:"MRP_SCHEDULE" env-default:"@daily"`
}

// Load reads the YAML file at path, then applies environment overrides.
// With an empty path only the environment and defaults are used.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path == "" {
		err = cleanenv.ReadEnv(&cfg)
	} else {
		err = cleanenv.ReadConfig(path, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.HorizonDays < 1 {
		return fmt.Errorf("%w: horizon_days must be positive, got %d", entities.ErrValidation, c.HorizonDays)
	}
	if c.BucketDays < 1 {
		return fmt.Errorf("%w: bucket_days must be positive, got %d", entities.ErrValidation, c.BucketDays)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers cannot be negative, got %d", entities.ErrValidation, c.Workers)
	}
	if _, err := c.PlanningPolicy(); err != nil {
		return err
	}
	_, err := c.CapacityPolicy()
	return err
}

// Horizon returns the configured horizon starting on start
func (c *Config) Horizon(start time.Time) (entities.Horizon, error) {
	return entities.NewHorizon(start, entities.AddDays(start, c.HorizonDays-1), c.BucketDays)
}

// PlanningPolicy converts the planning section into a policy
func (c *Config) PlanningPolicy() (entities.PlanningPolicy, error) {
	method, err := entities.ParseLotSizingMethod(c.DefaultLotSizing)
	if err != nil {
		return entities.PlanningPolicy{}, err
	}
	return entities.PlanningPolicy{
		IncludeSafetyStock:     c.IncludeSafetyStock,
		ConsiderLeadTimes:      c.ConsiderLeadTimes,
		NetChangeOnly:          c.NetChangeOnly,
		DefaultLotSizing:       method,
		DefaultFixedQty:        decimal.NewFromFloat(c.DefaultFixedQty),
		DefaultPeriodsOfSupply: c.DefaultPeriodsOfSupply,
		RunCapacity:            c.RunCapacity,
	}, nil
}

// CapacityPolicy converts the capacity section into a policy
func (c *Config) CapacityPolicy() (entities.CapacityPolicy, error) {
	policy := entities.CapacityPolicy{
		IncludeSetupTime:  c.IncludeSetupTime,
		IncludeQueueTime:  c.IncludeQueueTime,
		IncludeMoveTime:   c.IncludeMoveTime,
		IncludeEfficiency: c.IncludeEfficiency,
		Thresholds: entities.LoadThresholds{
			High:       decimal.NewFromFloat(c.HighThreshold),
			Overload:   decimal.NewFromFloat(c.OverloadThreshold),
			Bottleneck: decimal.NewFromFloat(c.BottleneckThreshold),
		},
	}

	switch strings.ToLower(c.Mode) {
	case "infinite":
		policy.Mode = entities.InfiniteCapacity
	case "finite":
		policy.Mode = entities.FiniteCapacity
	default:
		return policy, fmt.Errorf("%w: unknown capacity mode %q", entities.ErrValidation, c.Mode)
	}

	switch strings.ToLower(c.Shift) {
	case "whole":
		policy.Shift = entities.ShiftWhole
	case "split":
		policy.Shift = entities.ShiftSplit
	default:
		return policy, fmt.Errorf("%w: unknown shift policy %q", entities.ErrValidation, c.Shift)
	}

	if err := policy.Thresholds.Validate(); err != nil {
		return policy, err
	}
	return policy, nil
}
