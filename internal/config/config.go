package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"true"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"redpacket"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	ApiKey  string `yaml:"api_key" env-default:""`
}

// GroupDefaults are the fallback settings used when a group row is missing
// or leaves a field unset. Missing configuration is never fatal.
type GroupDefaults struct {
	MaxMembers       int    `yaml:"max_members" env-default:"50"`
	DistributionDays int    `yaml:"distribution_days" env-default:"7"`
	DailyViewLimit   int    `yaml:"daily_view_limit" env-default:"5"`
	SendTime         string `yaml:"send_time" env-default:"10:00"`
}

// PenaltyConfig keeps the escalation thresholds as configuration; the source
// product shipped several variants of these numbers, so nothing hard-codes
// them.
type PenaltyConfig struct {
	CheckTime      string `yaml:"check_time" env-default:"06:00"`
	WarnStreak     int    `yaml:"warn_streak" env-default:"1"`
	SuspendStreak  int    `yaml:"suspend_streak" env-default:"2"`
	PurgeStreak    int    `yaml:"purge_streak" env-default:"3"`
	SuspensionDays int    `yaml:"suspension_days" env-default:"2"`
}

type ResetConfig struct {
	DayOfMonth int    `yaml:"day_of_month" env-default:"1"`
	Time       string `yaml:"time" env-default:"03:00"`
}

type Config struct {
	Env      string         `yaml:"env" env-default:"local"`
	Listen   Listen         `yaml:"listen"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Telegram TelegramConfig `yaml:"telegram"`
	Defaults GroupDefaults  `yaml:"defaults"`
	Penalty  PenaltyConfig  `yaml:"penalty"`
	Reset    ResetConfig    `yaml:"reset"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
