// Copyright 2025 madder Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration of the madder service.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Server    ServerConfig    `mapstructure:"server"`
}

type DatabaseConfig struct {
	// ModelStore is the DSN of the per-user model store (redis:// or memory://).
	ModelStore string `mapstructure:"model_store" validate:"required"`
	// LogStore is the DSN of the interaction log (postgres://, mysql://,
	// sqlite:// or empty to disable logging).
	LogStore string `mapstructure:"log_store"`
	// TablePrefix is prepended to table names and keys.
	TablePrefix string `mapstructure:"table_prefix"`
	// ModelCacheTTL enables the in-process model read cache when positive.
	ModelCacheTTL time.Duration `mapstructure:"model_cache_ttl" validate:"gte=0"`
	// IOTimeout bounds a single model store round trip. Requests degrade to
	// an untrained model instead of waiting longer.
	IOTimeout time.Duration `mapstructure:"io_timeout" validate:"gt=0"`
}

type RecommendConfig struct {
	// Alpha is the exploration strength of the UCB policy: higher values
	// favor uncertain items.
	Alpha float64 `mapstructure:"alpha" validate:"gte=0"`
	// ExplorationRatio is the share of returned items picked by
	// uncertainty instead of expected reward.
	ExplorationRatio float64 `mapstructure:"exploration_ratio" validate:"gte=0,lte=1"`
	// DefaultCount is the recommendation list length when the request
	// does not specify one.
	DefaultCount int `mapstructure:"default_count" validate:"gt=0"`
	// CandidateFilter is an optional expr boolean expression over `item`
	// and `context` applied to candidates before scoring.
	CandidateFilter string `mapstructure:"candidate_filter"`
	// InverseRefreshPeriod is the number of incremental inverse updates
	// between full re-inversions.
	InverseRefreshPeriod int64 `mapstructure:"inverse_refresh_period" validate:"gt=0"`
}

type ServerConfig struct {
	HttpHost string `mapstructure:"http_host"`
	HttpPort int    `mapstructure:"http_port" validate:"gt=0"`
	// APIKey guards the REST API via the X-API-Key header when set.
	APIKey string `mapstructure:"api_key"`
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			ModelStore:    "memory://",
			ModelCacheTTL: 10 * time.Second,
			IOTimeout:     200 * time.Millisecond,
		},
		Recommend: RecommendConfig{
			Alpha:                0.3,
			ExplorationRatio:     0.2,
			DefaultCount:         10,
			InverseRefreshPeriod: 64,
		},
		Server: ServerConfig{
			HttpHost: "127.0.0.1",
			HttpPort: 8087,
		},
	}
}

func setDefault() {
	defaults := GetDefaultConfig()
	viper.SetDefault("database.model_store", defaults.Database.ModelStore)
	viper.SetDefault("database.log_store", defaults.Database.LogStore)
	viper.SetDefault("database.table_prefix", defaults.Database.TablePrefix)
	viper.SetDefault("database.model_cache_ttl", defaults.Database.ModelCacheTTL)
	viper.SetDefault("database.io_timeout", defaults.Database.IOTimeout)
	viper.SetDefault("recommend.alpha", defaults.Recommend.Alpha)
	viper.SetDefault("recommend.exploration_ratio", defaults.Recommend.ExplorationRatio)
	viper.SetDefault("recommend.default_count", defaults.Recommend.DefaultCount)
	viper.SetDefault("recommend.candidate_filter", defaults.Recommend.CandidateFilter)
	viper.SetDefault("recommend.inverse_refresh_period", defaults.Recommend.InverseRefreshPeriod)
	viper.SetDefault("server.http_host", defaults.Server.HttpHost)
	viper.SetDefault("server.http_port", defaults.Server.HttpPort)
	viper.SetDefault("server.api_key", defaults.Server.APIKey)
}

// LoadConfig loads and validates the configuration from a TOML file.
// Every setting can be overridden by a MADDER_-prefixed environment
// variable, e.g. MADDER_DATABASE_MODEL_STORE.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("madder")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks the configuration against its struct tags.
func (config *Config) Validate() error {
	return errors.Trace(validator.New().Struct(config))
}
