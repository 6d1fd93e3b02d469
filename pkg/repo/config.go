package repo

import (
	"os"
	"path"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

type Duration time.Duration

func (d *Duration) MarshalText() (text []byte, err error) {
	return []byte(time.Duration(*d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	x, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(x)
	return nil
}

func StringToTimeDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t != reflect.TypeOf(Duration(5)) {
			return data, nil
		}

		d, err := time.ParseDuration(data.(string))
		if err != nil {
			return nil, err
		}
		return Duration(d), nil
	}
}

func (d *Duration) ToDuration() time.Duration {
	return time.Duration(*d)
}

func (d *Duration) String() string {
	return time.Duration(*d).String()
}

type Config struct {
	ChainID uint64  `mapstructure:"chain_id" toml:"chain_id"`
	Relay   Relay   `mapstructure:"relay" toml:"relay"`
	Stake   Stake   `mapstructure:"stake" toml:"stake"`
	Storage Storage `mapstructure:"storage" toml:"storage"`
	JsonRPC JsonRPC `mapstructure:"jsonrpc" toml:"jsonrpc"`
	Monitor Monitor `mapstructure:"monitor" toml:"monitor"`
	Log     Log     `mapstructure:"log" toml:"log"`
}

type Relay struct {
	// Redeemer receives the actual cost of every operation in a batch when the caller does not name one
	Redeemer string `mapstructure:"redeemer" toml:"redeemer"`

	// BaseFee is the network base fee in wei, 0 when the environment has no such concept
	BaseFee uint64 `mapstructure:"base_fee" toml:"base_fee"`

	MaxBatchSize     int `mapstructure:"max_batch_size" toml:"max_batch_size"`
	AddressCacheSize int `mapstructure:"address_cache_size" toml:"address_cache_size"`
}

type Stake struct {
	FixedLockPeriod     Duration `mapstructure:"fixed_lock_period" toml:"fixed_lock_period"`
	MinimumUnstakeDelay Duration `mapstructure:"minimum_unstake_delay" toml:"minimum_unstake_delay"`
}

type Storage struct {
	KvType      string `mapstructure:"kv_type" toml:"kv_type"`
	KvCacheSize int    `mapstructure:"kv_cache_size" toml:"kv_cache_size"`
	Sync        bool   `mapstructure:"sync" toml:"sync"`
}

type JsonRPC struct {
	Enable         bool     `mapstructure:"enable" toml:"enable"`
	Port           int64    `mapstructure:"port" toml:"port"`
	ReadTimeout    Duration `mapstructure:"read_timeout" toml:"read_timeout"`
	WriteTimeout   Duration `mapstructure:"write_timeout" toml:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
	// ReadLimiter throttles queries, WriteLimiter throttles batch submission
	ReadLimiter  JLimiter `mapstructure:"read_limiter" toml:"read_limiter"`
	WriteLimiter JLimiter `mapstructure:"write_limiter" toml:"write_limiter"`
}

type JLimiter struct {
	Interval Duration `mapstructure:"interval" toml:"interval"`
	Quantum  int64    `mapstructure:"quantum" toml:"quantum"`
	Capacity int64    `mapstructure:"capacity" toml:"capacity"`
	Enable   bool     `mapstructure:"enable" toml:"enable"`
}

type Monitor struct {
	Enable bool  `mapstructure:"enable" toml:"enable"`
	Port   int64 `mapstructure:"port" toml:"port"`
}

type Log struct {
	Level            string    `mapstructure:"level" toml:"level"`
	Filename         string    `mapstructure:"filename" toml:"filename"`
	ReportCaller     bool      `mapstructure:"report_caller" toml:"report_caller"`
	EnableColor      bool      `mapstructure:"enable_color" toml:"enable_color"`
	DisableTimestamp bool      `mapstructure:"disable_timestamp" toml:"disable_timestamp"`
	Module           LogModule `mapstructure:"module" toml:"module"`
}

type LogModule struct {
	Relay          string `mapstructure:"relay" toml:"relay"`
	Account        string `mapstructure:"account" toml:"account"`
	Sponsor        string `mapstructure:"sponsor" toml:"sponsor"`
	Stake          string `mapstructure:"stake" toml:"stake"`
	Storage        string `mapstructure:"storage" toml:"storage"`
	API            string `mapstructure:"api" toml:"api"`
	SystemContract string `mapstructure:"system_contract" toml:"system_contract"`
}

func DefaultConfig() *Config {
	return &Config{
		ChainID: DefaultChainID,
		Relay: Relay{
			Redeemer:         "",
			BaseFee:          0,
			MaxBatchSize:     64,
			AddressCacheSize: 4096,
		},
		Stake: Stake{
			FixedLockPeriod:     Duration(DefaultFixedLockPeriod * time.Second),
			MinimumUnstakeDelay: Duration(DefaultMinimumUnstakeDelay * time.Second),
		},
		Storage: Storage{
			KvType:      KVStorageTypePebble,
			KvCacheSize: KVStorageCacheSize,
			Sync:        KVStorageSync,
		},
		JsonRPC: JsonRPC{
			Enable:         true,
			Port:           8881,
			ReadTimeout:    Duration(5 * time.Second),
			WriteTimeout:   Duration(10 * time.Second),
			AllowedOrigins: []string{"*"},
			ReadLimiter: JLimiter{
				Interval: Duration(50 * time.Millisecond),
				Quantum:  500,
				Capacity: 10000,
				Enable:   true,
			},
			WriteLimiter: JLimiter{
				Interval: Duration(50 * time.Millisecond),
				Quantum:  50,
				Capacity: 1000,
				Enable:   true,
			},
		},
		Monitor: Monitor{
			Enable: true,
			Port:   40011,
		},
		Log: Log{
			Level:            "info",
			Filename:         "axiom-relay",
			ReportCaller:     false,
			EnableColor:      true,
			DisableTimestamp: false,
			Module: LogModule{
				Relay:          "info",
				Account:        "info",
				Sponsor:        "info",
				Stake:          "info",
				Storage:        "info",
				API:            "info",
				SystemContract: "info",
			},
		},
	}
}

func LoadConfig(repoRoot string) (*Config, error) {
	cfg, err := func() (*Config, error) {
		cfg := DefaultConfig()
		cfgPath := path.Join(repoRoot, CfgFileName)
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			if err := os.MkdirAll(repoRoot, 0755); err != nil {
				return nil, errors.Wrap(err, "failed to build default config")
			}

			if err := writeConfigWithEnv(cfgPath, cfg); err != nil {
				return nil, errors.Wrap(err, "failed to build default config")
			}
		} else {
			if err := CheckWritable(repoRoot); err != nil {
				return nil, err
			}
			if err := readConfigFromFile(cfgPath, cfg); err != nil {
				return nil, err
			}
		}

		return cfg, nil
	}()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	return cfg, nil
}
