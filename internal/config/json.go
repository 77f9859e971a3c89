package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// jsonConfig mirrors [Config] with JSON tags and string durations, so a
// config file can spell intervals as "24h" or "500ms".
type jsonConfig struct {
	Engine struct {
		SchemaVersion string `json:"schema_version"`
		DeviceID      string `json:"device_id"`
		CryptoSecret  string `json:"crypto_secret"`
	} `json:"engine,omitempty"`

	Cache struct {
		TTL Duration `json:"ttl"`
	} `json:"cache,omitempty"`

	Queue struct {
		MaxRetries   int      `json:"max_retries"`
		DrainBackoff Duration `json:"drain_backoff"`
		SettleDelay  Duration `json:"settle_delay"`
	} `json:"queue,omitempty"`

	Resolver struct {
		SkewThreshold Duration `json:"skew_threshold"`
	} `json:"resolver,omitempty"`

	Remote struct {
		BaseURL        string   `json:"base_url"`
		RequestTimeout Duration `json:"request_timeout"`
		ProbeInterval  Duration `json:"probe_interval"`
	} `json:"remote,omitempty"`

	Storage struct {
		DSN string `json:"dsn"`
	} `json:"storage,omitempty"`

	Workers struct {
		SyncInterval Duration `json:"sync_interval"`
	} `json:"workers,omitempty"`
}

func parseJSON(jsonFilePath string) (*Config, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg jsonConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &Config{
		Engine: Engine{
			SchemaVersion: jsonCfg.Engine.SchemaVersion,
			DeviceID:      jsonCfg.Engine.DeviceID,
			CryptoSecret:  jsonCfg.Engine.CryptoSecret,
		},
		Cache: Cache{
			TTL: time.Duration(jsonCfg.Cache.TTL),
		},
		Queue: Queue{
			MaxRetries:   jsonCfg.Queue.MaxRetries,
			DrainBackoff: time.Duration(jsonCfg.Queue.DrainBackoff),
			SettleDelay:  time.Duration(jsonCfg.Queue.SettleDelay),
		},
		Resolver: Resolver{
			SkewThreshold: time.Duration(jsonCfg.Resolver.SkewThreshold),
		},
		Remote: Remote{
			BaseURL:        jsonCfg.Remote.BaseURL,
			RequestTimeout: time.Duration(jsonCfg.Remote.RequestTimeout),
			ProbeInterval:  time.Duration(jsonCfg.Remote.ProbeInterval),
		},
		Storage: Storage{
			DSN: jsonCfg.Storage.DSN,
		},
		Workers: Workers{
			SyncInterval: time.Duration(jsonCfg.Workers.SyncInterval),
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
