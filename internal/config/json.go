package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors StructuredConfig with JSON tags and
// string-friendly durations for file-based configuration.
type StructuredJSONConfig struct {
	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Remote struct {
		HTTPAddress    string   `json:"http_address"`
		WSAddress      string   `json:"ws_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"remote,omitempty"`

	Sync struct {
		DrainInterval  Duration `json:"drain_interval"`
		BackoffBase    Duration `json:"backoff_base"`
		BackoffRetries uint64   `json:"backoff_retries"`
	} `json:"sync,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		Storage: Storage{
			DB: LocalDB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
		},
		Remote: Remote{
			HTTPAddress:    jsonCfg.Remote.HTTPAddress,
			WSAddress:      jsonCfg.Remote.WSAddress,
			RequestTimeout: time.Duration(jsonCfg.Remote.RequestTimeout),
		},
		Sync: Sync{
			DrainInterval:  time.Duration(jsonCfg.Sync.DrainInterval),
			BackoffBase:    time.Duration(jsonCfg.Sync.BackoffBase),
			BackoffRetries: jsonCfg.Sync.BackoffRetries,
		},
		JSONFilePath: "",
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
