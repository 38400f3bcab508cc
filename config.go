package pakbus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// FileConfig is the on-disk (JSON or YAML) shape of --config, letting a
// deployment pin node addressing and timeouts once instead of repeating
// flags across invocations.
type FileConfig struct {
	Link         string `json:"link" yaml:"link"`
	DestNode     uint16 `json:"dest_node" yaml:"dest_node"`
	SrcNode      uint16 `json:"src_node" yaml:"src_node"`
	SecurityCode uint16 `json:"security_code" yaml:"security_code"`
	TimeoutSec   int    `json:"timeout_sec" yaml:"timeout_sec"`
	Swath        uint16 `json:"swath" yaml:"swath"`
	MetricsAddr  string `json:"metrics_addr" yaml:"metrics_addr"`
}

func getUnmarshaler(file string) (func([]byte, interface{}) error, error) {
	var unmarshaler func([]byte, interface{}) error
	switch ext := filepath.Ext(file); ext {
	case ".json":
		unmarshaler = json.Unmarshal
	case ".yaml", ".yml":
		unmarshaler = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("pakbus: config file type %q not recognized", ext)
	}
	return unmarshaler, nil
}

// LoadConfig reads and unmarshals file as FileConfig, picking JSON or YAML
// by extension.
func LoadConfig(file string) (FileConfig, error) {
	var cfg FileConfig
	unmarshaler, err := getUnmarshaler(file)
	if err != nil {
		return cfg, err
	}
	contents, err := os.ReadFile(file)
	if err != nil {
		return cfg, err
	}
	if err := unmarshaler(contents, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
