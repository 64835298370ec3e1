package configuration

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cy99/floyd/internal/configuration/properties"
	"github.com/cy99/floyd/internal/configuration/util"

	"gopkg.in/yaml.v3"
)

// Load reads <dir>/floyd.yml, expands ${ENV} references strictly, and
// unmarshals the result. An optional <dir>/floyd-<profile>.yml overlays
// the base config when the base names a profile.
func Load(dir string) (*properties.Config, error) {
	cfg := &properties.Config{}
	if err := loadInto(dir, "floyd", cfg); err != nil {
		return nil, err
	}

	if p := cfg.Application.Profile; p != "" {
		if err := loadInto(dir, "floyd-"+p, cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadInto(dir, name string, cfg *properties.Config) error {
	file := filepath.Join(dir, name+".yml")
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	expanded, err := util.ExpandEnvStrict(string(raw))
	if err != nil {
		return fmt.Errorf("expand %s: %w", file, err)
	}

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}

	return nil
}

func applyDefaults(cfg *properties.Config) {
	if cfg.Application.LogLevel == "" {
		cfg.Application.LogLevel = "info"
	}
	if cfg.Transport.Network == "" {
		cfg.Transport.Network = "tcp"
	}
	if cfg.Transport.Timeout == 0 {
		cfg.Transport.Timeout = 2
	}
	if cfg.Raft.ElectTimeoutMs == 0 {
		cfg.Raft.ElectTimeoutMs = 1000
	}
	if cfg.Raft.HeartbeatMs == 0 {
		cfg.Raft.HeartbeatMs = 200
	}
	if cfg.Raft.AppendBatch == 0 {
		cfg.Raft.AppendBatch = 64
	}
	if cfg.Raft.SegmentSize == 0 {
		cfg.Raft.SegmentSize = 16 * 1024 * 1024
	}
	if cfg.Raft.ProposeTimeout == 0 {
		cfg.Raft.ProposeTimeout = 10_000
	}
}

func validate(cfg *properties.Config) error {
	if cfg.Raft.Local.IP == "" || cfg.Raft.Local.Port == 0 {
		return fmt.Errorf("raft.local must name an ip and port")
	}
	if cfg.Raft.DataDir == "" {
		return fmt.Errorf("raft.data-dir must be set")
	}
	for i, p := range cfg.Raft.Peers {
		if p.IP == "" || p.Port == 0 {
			return fmt.Errorf("raft.peers[%d] must name an ip and port", i)
		}
	}
	return nil
}
