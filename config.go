package rscript

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ManagerConfig is the declarative description of where a
// ScriptManager should look for scripts, so a host can configure its
// script directories instead of hard-coding them.
type ManagerConfig struct {
	// HostVersion is the semver the host presents to every script's
	// VersionRequirement during discovery.
	HostVersion string `mapstructure:"host_version" yaml:"host_version"`
	// Directories are scanned for executable-transport scripts.
	Directories []string `mapstructure:"directories" yaml:"directories"`
	// DynamicLibDirectories are scanned for shared-library scripts.
	// Scanning dynamic libraries is unsafe in the same sense
	// AddDynamicScriptsByPath is: arbitrary code on disk is loaded
	// into the host process.
	DynamicLibDirectories []string `mapstructure:"dynamic_lib_directories" yaml:"dynamic_lib_directories"`
}

// LoadManagerConfig reads a ManagerConfig from path (any format viper
// supports by extension: yaml, json, toml, ...).
func LoadManagerConfig(path string) (ManagerConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return ManagerConfig{}, fmt.Errorf("rscript: reading config %s: %w", path, err)
	}

	var cfg ManagerConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ManagerConfig{}, fmt.Errorf("rscript: building config decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return ManagerConfig{}, fmt.Errorf("rscript: decoding config %s: %w", path, err)
	}

	return cfg, nil
}

// WriteManagerConfig marshals cfg as YAML and writes it to path,
// the inverse of LoadManagerConfig for a fixed YAML file, useful for a
// host that wants to persist a config it built or edited in memory
// without round-tripping it through viper.
func WriteManagerConfig(path string, cfg ManagerConfig) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("rscript: marshaling config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("rscript: writing config %s: %w", path, err)
	}
	return nil
}

// NewManagerFromConfig builds and populates a ScriptManager per cfg,
// running both discovery protocols over every configured directory.
// A failure discovering any one directory aborts the call; scripts
// discovered from directories processed earlier remain registered in
// the partially populated manager returned alongside the error, the
// same fatal-to-the-call semantics AddScriptsByPath documents.
func NewManagerFromConfig(cfg ManagerConfig) (*ScriptManager, error) {
	hostVersion, err := ParseVersion(cfg.HostVersion)
	if err != nil {
		return nil, err
	}

	m := NewScriptManager()

	for _, dir := range cfg.Directories {
		if err := m.AddScriptsByPath(dir, hostVersion); err != nil {
			return m, err
		}
	}

	for _, dir := range cfg.DynamicLibDirectories {
		if err := m.AddDynamicScriptsByPath(dir, hostVersion); err != nil {
			return m, err
		}
	}

	return m, nil
}
