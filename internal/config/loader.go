package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// ConfigFileName is the project marker file.
const ConfigFileName = "agents.yml"

// FindProjectDir walks up from dir looking for agents.yml. Returns an
// empty string when no project directory is found.
func FindProjectDir(dir string) string {
	current, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		if info, err := os.Stat(filepath.Join(current, ConfigFileName)); err == nil && !info.IsDir() {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// Load reads and validates the project configuration. When projectDir
// is empty, the project is discovered by walking up from the working
// directory.
func Load(projectDir string) (*ProjectConfig, error) {
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		projectDir = FindProjectDir(cwd)
		if projectDir == "" {
			return nil, fmt.Errorf("no %s found in current directory or any parent directory", ConfigFileName)
		}
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(projectDir, ConfigFileName))
	v.SetConfigType("yaml")
	v.SetEnvPrefix("EZ")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}

	cfg := &ProjectConfig{}
	// Tool and skill lists may be written either as YAML lists or as
	// comma-separated strings.
	decodeHook := viper.DecodeHook(mapstructure.StringToSliceHookFunc(","))
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFileName, err)
	}

	if len(cfg.Agents) == 0 {
		return nil, fmt.Errorf("%s must define at least one agent under the 'agents' key", ConfigFileName)
	}

	cfg.ProjectDir = projectDir
	trimLists(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// trimLists strips whitespace left over from comma-separated notation.
func trimLists(cfg *ProjectConfig) {
	for name, agent := range cfg.Agents {
		agent.Tools = trimAll(agent.Tools)
		agent.Skills = trimAll(agent.Skills)
		cfg.Agents[name] = agent
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
