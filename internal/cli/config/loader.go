// Package config loads CLI configuration from file, environment, and
// flags with the precedence: flags > env vars > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels limits how far up the directory tree to search
// for a config file.
const maxUpwardSearchLevels = 10

var configFileUsed string

// configExistsIn checks if a cubist config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range []string{"cubist.yaml", "cubist.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRoot searches upward from the working directory for a cubist
// config file, falling back to the working directory itself.
func findProjectRoot() string {
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}

	dir := cwd
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

// resolvePathRelativeTo resolves a path against baseDir unless it is
// empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load loads configuration. An explicit cfgFile pins both the file and
// the project root; otherwise the root is found by searching upward for
// cubist.yaml.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	projectRoot := findProjectRoot()
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"cubes_dir":   DefaultCubesDir,
		"state_path":  DefaultStateFile,
		"engine_cmd":  "",
		"environment": DefaultEnv,
		"verbose":     false,
		"output":      DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		for _, name := range []string{"cubist.yaml", "cubist.yml"} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	configFileUsed = ""
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
			}
			configFileUsed = cfgFile
		}
	}

	// 3. Environment variables (CUBIST_ prefix)
	// Transform: CUBIST_CUBES_DIR -> cubes_dir
	if err := k.Load(env.Provider("CUBIST_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "CUBIST_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}
			if key == "engine" {
				return "engine_cmd", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	cfg.CubesDir = resolvePathRelativeTo(cfg.CubesDir, projectRoot)
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)

	return &cfg, nil
}

// FileUsed returns the path of the config file loaded, if any.
func FileUsed() string {
	return configFileUsed
}
