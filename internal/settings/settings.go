package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the build configuration loaded from nightly.yaml. Paths are
// resolved relative to the directory containing the configuration file.
type Config struct {
	Repo           string        `yaml:"repo"`
	ReleasePrefix  string        `yaml:"release_prefix"`
	BuildDir       string        `yaml:"build_dir"`
	OutputDir      string        `yaml:"output_dir"`
	DistDir        string        `yaml:"dist_dir"`
	BuildsToKeep   *int          `yaml:"builds_to_keep"`
	DownloadPrefix string        `yaml:"download_prefix"`
	Upload         *UploadConfig `yaml:"upload"`
	Build          []StepConfig  `yaml:"build"`
}

type UploadConfig struct {
	Host           string `yaml:"host"`
	Username       string `yaml:"username"`
	PrivateKeyPath string `yaml:"private_key_path"`
	RemoteDir      string `yaml:"remote_dir"`
}

// StepConfig is one build step as written in the configuration file. Command,
// working dir and description may contain placeholders expanded per run.
type StepConfig struct {
	Command        string `yaml:"command"`
	WorkingDir     string `yaml:"working_dir"`
	Description    string `yaml:"description"`
	TimeoutSeconds int64  `yaml:"timeout_seconds"`
}

func (sc StepConfig) Timeout() time.Duration {
	return time.Duration(sc.TimeoutSeconds) * time.Second
}

// Expand substitutes {name} placeholders in the step's command, working dir
// and description.
func (sc StepConfig) Expand(vars map[string]string) StepConfig {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	sc.Command = r.Replace(sc.Command)
	sc.WorkingDir = r.Replace(sc.WorkingDir)
	sc.Description = r.Replace(sc.Description)
	return sc
}

func ReadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("err reading config file: %w", err)
	}
	cfg := &Config{
		ReleasePrefix: "RELEASE",
		BuildDir:      "_intermediate",
		OutputDir:     "_builds",
		DistDir:       "Dist",
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("err parsing config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	baseDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	cfg.BuildDir = resolvePath(baseDir, cfg.BuildDir)
	cfg.OutputDir = resolvePath(baseDir, cfg.OutputDir)
	if cfg.Upload != nil {
		cfg.Upload.PrivateKeyPath = resolvePath(baseDir, cfg.Upload.PrivateKeyPath)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Build) == 0 {
		return errors.New("config contains no build steps")
	}
	for i, step := range c.Build {
		if strings.TrimSpace(step.Command) == "" {
			return fmt.Errorf("build step %d has an empty command", i+1)
		}
	}
	if c.Upload != nil {
		if c.Upload.Host == "" || c.Upload.Username == "" || c.Upload.PrivateKeyPath == "" {
			return errors.New("upload config requires host, username and private_key_path")
		}
	}
	return nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
