// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config assembles a Config from an optional YAML file, the
// process environment (including a .env file), and CLI flags, in that
// increasing order of precedence — the same layering main.go's teacher
// sibling applies to its own flag set, here extended with the file and
// environment layers the single C-to-Rust entry point needs for model
// and cache selection.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/crust-lang/crust/internal/errs"
	"github.com/crust-lang/crust/internal/log"
	"github.com/crust-lang/crust/llm"
)

// CacheConfig selects and configures the translator's response cache
// backend (§6's DbConfig: backend selection and connection parameters).
type CacheConfig struct {
	Backend string `yaml:"backend"` // "memory" (default) or "file"
	Path    string `yaml:"path"`    // file backend: directory to persist entries under
}

// Config is everything a `crust translate` invocation needs beyond the
// source path itself.
type Config struct {
	Model llm.ModelConfig `yaml:"model"`
	Cache CacheConfig     `yaml:"cache"`

	SignatureCandidates int  `yaml:"signature_candidates"`
	MaxConcurrency      int  `yaml:"max_concurrency"`
	Verbose             bool `yaml:"verbose"`

	CompilerPath string `yaml:"compiler_path"`
}

// Default returns a Config with every documented default applied, before
// any file, environment, or flag layer is merged in.
func Default() Config {
	return Config{
		Model: llm.ModelConfig{
			APIType:   llm.ModelTypeClaude,
			MaxTokens: 16 * 1024,
			Timeout:   600 * time.Second,
			Retries:   3,
		},
		Cache:               CacheConfig{Backend: "memory"},
		SignatureCandidates: 3,
		MaxConcurrency:      30,
		CompilerPath:        "cargo",
	}
}

// Load builds a Config by starting from Default, merging in a YAML file
// at path if non-empty, then environment variables (after loading a
// .env file the way original_source's anthropic client does via
// dotenv().ok() — a missing .env is not an error), then returning the
// result for flags to overlay last.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug("not loading .env: %v", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errs.Wrapf(err, "read config file %s", path)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, errs.Wrapf(err, "parse config file %s", path)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays credential and endpoint values from the environment,
// the way original_source reads ANTHROPIC_API_KEY after dotenv().ok().
func applyEnv(cfg *Config) {
	if v := os.Getenv("CRUST_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("CRUST_BASE_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("CRUST_MODEL"); v != "" {
		cfg.Model.ModelName = v
	}
	if v := os.Getenv("CRUST_MODEL_TYPE"); v != "" {
		cfg.Model.APIType = llm.NewModelType(v)
	}
}
