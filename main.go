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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crust-lang/crust/internal/cache"
	"github.com/crust-lang/crust/internal/config"
	"github.com/crust-lang/crust/internal/cparse"
	"github.com/crust-lang/crust/internal/errs"
	"github.com/crust-lang/crust/internal/log"
	"github.com/crust-lang/crust/internal/rustcheck"
	"github.com/crust-lang/crust/internal/translator"
	"github.com/crust-lang/crust/llm"
)

const usage = `crust translate - translate a C source file into Rust

Usage:
  crust translate <source.c> [flags]

Flags:
`

func main() {
	flags := flag.NewFlagSet("crust", flag.ExitOnError)

	flagHelp := flags.Bool("h", false, "Show this help message.")
	flagVerbose := flags.Bool("verbose", false, "Verbose (debug-level) logging.")
	flagOutput := flags.String("o", "", "Output path for the translated Rust source (default: stdout).")
	flagConfigFile := flags.String("config", "", "Optional YAML config file (see internal/config.Config).")

	flagModelType := flags.String("model-type", "", "Model backend: claude, openai, ark, ollama, dashscope, deepseek.")
	flagModelName := flags.String("model", "", "Model name/endpoint, e.g. claude-opus-4-20250514.")
	flagBaseURL := flags.String("base-url", "", "Override the model backend's base URL.")
	flagAPIKey := flags.String("api-key", "", "API key (falls back to CRUST_API_KEY).")

	flagCacheBackend := flags.String("cache", "", "Cache backend: memory (default) or file.")
	flagCacheDir := flags.String("cache-dir", "", "Directory for the file cache backend.")

	flagCandidates := flags.Int("candidates", 0, "Signature candidates requested per function (default 3).")
	flagConcurrency := flags.Int("concurrency", 0, "Max in-flight candidate translations per function (default 30).")
	flagCompiler := flags.String("compiler", "", "cargo/rustc binary used for type-checking (default \"cargo\").")
	flagWorkDir := flags.String("workdir", "", "Scratch crate directory for type-checking (default: a temp dir).")

	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 || os.Args[1] != "translate" {
		flags.Usage()
		os.Exit(1)
	}
	if err := flags.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}
	if *flagHelp {
		flags.Usage()
		return
	}

	args := flags.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "error: exactly one source path is required")
		flags.Usage()
		os.Exit(1)
	}
	srcPath := args[0]

	cfg, err := config.Load(*flagConfigFile)
	if err != nil {
		log.Error("load config: %v", err)
		os.Exit(1)
	}
	applyFlags(&cfg, flagSet{
		modelType:   flagModelType,
		modelName:   flagModelName,
		baseURL:     flagBaseURL,
		apiKey:      flagAPIKey,
		cacheKind:   flagCacheBackend,
		cacheDir:    flagCacheDir,
		candidates:  flagCandidates,
		concurrency: flagConcurrency,
		compiler:    flagCompiler,
		verbose:     flagVerbose,
	})

	if cfg.Verbose {
		log.SetLevel("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, srcPath, *flagOutput, *flagWorkDir, cfg); err != nil {
		log.Error("translate %s: %v", srcPath, err)
		os.Exit(1)
	}
}

type flagSet struct {
	modelType   *string
	modelName   *string
	baseURL     *string
	apiKey      *string
	cacheKind   *string
	cacheDir    *string
	candidates  *int
	concurrency *int
	compiler    *string
	verbose     *bool
}

// applyFlags overlays explicitly-set CLI flags onto cfg, which itself was
// already assembled from Default() + YAML file + environment — flags sit
// last and win, per internal/config's documented precedence.
func applyFlags(cfg *config.Config, f flagSet) {
	if *f.modelType != "" {
		cfg.Model.APIType = llm.NewModelType(*f.modelType)
	}
	if *f.modelName != "" {
		cfg.Model.ModelName = *f.modelName
	}
	if *f.baseURL != "" {
		cfg.Model.BaseURL = *f.baseURL
	}
	if *f.apiKey != "" {
		cfg.Model.APIKey = *f.apiKey
	}
	if *f.cacheKind != "" {
		cfg.Cache.Backend = *f.cacheKind
	}
	if *f.cacheDir != "" {
		cfg.Cache.Path = *f.cacheDir
	}
	if *f.candidates > 0 {
		cfg.SignatureCandidates = *f.candidates
	}
	if *f.concurrency > 0 {
		cfg.MaxConcurrency = *f.concurrency
	}
	if *f.compiler != "" {
		cfg.CompilerPath = *f.compiler
	}
	if *f.verbose {
		cfg.Verbose = true
	}
}

// run wires the four consumed collaborators (§6) into a Translator and
// emits the whole translated program, the only thing this CLI does:
// parse, translate in dependency order, repair against the compiler,
// assemble, write.
func run(ctx context.Context, srcPath, outputPath, workDir string, cfg config.Config) error {
	source, err := os.ReadFile(srcPath)
	if err != nil {
		return errs.Wrapf(err, "read source %s", srcPath)
	}

	backend, err := buildCacheBackend(cfg.Cache)
	if err != nil {
		return err
	}

	model := llm.NewChatModel(cfg.Model)
	client := llm.NewClient(model, cache.New(backend))

	if workDir == "" {
		workDir, err = os.MkdirTemp("", "crust-check-*")
		if err != nil {
			return errs.Wrap(err, "create scratch crate directory")
		}
		defer os.RemoveAll(workDir)
	}
	checker := rustcheck.NewChecker(workDir)
	checker.CompilerPath = cfg.CompilerPath

	parser := cparse.NewTreeSitterParser()

	t, err := translator.New(parser, client, checker, source, translator.Options{
		SignatureCandidates: cfg.SignatureCandidates,
		MaxConcurrency:      cfg.MaxConcurrency,
		Verbose:             cfg.Verbose,
	})
	if err != nil {
		return errs.Wrap(err, "build translation plan")
	}

	start := time.Now()
	log.Info("translating variables in %s", srcPath)
	if err := t.TranslateVariables(ctx); err != nil {
		return errs.Wrap(err, "translate variables")
	}

	log.Info("translating functions in %s", srcPath)
	if err := t.TranslateFunctions(ctx); err != nil {
		return errs.Wrap(err, "translate functions")
	}

	out := t.WholeCode()
	log.Info("translated %s in %s (%d request tokens, %d response tokens)",
		srcPath, time.Since(start), client.RequestTokens(), client.ResponseTokens())

	if outputPath == "" {
		fmt.Fprintln(os.Stdout, out)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(out+"\n"), 0o644); err != nil {
		return errs.Wrapf(err, "write output %s", outputPath)
	}
	return nil
}

func buildCacheBackend(cfg config.CacheConfig) (cache.Backend, error) {
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemoryBackend(), nil
	case "file":
		dir := cfg.Path
		if dir == "" {
			dir = ".crust-cache"
		}
		return cache.NewFileBackend(dir)
	default:
		return nil, errs.Errorf("unknown cache backend %q (want \"memory\" or \"file\")", cfg.Backend)
	}
}
