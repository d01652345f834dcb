// Package main provides a CLI tool for wizard alert rules: validation,
// translation to event processor configurations, readback, synchronization
// of event definitions and alert-list transfer.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"alert-wizard/internal/config"
	"alert-wizard/internal/logging"
	"alert-wizard/internal/translator"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		runValidateCmd(os.Args[2:])
	case "translate":
		runTranslateCmd(os.Args[2:])
	case "readback":
		runReadbackCmd(os.Args[2:])
	case "sync":
		runSyncCmd(os.Args[2:])
	case "lists":
		runListsCmd(os.Args[2:])
	case "-version", "--version", "-v":
		fmt.Printf("wizard-rules %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: wizard-rules <command> [flags] [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  validate   Validate wizard rule files or directories\n")
	fmt.Fprintf(os.Stderr, "  translate  Print engine parameters and configurations for rules\n")
	fmt.Fprintf(os.Stderr, "  readback   Print wizard parameters for stored engine configurations\n")
	fmt.Fprintf(os.Stderr, "  sync       Create or update event definitions from rules\n")
	fmt.Fprintf(os.Stderr, "  lists      Export or import alert lists\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	fmt.Fprintf(os.Stderr, "  -version   Show version and exit\n")
}

// env is what every subcommand needs before it runs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func setup(configPath string) *env {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	return &env{cfg: cfg, logger: logger}
}

func (e *env) translator() *translator.Translator {
	return translator.New(e.logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func requirePaths(fs *flag.FlagSet, usage string) []string {
	paths := fs.Args()
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "Error: at least one path is required\n")
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
	return paths
}

func runValidateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file (default $WIZARD_CONFIG_PATH)")
	verbose := fs.Bool("verbose", false, "Show detailed rule information")
	fs.Parse(args)

	paths := requirePaths(fs, "wizard-rules validate [-verbose] <path> [<path>...]")
	e := setup(*configPath)

	os.Exit(runValidate(os.Stdout, paths, e.cfg.Defaults.RuleDefaults(), *verbose))
}

func runTranslateCmd(args []string) {
	fs := flag.NewFlagSet("translate", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file (default $WIZARD_CONFIG_PATH)")
	format := fs.String("format", "json", "Output format: json or yaml")
	fs.Parse(args)

	paths := requirePaths(fs, "wizard-rules translate [-format json|yaml] <path> [<path>...]")
	e := setup(*configPath)

	os.Exit(runTranslate(os.Stdout, paths, e.cfg.Defaults.RuleDefaults(), e.translator(), *format))
}

func runReadbackCmd(args []string) {
	fs := flag.NewFlagSet("readback", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file (default $WIZARD_CONFIG_PATH)")
	format := fs.String("format", "json", "Output format: json or yaml")
	fs.Parse(args)

	paths := requirePaths(fs, "wizard-rules readback [-format json|yaml] <path> [<path>...]")
	e := setup(*configPath)

	os.Exit(runReadback(os.Stdout, paths, e.translator(), *format))
}

func runSyncCmd(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file (default $WIZARD_CONFIG_PATH)")
	fs.Parse(args)

	paths := requirePaths(fs, "wizard-rules sync <path> [<path>...]")
	e := setup(*configPath)

	ctx, cancel := signalContext()
	defer cancel()

	svc, closeAll, err := openDefinitionService(ctx, e)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	code := runSync(ctx, os.Stdout, paths, e.cfg.Defaults.RuleDefaults(), e.translator(), svc)
	closeAll()
	os.Exit(code)
}

func runListsCmd(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: wizard-rules lists <export|import> [flags]\n")
		os.Exit(1)
	}

	fs := flag.NewFlagSet("lists "+args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file (default $WIZARD_CONFIG_PATH)")
	bundle := fs.String("bundle", "", "Bundle name in the configured S3 bucket")
	file := fs.String("file", "", "Local bundle file, used instead of S3")
	creator := fs.String("creator", "", "Creator user ID for imported lists (default from configuration)")
	fs.Parse(args[1:])

	if (*bundle == "") == (*file == "") {
		fmt.Fprintf(os.Stderr, "Error: exactly one of -bundle or -file is required\n")
		os.Exit(1)
	}

	e := setup(*configPath)
	ctx, cancel := signalContext()
	defer cancel()

	lists, closeAll, err := openLists(ctx, e, *bundle != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	target := bundleTarget{name: *bundle, file: *file, store: lists.bundles}

	var code int
	switch args[0] {
	case "export":
		code = runListsExport(ctx, os.Stdout, lists.service, target, fs.Args())
	case "import":
		owner := *creator
		if owner == "" {
			owner = e.cfg.Defaults.CreatorUserID
		}
		code = runListsImport(ctx, os.Stdout, lists.service, target, owner)
	default:
		fmt.Fprintf(os.Stderr, "Unknown lists subcommand: %s\n", args[0])
		code = 1
	}
	closeAll()
	os.Exit(code)
}

func isRuleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func collectRuleFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if isRuleFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// expandPaths resolves directories to the rule files they contain. Paths
// that cannot be read are reported to w and counted as failures.
func expandPaths(w io.Writer, paths []string) ([]string, int) {
	var files []string
	failures := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(w, "Error: %s: %v\n", path, err)
			failures++
			continue
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		found, err := collectRuleFiles(path)
		if err != nil {
			fmt.Fprintf(w, "Error reading directory %s: %v\n", path, err)
			failures++
			continue
		}
		files = append(files, found...)
	}
	return files, failures
}
