package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	json "github.com/goccy/go-json"

	loadgate "github.com/reoring/loadgate"
	"github.com/reoring/loadgate/i18n"
	"github.com/reoring/loadgate/logger"
)

var version = "dev"

// CLI definition & global flags. Every flag can also be set through its
// LOADGATE_* environment variable.
type CLI struct {
	LogLevel string           `name:"log-level" help:"Log level (debug, info, warn, error)" default:"warn" enum:"debug,info,warn,error" env:"LOADGATE_LOG_LEVEL"`
	LogJSON  bool             `name:"log-json" help:"Emit logs as JSON" env:"LOADGATE_LOG_JSON"`
	Lang     string           `help:"Language for remediation hints (en, ja)" default:"en" enum:"en,ja" env:"LOADGATE_LANG"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Check CheckCmd `cmd:"" help:"Normalize load output files and report their outcome"`
}

// Global carries process streams shared by subcommands.
type Global struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger logger.Logger
}

// AfterApply runs after flag parsing; set up logging and hints once.
func (c *CLI) AfterApply(g *Global) error {
	g.Logger = logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(c.LogLevel),
		Output:     g.Stderr,
		JSON:       c.LogJSON,
		TimeFormat: "15:04:05",
	})
	i18n.SetLanguage(c.Lang)
	return nil
}

// CheckCmd normalizes each file and prints one JSON report per line.
type CheckCmd struct {
	Files         []string `arg:"" name:"file" help:"Load output files; '-' reads stdin"`
	Format        string   `help:"Input format (auto, json, yaml); auto uses the file extension" default:"auto" enum:"auto,json,yaml" env:"LOADGATE_FORMAT"`
	DuplicateKeys string   `name:"duplicate-keys" help:"Duplicate key policy (ignore, warn, error)" default:"error" enum:"ignore,warn,error" env:"LOADGATE_DUPLICATE_KEYS"`
	MaxDepth      int      `name:"max-depth" help:"Maximum nesting depth (0 disables)" default:"0" env:"LOADGATE_MAX_DEPTH"`
	MaxBytes      int64    `name:"max-bytes" help:"Maximum input size in bytes (0 disables)" default:"0" env:"LOADGATE_MAX_BYTES"`
}

// errViolations signals that at least one file broke the contract.
var errViolations = errors.New("contract violations found")

type report struct {
	File         string          `json:"file"`
	Kind         string          `json:"kind"`
	Status       int             `json:"status,omitempty"`
	Error        string          `json:"error,omitempty"`
	Redirect     string          `json:"redirect,omitempty"`
	Dependencies []string        `json:"dependencies,omitempty"`
	Issues       loadgate.Issues `json:"issues,omitempty"`
}

func (c *CheckCmd) Run(ctx context.Context, g *Global) error {
	dup, _ := loadgate.ParseSeverity(c.DuplicateKeys)
	opt := loadgate.DecodeOpt{OnDuplicateKey: dup, MaxDepth: c.MaxDepth, MaxBytes: c.MaxBytes}
	ctx = logger.ContextWithLogger(ctx, g.Logger)
	enc := json.NewEncoder(g.Stdout)

	failed := false
	for _, f := range c.Files {
		rep := c.check(ctx, g, f, opt)
		if rep.Kind == "violation" {
			failed = true
			g.Logger.Error("contract violation", "file", f, "error", rep.Issues)
		}
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	if failed {
		return errViolations
	}
	return nil
}

func (c *CheckCmd) check(ctx context.Context, g *Global, file string, opt loadgate.DecodeOpt) report {
	out, err := c.decode(ctx, g, file, opt)
	if err != nil {
		return violation(file, err)
	}
	oc, err := loadgate.Normalize(ctx, out)
	if err != nil {
		return violation(file, err)
	}
	rep := report{File: file, Kind: oc.Kind().String()}
	switch oc := oc.(type) {
	case loadgate.Failure:
		rep.Status = oc.Status
		rep.Error = oc.Err.Error()
	case loadgate.Success:
		rep.Status, _ = oc.Status()
		rep.Redirect, _ = oc.Redirect()
		rep.Dependencies = oc.Dependencies()
	}
	return rep
}

func (c *CheckCmd) decode(ctx context.Context, g *Global, file string, opt loadgate.DecodeOpt) (loadgate.Output, error) {
	format := c.Format
	if format == "auto" {
		switch strings.ToLower(filepath.Ext(file)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}
	var data []byte
	var err error
	if file == "-" {
		if format == "json" {
			return loadgate.FromJSONReader(ctx, g.Stdin, opt)
		}
		data, err = io.ReadAll(g.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	if format == "yaml" {
		return loadgate.FromYAML(ctx, data, opt)
	}
	return loadgate.FromJSON(ctx, data, opt)
}

func violation(file string, err error) report {
	rep := report{File: file, Kind: "violation"}
	if iss, ok := loadgate.AsIssues(err); ok {
		rep.Issues = iss
	} else if is, ok := loadgate.AsIssue(err); ok {
		rep.Issues = loadgate.Issues{is}
	} else {
		rep.Issues = loadgate.Issues{{Path: "/", Code: loadgate.CodeParseError, Message: err.Error(), Cause: err}}
	}
	return rep
}

// run parses args and executes the selected command, returning the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var cli CLI
	exit := -1
	g := &Global{Stdin: stdin, Stdout: stdout, Stderr: stderr, Logger: logger.GetDefault()}
	parser, err := kong.New(&cli,
		kong.Name("loadgate"),
		kong.Description("Validate load step outputs before they reach rendering."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exit = code }),
		kong.Vars{"version": version},
		kong.Bind(g),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	kctx, err := parser.Parse(args)
	if exit >= 0 {
		return exit
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if err := kctx.Run(); err != nil {
		if !errors.Is(err, errViolations) {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}
	return 0
}
