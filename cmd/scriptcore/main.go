// Scriptcore runs point-and-click adventure games authored as Lua verb
// scripts, in a full-screen terminal UI or a plain line-based CLI.
//
// Usage: scriptcore [flags] <game_directory>
//
//	--version            print version and exit
//	--plain              use the line-based CLI
//	--script <file>      play commands from a file (implies --plain)
//	--trace              print runtime events
//	--seed <n>           seed the game RNG
//	--env <file>         read settings from a .env file
//	--log-level <level>  debug, info, warn or error
//	--verbose            also log to stderr (plain mode only)
//	--bot <ticks>        let the tester bot play, then exit (implies --plain)
//	--replay <name>      replay a recorded session, then exit (implies --plain)
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nathoo/scriptcore/cli"
	"github.com/nathoo/scriptcore/config"
	"github.com/nathoo/scriptcore/engine"
	"github.com/nathoo/scriptcore/loader"
	"github.com/nathoo/scriptcore/logging"
	"github.com/nathoo/scriptcore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: scriptcore [--version] [--plain] [--script <file>] [--trace] [--seed <n>] [--env <file>] [--log-level <level>] [--verbose] [--bot <ticks>] [--replay <name>] <game_directory>\n"

type flags struct {
	plain    bool
	trace    bool
	verbose  bool
	gameDir  string
	script   string
	seed     string
	envFile  string
	logLevel string
	bot      string
	replay   string
}

func main() {
	var f flags

	args := os.Args[1:]
	value := func(i *int) string {
		if *i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a value\n", args[*i])
			os.Exit(1)
		}
		*i++
		return args[*i]
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("scriptcore %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			f.plain = true
		case "--trace":
			f.trace = true
		case "--verbose":
			f.verbose = true
		case "--script":
			f.script = value(&i)
		case "--seed":
			f.seed = value(&i)
		case "--env":
			f.envFile = value(&i)
		case "--log-level":
			f.logLevel = value(&i)
		case "--bot":
			f.bot = value(&i)
		case "--replay":
			f.replay = value(&i)
		default:
			if f.gameDir == "" {
				f.gameDir = args[i]
			}
		}
	}

	if f.gameDir == "" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	var envFiles []string
	if f.envFile != "" {
		envFiles = append(envFiles, f.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.seed != "" {
		if cfg.Seed, err = strconv.ParseInt(f.seed, 10, 64); err != nil {
			return errors.Wrap(err, "--seed")
		}
	}

	plain := f.plain || f.script != "" || f.bot != "" || f.replay != "" || !isTerminal()

	// The TUI owns the terminal, so it only ever logs to a file.
	var console io.Writer
	if plain && f.verbose {
		console = os.Stderr
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFile, console)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// Load and compile Lua game content.
	defs, err := loader.Load(f.gameDir, loader.WithLogger(log))
	if err != nil {
		return errors.Wrap(err, "loading game")
	}

	eng, err := engine.New(defs,
		engine.WithLogger(log),
		engine.WithMissTTL(cfg.MissTTL),
		engine.WithSeed(cfg.Seed),
	)
	if err != nil {
		return errors.Wrap(err, "building runtime")
	}
	log.Info("starting",
		zap.String("game", defs.Game.Title),
		zap.Bool("plain", plain),
		zap.Int64("seed", cfg.Seed),
	)

	if !plain {
		return tui.Run(eng, tui.Options{
			SaveDir:   cfg.SaveDir,
			RecordDir: cfg.RecordDir,
			Interval:  cfg.TickInterval(),
		})
	}

	fmt.Printf("%s v%s by %s\n\n", defs.Game.Title, defs.Game.Version, defs.Game.Author)
	c := cli.New(eng)
	c.SaveDir = cfg.SaveDir
	c.RecordDir = cfg.RecordDir
	c.Step = cfg.TickInterval().Seconds()
	if f.trace {
		c.Exec("/trace")
	}

	switch {
	case f.bot != "":
		if err := c.Start(); err != nil {
			return err
		}
		c.Exec("/bot " + f.bot)
		c.Exec("/state")
		return nil
	case f.replay != "":
		if err := c.Start(); err != nil {
			return err
		}
		c.Exec("/replay " + f.replay)
		c.Exec("/state")
		return nil
	}

	// Script mode: read commands from a file and echo them.
	if f.script != "" {
		file, err := os.Open(f.script)
		if err != nil {
			return errors.Wrap(err, "opening script")
		}
		defer file.Close()
		c.In = file
		c.EchoInput = true
	}
	c.Run()
	return nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
