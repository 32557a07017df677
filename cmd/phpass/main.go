// Command phpass hashes and verifies passwords from the command line.
//
//	phpass hash [--cost N] [--legacy] [--stdin] [password]
//	phpass check [--stdin] <hash> [password]
//	phpass status <hash>
//	phpass info <hash>
//
// Configuration is read from PASSWORD_* environment variables, or from the
// file named by --config.
//
// Exit status is 0 on success, 1 when check finds a mismatch or cannot
// verify the hash, 2 on usage errors and 3 when hash or info fails.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/hasbyte1/go-phpass/config"
	"github.com/hasbyte1/go-phpass/hashing"
)

const (
	exitOK       = 0
	exitMismatch = 1
	exitUsage    = 2
	exitFailure  = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type app struct {
	manager *hashing.Manager
	logger  *slog.Logger
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("phpass", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	configPath := fs.String("config", "", "read configuration from this file; environment variables still override it")
	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(stderr, "phpass: %v\n", err)
		return exitUsage
	}
	logger, err := cfg.Logger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "phpass: %v\n", err)
		return exitUsage
	}
	m, err := hashing.NewManager(cfg.Hashing(logger))
	if err != nil {
		logger.Error("failed to create hash manager", errAttr(err))
		return exitUsage
	}

	a := &app{manager: m, logger: logger, stdin: stdin, stdout: stdout, stderr: stderr}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "hash":
		return a.hash(rest)
	case "check":
		return a.check(rest)
	case "status":
		return a.status(rest)
	case "info":
		return a.info(rest)
	default:
		logger.Error("unknown command", slog.String("command", cmd))
		fs.Usage()
		return exitUsage
	}
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: phpass [--config file] <command> [flags] [args]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  hash [--cost N] [--legacy] [--stdin] [password]\n")
	fmt.Fprintf(w, "  check [--stdin] <hash> [password]\n")
	fmt.Fprintf(w, "  status <hash>\n")
	fmt.Fprintf(w, "  info <hash>\n\n")
	fmt.Fprintf(w, "Flags:\n")
	fs.PrintDefaults()
	if desc, err := config.Describe(); err == nil {
		fmt.Fprintf(w, "\n%s\n", desc)
	}
}

func (a *app) hash(args []string) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	cost := fs.IntP("cost", "c", 0, "bcrypt work factor, or log2 iteration count with --legacy (0 uses the configured value)")
	legacy := fs.Bool("legacy", false, "produce a legacy $S$ hash instead of bcrypt")
	stdin := fs.Bool("stdin", false, "read password from stdin")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	password, ok := a.password(fs, "hash", 0, *stdin)
	if !ok {
		return exitUsage
	}

	var (
		hash string
		err  error
	)
	switch {
	case *legacy && *cost != 0:
		hash, err = hashing.NewStretchedHasher(hashing.StretchOptions{CostLog2: *cost}).Make(password)
	case *legacy:
		hash, err = a.manager.Stretched().Make(password)
	default:
		hash, err = a.manager.Bcrypt().MakeWithCost(password, *cost)
	}
	if err != nil {
		a.logger.Error("failed to hash password", errAttr(err))
		return exitFailure
	}
	fmt.Fprintln(a.stdout, hash)
	return exitOK
}

func (a *app) check(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	stdin := fs.Bool("stdin", false, "read password from stdin")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(a.stderr, "Usage: phpass check [--stdin] <hash> [password]")
		return exitUsage
	}
	stored := fs.Arg(0)
	password, ok := a.password(fs, "check", 1, *stdin)
	if !ok {
		return exitUsage
	}

	match, err := a.manager.Verify(password, stored)
	if err != nil {
		a.logger.Error("cannot verify hash",
			slog.String("format", a.manager.Format(stored).String()), errAttr(err))
		return exitMismatch
	}
	if !match {
		fmt.Fprintln(a.stdout, "mismatch")
		return exitMismatch
	}
	fmt.Fprintln(a.stdout, "ok")
	if a.manager.NeedsRehash(stored) {
		a.logger.Info("hash should be regenerated",
			slog.String("status", a.manager.Classify(stored).String()))
	}
	return exitOK
}

func (a *app) status(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(a.stderr, "Usage: phpass status <hash>")
		return exitUsage
	}
	stored := args[0]
	fmt.Fprintf(a.stdout, "format: %s\n", a.manager.Format(stored))
	fmt.Fprintf(a.stdout, "status: %s\n", a.manager.Classify(stored))
	fmt.Fprintf(a.stdout, "needs_rehash: %t\n", a.manager.NeedsRehash(stored))
	return exitOK
}

func (a *app) info(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(a.stderr, "Usage: phpass info <hash>")
		return exitUsage
	}
	info, err := a.manager.Info(args[0])
	if err != nil {
		a.logger.Error("cannot parse hash", errAttr(err))
		return exitFailure
	}

	out := struct {
		Format string         `json:"format"`
		Params map[string]any `json:"params"`
	}{info.Format.String(), info.Params}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		a.logger.Error("failed to encode info", errAttr(err))
		return exitFailure
	}
	return exitOK
}

// password returns the password from stdin or from positional argument idx.
func (a *app) password(fs *flag.FlagSet, cmd string, idx int, fromStdin bool) (string, bool) {
	if fromStdin {
		b, err := io.ReadAll(a.stdin)
		if err != nil {
			a.logger.Error("failed to read password from stdin", errAttr(err))
			return "", false
		}
		return strings.TrimRight(string(b), "\r\n"), true
	}
	if fs.NArg() != idx+1 {
		fmt.Fprintf(a.stderr, "Usage: phpass %s [flags] ", cmd)
		if idx > 0 {
			fmt.Fprint(a.stderr, "<hash> ")
		}
		fmt.Fprintln(a.stderr, "password")
		fs.PrintDefaults()
		return "", false
	}
	return fs.Arg(idx), true
}

func errAttr(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}
