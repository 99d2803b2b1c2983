package main

import (
	"fmt"
	"os"
	"strings"

	"ftputil/config"
	"ftputil/logger"
	"ftputil/terminal"
	"ftputil/transfer"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	flags := pflag.NewFlagSet("ftputil", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to a YAML config file")
	logLevel := flags.String("log-level", "", "log level (debug, info, warn, error)")
	metrics := flags.String("metrics", "", "append transfer records to this CSV file")
	themePath := flags.String("theme-file", "", "theme file (default ~/"+terminal.DefaultThemeFile+")")
	debug := flags.Bool("debug-ftp", false, "print the FTP control channel")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ftputil [flags] [COMMAND args...]\n\n")
		fmt.Fprintf(os.Stderr, "Without a command an interactive shell starts. A command runs once\n")
		fmt.Fprintf(os.Stderr, "against the configured ftp.host and the connection is closed.\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(argv); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = strings.ToLower(*logLevel)
	}
	if *metrics != "" {
		cfg.MetricsFile = *metrics
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: init logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	theme, err := terminal.NewThemeManager(*themePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	opts := []transfer.Option{
		transfer.WithRetryPolicy(cfg.RetryPolicy()),
		transfer.WithProgress(terminal.ProgressPrinter(os.Stdout)),
	}
	if *debug {
		opts = append(opts, transfer.WithDebugOutput(os.Stderr))
	}
	conn := transfer.NewConn(opts...)

	sh := newShell(cfg, conn, theme, os.Stdout)
	sh.readPassword = readPassword

	if flags.NArg() > 0 {
		return runOnce(sh, flags.Args())
	}

	err = transfer.WithConn(conn, func(*transfer.Conn) error {
		if cfg.FTP.Host != "" {
			if err := sh.host([]string{cfg.FTP.Host}); err != nil {
				sh.theme.Error().Fprintf(os.Stdout, "Error: %v\n", err)
			}
		}
		interactive(sh)
		return nil
	})
	if err != nil {
		logger.Error("close session", zap.Error(err))
		return 1
	}
	return 0
}

// runOnce connects to the configured host and executes a single command
// inside the resource guard.
func runOnce(sh *shell, args []string) int {
	if sh.cfg.FTP.Host == "" {
		fmt.Fprintln(os.Stderr, "Error: ftp.host is not configured")
		return 1
	}

	cmd := command{name: args[0], args: args[1:]}
	err := transfer.WithConn(sh.conn, func(*transfer.Conn) error {
		if err := sh.host([]string{sh.cfg.FTP.Host}); err != nil {
			return err
		}
		return sh.execute(cmd)
	})
	if err != nil {
		sh.theme.Error().Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func interactive(sh *shell) {
	sh.theme.Prompt().Println("Welcome to ftputil")
	sh.theme.Text().Println("Type 'HELP' for available commands, 'exit' to leave")
	fmt.Println()

	p := prompt.New(
		sh.executor,
		sh.completer.Completer,
		prompt.OptionTitle("ftputil"),
		prompt.OptionLivePrefix(func() (string, bool) {
			if !sh.conn.Connected() {
				return "ftp> ", true
			}
			return "[" + sh.conn.Addr() + "]> ", true
		}),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
		prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionCompletionWordSeparator(" "),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && strings.TrimSpace(in) == "exit"
		}),
	)
	p.Run()
}

func readPassword(label string) (string, error) {
	fmt.Print(label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
