package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ftputil/config"
	"ftputil/logger"
	"ftputil/perfmetrics"
	"ftputil/terminal"
	"ftputil/transfer"

	"go.uber.org/zap"
)

var errUsage = errors.New("usage")

// command is a parsed shell line.
type command struct {
	name string
	args []string
}

// shell executes commands against one FTP session.
type shell struct {
	cfg          *config.Config
	conn         *transfer.Conn
	out          io.Writer
	theme        *terminal.ThemeManager
	table        *terminal.TableFormatter
	completer    *terminal.CommandCompleter
	readPassword func(prompt string) (string, error)
	log          *zap.Logger
}

func newShell(cfg *config.Config, conn *transfer.Conn, theme *terminal.ThemeManager, out io.Writer) *shell {
	sh := &shell{
		cfg:   cfg,
		conn:  conn,
		out:   out,
		theme: theme,
		table: terminal.NewTableFormatter(out),
		log:   logger.WithModule("shell"),
	}
	sh.completer = terminal.NewCommandCompleter(conn)
	return sh
}

type handler struct {
	usage string
	run   func(args []string) error
}

func (sh *shell) handlers() map[string]handler {
	return map[string]handler{
		"HOST":  {"HOST <server> [port] [user]", sh.host},
		"QUIT":  {"QUIT", sh.quit},
		"LIST":  {"LIST [dir]", sh.list},
		"CWD":   {"CWD <dir>", sh.cwd},
		"PWD":   {"PWD", sh.pwd},
		"MKD":   {"MKD <path>", sh.mkd},
		"STOR":  {"STOR <localFile> [remoteDir] [-o]", sh.stor},
		"RETR":  {"RETR <remoteFile> [localPath]", sh.retr},
		"MGET":  {"MGET <remoteDir> [localDir] [pattern]", sh.mget},
		"MOVE":  {"MOVE <name> <srcDir> <dstDir> [-o]", sh.move},
		"DIR":   {"dir [path]", sh.dir},
		"THEME": {"theme [" + strings.Join(terminal.ThemeNames(), "|") + "]", sh.setTheme},
		"CLEAR": {"clear", sh.clear},
		"HELP":  {"HELP", sh.help},
	}
}

func parseCommand(input string) command {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return command{}
	}

	cmd := command{name: parts[0], args: parts[1:]}

	// Handle quoted arguments
	for i := 0; i < len(cmd.args); i++ {
		if !strings.HasPrefix(cmd.args[i], "\"") {
			continue
		}
		if strings.HasSuffix(cmd.args[i], "\"") && len(cmd.args[i]) > 1 {
			cmd.args[i] = strings.Trim(cmd.args[i], "\"")
			continue
		}
		for j := i + 1; j < len(cmd.args); j++ {
			if strings.HasSuffix(cmd.args[j], "\"") {
				joined := strings.Join(cmd.args[i:j+1], " ")
				cmd.args[i] = strings.Trim(joined, "\"")
				cmd.args = append(cmd.args[:i+1], cmd.args[j+1:]...)
				break
			}
		}
	}

	return cmd
}

// execute runs one parsed command and returns its error.
func (sh *shell) execute(cmd command) error {
	if cmd.name == "" {
		return nil
	}
	h, ok := sh.handlers()[strings.ToUpper(cmd.name)]
	if !ok {
		return fmt.Errorf("unknown command %q, type HELP", cmd.name)
	}

	err := h.run(cmd.args)
	if errors.Is(err, errUsage) {
		return fmt.Errorf("usage: %s", h.usage)
	}
	return err
}

// executor is the go-prompt callback.
func (sh *shell) executor(input string) {
	input = strings.TrimSpace(input)
	if input == "" || input == "exit" {
		return
	}

	if err := sh.execute(parseCommand(input)); err != nil {
		sh.log.Debug("command failed", zap.String("input", input), zap.Error(err))
		sh.theme.Error().Fprintf(sh.out, "Error: %v\n", err)
	}
}

func (sh *shell) host(args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	port := sh.cfg.FTP.Port
	if len(args) > 1 {
		p, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid port %q", args[1])
		}
		port = p
	}

	user, password := sh.cfg.FTP.Username, sh.cfg.FTP.Password
	if len(args) > 2 && args[2] != user {
		user, password = args[2], ""
	}
	if user != "" && password == "" && sh.readPassword != nil {
		p, err := sh.readPassword(fmt.Sprintf("Password for %s: ", user))
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = p
	}

	if err := sh.conn.Connect(args[0], port, user, password, sh.cfg.FTP.Timeout); err != nil {
		return err
	}
	sh.completer.Invalidate()
	sh.theme.Success().Fprintf(sh.out, "Connected to %s\n", sh.conn.Addr())
	return nil
}

func (sh *shell) quit([]string) error {
	if !sh.conn.Connected() {
		return transfer.ErrNotConnected
	}
	addr := sh.conn.Addr()
	if err := sh.conn.Close(); err != nil {
		return err
	}
	sh.completer.Invalidate()
	sh.theme.Info().Fprintf(sh.out, "Disconnected from %s\n", addr)
	return nil
}

func (sh *shell) list(args []string) error {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}
	names, err := sh.conn.ListFiles(dir)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = "."
	}
	return sh.table.FormatRemoteNames(dir, names)
}

func (sh *shell) cwd(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := sh.conn.ChangeDir(args[0]); err != nil {
		return err
	}
	sh.completer.Invalidate()
	return sh.pwd(nil)
}

func (sh *shell) pwd([]string) error {
	dir, err := sh.conn.CurrentDir()
	if err != nil {
		return err
	}
	sh.theme.Text().Fprintf(sh.out, "%s\n", dir)
	return nil
}

// mkd creates a directory tree below the current remote directory.
func (sh *shell) mkd(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	base, err := sh.conn.CurrentDir()
	if err != nil {
		return err
	}
	if err := sh.conn.MakeDirs(args[0], base); err != nil {
		return err
	}
	sh.completer.Invalidate()
	sh.theme.Success().Fprintf(sh.out, "Created %s\n", path.Join(base, args[0]))
	return nil
}

func (sh *shell) stor(args []string) error {
	args, overwrite := popFlag(args, "-o")
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}

	remoteDir := ""
	if len(args) == 2 {
		remoteDir = args[1]
	} else {
		dir, err := sh.conn.CurrentDir()
		if err != nil {
			return err
		}
		remoteDir = dir
	}

	local := args[0]
	var size int64
	if info, err := os.Stat(local); err == nil {
		size = info.Size()
	}

	start := time.Now()
	name, err := sh.conn.Upload(filepath.Dir(local), filepath.Base(local), remoteDir, overwrite)
	sh.journal("STOR", local, size, start, err)
	if err != nil {
		return err
	}

	sh.completer.Invalidate()
	sh.theme.Success().Fprintf(sh.out, "Stored %s as %s\n", local, path.Join(remoteDir, name))
	return nil
}

func (sh *shell) retr(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	remote := args[0]
	local := path.Base(remote)
	if len(args) == 2 {
		local = args[1]
	}

	start := time.Now()
	err := sh.conn.DownloadFile(local, remote, nil)
	var size int64
	if info, statErr := os.Stat(local); statErr == nil {
		size = info.Size()
	}
	sh.journal("RETR", remote, size, start, err)
	if err != nil {
		return err
	}

	sh.theme.Success().Fprintf(sh.out, "Downloaded %s to %s (%d bytes)\n", remote, local, size)
	return nil
}

// mget downloads every entry of a remote directory, optionally only names
// matching a shell pattern.
func (sh *shell) mget(args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return errUsage
	}
	remoteDir := args[0]
	localDir := path.Base(remoteDir)
	if len(args) > 1 {
		localDir = args[1]
	}

	pattern := ""
	if len(args) > 2 {
		pattern = args[2]
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}

	// The filter runs again on every attempt, so selected is a set.
	selected := make(map[string]struct{})
	filter := transfer.WithNameFilter(func(name string) bool {
		if pattern != "" {
			if ok, _ := path.Match(pattern, name); !ok {
				return false
			}
		}
		selected[name] = struct{}{}
		return true
	})

	start := time.Now()
	err := sh.conn.DownloadDirectory(localDir, remoteDir, filter)
	var total int64
	for name := range selected {
		if info, statErr := os.Stat(filepath.Join(localDir, name)); statErr == nil {
			total += info.Size()
		}
	}
	sh.journal("MGET", remoteDir, total, start, err)
	if err != nil {
		return err
	}

	sh.completer.Invalidate()
	sh.theme.Success().Fprintf(sh.out, "Downloaded %d file(s) from %s to %s\n", len(selected), remoteDir, localDir)
	return nil
}

func (sh *shell) move(args []string) error {
	args, overwrite := popFlag(args, "-o")
	if len(args) != 3 {
		return errUsage
	}

	start := time.Now()
	name, err := sh.conn.MoveFile(args[1], args[2], args[0], overwrite)
	sh.journal("MOVE", args[0], 0, start, err)
	if err != nil {
		return err
	}

	sh.completer.Invalidate()
	sh.theme.Success().Fprintf(sh.out, "Moved %s to %s\n", path.Join(args[1], args[0]), path.Join(args[2], name))
	return nil
}

func (sh *shell) dir(args []string) error {
	p := "."
	if len(args) > 0 {
		p = args[0]
	}
	return sh.table.FormatLocalDirectory(p)
}

func (sh *shell) setTheme(args []string) error {
	if len(args) == 0 {
		sh.theme.Info().Fprintf(sh.out, "Current theme: %s (available: %s)\n",
			sh.theme.Name(), strings.Join(terminal.ThemeNames(), ", "))
		return nil
	}
	if err := sh.theme.SetTheme(args[0]); err != nil {
		return err
	}
	sh.theme.Success().Fprintf(sh.out, "Theme set to %s\n", args[0])
	return nil
}

func (sh *shell) clear([]string) error {
	_, err := fmt.Fprint(sh.out, "\033[H\033[2J")
	return err
}

func (sh *shell) help([]string) error {
	sh.theme.Text().Fprintln(sh.out, "\nCommands:")
	for _, s := range sh.completer.Commands() {
		usage := s.Text
		if h, ok := sh.handlers()[strings.ToUpper(s.Text)]; ok {
			usage = h.usage
		}
		sh.theme.Text().Fprintf(sh.out, "  %-42s %s\n", usage, s.Description)
	}
	return nil
}

// journal appends a transfer record when a metrics file is configured.
func (sh *shell) journal(op, name string, size int64, start time.Time, err error) {
	if sh.cfg.MetricsFile == "" {
		return
	}
	rec := perfmetrics.Record{
		Timestamp: start,
		Operation: op,
		Name:      name,
		Bytes:     size,
		Duration:  time.Since(start),
		Attempts:  sh.conn.Attempts(),
		Err:       err,
	}
	if logErr := perfmetrics.LogTransfer(sh.cfg.MetricsFile, rec); logErr != nil {
		sh.log.Warn("write transfer journal", zap.String("path", sh.cfg.MetricsFile), zap.Error(logErr))
	}
}

// popFlag removes flag from args and reports whether it was present.
func popFlag(args []string, flag string) ([]string, bool) {
	out := args[:0:0]
	found := false
	for _, a := range args {
		if a == flag {
			found = true
			continue
		}
		out = append(out, a)
	}
	return out, found
}
