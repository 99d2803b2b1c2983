package terminal

import (
	"os"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
)

// Lister is the part of a session the completer needs.
type Lister interface {
	ListFiles(dir string) ([]string, error)
	Connected() bool
}

// CommandCompleter handles command and argument completion
type CommandCompleter struct {
	commands     []prompt.Suggest
	lister       Lister
	remoteNames  []string
	lastUpdate   time.Time
	cacheTimeout time.Duration
}

// NewCommandCompleter creates a new command completer
func NewCommandCompleter(lister Lister) *CommandCompleter {
	return &CommandCompleter{
		commands: []prompt.Suggest{
			{Text: "HOST", Description: "Connect to FTP server"},
			{Text: "QUIT", Description: "Disconnect from FTP server"},
			{Text: "LIST", Description: "List files on FTP server"},
			{Text: "CWD", Description: "Change directory on FTP server"},
			{Text: "PWD", Description: "Show current FTP directory"},
			{Text: "MKD", Description: "Create directory tree on FTP server"},
			{Text: "STOR", Description: "Upload file to FTP"},
			{Text: "RETR", Description: "Download file from FTP"},
			{Text: "MGET", Description: "Download a whole FTP directory"},
			{Text: "MOVE", Description: "Move file between FTP directories"},
			{Text: "dir", Description: "List local directory"},
			{Text: "theme", Description: "Change terminal theme"},
			{Text: "clear", Description: "Clear terminal screen"},
			{Text: "HELP", Description: "Show help information"},
			{Text: "exit", Description: "Leave the shell"},
		},
		lister:       lister,
		cacheTimeout: 15 * time.Second,
	}
}

// Commands returns the known shell commands.
func (c *CommandCompleter) Commands() []prompt.Suggest {
	return c.commands
}

// Completer returns suggestions for the current input
func (c *CommandCompleter) Completer(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	words := strings.Fields(text)

	if len(words) == 0 || (len(words) == 1 && !strings.HasSuffix(text, " ")) {
		return c.suggestCommands(words)
	}
	return c.suggestArguments(words, strings.HasSuffix(text, " "))
}

func (c *CommandCompleter) suggestCommands(words []string) []prompt.Suggest {
	if len(words) == 0 {
		return c.commands
	}

	prefix := strings.ToUpper(words[0])
	var filtered []prompt.Suggest
	for _, s := range c.commands {
		if strings.HasPrefix(strings.ToUpper(s.Text), prefix) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func (c *CommandCompleter) suggestArguments(words []string, fresh bool) []prompt.Suggest {
	prefix := words[len(words)-1]
	if fresh {
		prefix = ""
	}

	switch strings.ToUpper(words[0]) {
	case "RETR", "MOVE", "CWD", "LIST", "MGET":
		return filterNames(c.remote(), prefix, "Remote entry")
	case "STOR":
		return filterNames(localFiles(), prefix, "Local file")
	case "THEME":
		return filterNames(ThemeNames(), prefix, "Theme")
	default:
		return nil
	}
}

// Invalidate drops the cached remote listing, e.g. after CWD.
func (c *CommandCompleter) Invalidate() {
	c.remoteNames = nil
	c.lastUpdate = time.Time{}
}

func (c *CommandCompleter) remote() []string {
	if c.lister == nil || !c.lister.Connected() {
		return nil
	}
	if time.Since(c.lastUpdate) < c.cacheTimeout {
		return c.remoteNames
	}

	names, err := c.lister.ListFiles("")
	if err != nil {
		return c.remoteNames // keep the stale cache
	}
	c.remoteNames = names
	c.lastUpdate = time.Now()
	return names
}

func localFiles() []string {
	entries, err := os.ReadDir(".")
	if err != nil {
		return nil
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	return files
}

// filterNames keeps names starting with prefix, case-insensitively. Hidden
// names need an explicit leading dot.
func filterNames(names []string, prefix, description string) []prompt.Suggest {
	var suggestions []prompt.Suggest
	for _, name := range names {
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			suggestions = append(suggestions, prompt.Suggest{Text: name, Description: description})
		}
	}
	return suggestions
}
