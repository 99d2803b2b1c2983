package terminal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
)

// DefaultThemeFile is the theme file name under the user's home directory.
const DefaultThemeFile = ".ftputil-theme.json"

// Theme represents a terminal theme configuration
type Theme struct {
	Name         string `json:"name"`
	PromptColor  string `json:"promptColor"`
	TextColor    string `json:"textColor"`
	ErrorColor   string `json:"errorColor"`
	SuccessColor string `json:"successColor"`
	InfoColor    string `json:"infoColor"`
}

var themes = map[string]Theme{
	"dark": {
		Name:         "dark",
		PromptColor:  "green",
		TextColor:    "white",
		ErrorColor:   "red",
		SuccessColor: "green",
		InfoColor:    "cyan",
	},
	"light": {
		Name:         "light",
		PromptColor:  "black",
		TextColor:    "black",
		ErrorColor:   "red",
		SuccessColor: "green",
		InfoColor:    "blue",
	},
	"mono": {
		Name:         "mono",
		PromptColor:  "white",
		TextColor:    "white",
		ErrorColor:   "white",
		SuccessColor: "white",
		InfoColor:    "white",
	},
}

var colorAttributes = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

// ThemeManager handles theme operations
type ThemeManager struct {
	currentTheme Theme
	configPath   string
}

// NewThemeManager loads the theme persisted at configPath, writing the dark
// theme there when the file does not exist. An empty configPath means
// ~/.ftputil-theme.json.
func NewThemeManager(configPath string) (*ThemeManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(homeDir, DefaultThemeFile)
	}

	tm := &ThemeManager{
		configPath:   configPath,
		currentTheme: themes["dark"],
	}

	if err := tm.LoadTheme(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load theme: %w", err)
		}
		if err := tm.SaveTheme(); err != nil {
			return nil, fmt.Errorf("failed to save default theme: %w", err)
		}
	}

	return tm, nil
}

// LoadTheme loads the theme from config file
func (tm *ThemeManager) LoadTheme() error {
	data, err := os.ReadFile(tm.configPath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &tm.currentTheme)
}

// SaveTheme saves the current theme to config file
func (tm *ThemeManager) SaveTheme() error {
	data, err := json.MarshalIndent(tm.currentTheme, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(tm.configPath, data, 0o644)
}

// SetTheme switches to a built-in theme and persists it.
func (tm *ThemeManager) SetTheme(name string) error {
	theme, ok := themes[name]
	if !ok {
		return fmt.Errorf("unknown theme: %s", name)
	}
	tm.currentTheme = theme

	return tm.SaveTheme()
}

// ThemeNames lists the built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (tm *ThemeManager) Prompt() *color.Color  { return colorFromName(tm.currentTheme.PromptColor) }
func (tm *ThemeManager) Text() *color.Color    { return colorFromName(tm.currentTheme.TextColor) }
func (tm *ThemeManager) Error() *color.Color   { return colorFromName(tm.currentTheme.ErrorColor) }
func (tm *ThemeManager) Success() *color.Color { return colorFromName(tm.currentTheme.SuccessColor) }
func (tm *ThemeManager) Info() *color.Color    { return colorFromName(tm.currentTheme.InfoColor) }

// Name returns the name of the current theme
func (tm *ThemeManager) Name() string {
	return tm.currentTheme.Name
}

// colorFromName maps a color name to a color.Color, defaulting to white.
func colorFromName(name string) *color.Color {
	attr, ok := colorAttributes[name]
	if !ok {
		attr = color.FgWhite
	}
	return color.New(attr)
}
