package terminal

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c-bata/go-prompt"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	names     []string
	err       error
	connected bool
	calls     int
}

func (f *fakeLister) ListFiles(string) ([]string, error) {
	f.calls++
	return f.names, f.err
}

func (f *fakeLister) Connected() bool { return f.connected }

func document(text string) prompt.Document {
	buf := prompt.NewBuffer()
	buf.InsertText(text, false, true)
	return *buf.Document()
}

func suggestionTexts(s []prompt.Suggest) []string {
	out := make([]string, 0, len(s))
	for _, x := range s {
		out = append(out, x.Text)
	}
	return out
}

func TestThemeManagerPersistsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.json")

	tm, err := NewThemeManager(path)
	require.NoError(t, err)
	assert.Equal(t, "dark", tm.Name())
	assert.FileExists(t, path)
}

func TestThemeManagerSwitchAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.json")
	tm, err := NewThemeManager(path)
	require.NoError(t, err)

	require.NoError(t, tm.SetTheme("light"))
	assert.Error(t, tm.SetTheme("neon"))

	reloaded, err := NewThemeManager(path)
	require.NoError(t, err)
	assert.Equal(t, "light", reloaded.Name())
}

func TestThemeManagerRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewThemeManager(path)
	assert.Error(t, err)
}

func TestColorFromName(t *testing.T) {
	assert.True(t, colorFromName("red").Equals(color.New(color.FgRed)))
	assert.True(t, colorFromName("chartreuse").Equals(color.New(color.FgWhite)))
}

func TestThemeNames(t *testing.T) {
	assert.Equal(t, []string{"dark", "light", "mono"}, ThemeNames())
}

func TestFormatRemoteNames(t *testing.T) {
	var out bytes.Buffer
	tf := NewTableFormatter(&out)

	require.NoError(t, tf.FormatRemoteNames("/in", []string{"report.csv", "README"}))

	text := out.String()
	assert.Contains(t, text, "report.csv")
	assert.Contains(t, text, "CSV")
	assert.Contains(t, text, "README")
}

func TestFormatRemoteNamesEmpty(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, NewTableFormatter(&out).FormatRemoteNames("/in", nil))
	assert.Equal(t, "/in is empty\n", out.String())
}

func TestFormatLocalDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.json"), make([]byte, 2048), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	var out bytes.Buffer
	require.NoError(t, NewTableFormatter(&out).FormatLocalDirectory(dir))

	text := out.String()
	assert.Contains(t, text, "data.json")
	assert.Contains(t, text, "2.0 KB")
	assert.Contains(t, text, "sub/")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "3.0 MB", formatSize(3*1024*1024))
}

func TestCompleterSuggestsCommands(t *testing.T) {
	c := NewCommandCompleter(nil)

	got := suggestionTexts(c.Completer(document("st")))
	assert.Equal(t, []string{"STOR"}, got)

	assert.Len(t, c.Completer(document("")), len(c.Commands()))
}

func TestCompleterSuggestsRemoteNames(t *testing.T) {
	lister := &fakeLister{names: []string{"alpha.txt", "beta.txt", ".hidden"}, connected: true}
	c := NewCommandCompleter(lister)

	assert.Equal(t, []string{"alpha.txt"}, suggestionTexts(c.Completer(document("RETR al"))))
	assert.Equal(t, []string{"alpha.txt", "beta.txt"}, suggestionTexts(c.Completer(document("RETR "))))
	assert.Equal(t, []string{".hidden"}, suggestionTexts(c.Completer(document("RETR ."))))
	assert.Equal(t, 1, lister.calls)

	c.Invalidate()
	c.Completer(document("RETR a"))
	assert.Equal(t, 2, lister.calls)
}

func TestCompleterSkipsDisconnectedLister(t *testing.T) {
	lister := &fakeLister{names: []string{"a"}}
	c := NewCommandCompleter(lister)

	assert.Empty(t, c.Completer(document("RETR a")))
	assert.Zero(t, lister.calls)

	lister.connected = true
	lister.err = errors.New("boom")
	assert.Empty(t, c.Completer(document("RETR a")))
}

func TestCompleterSuggestsThemes(t *testing.T) {
	c := NewCommandCompleter(nil)

	assert.Equal(t, []string{"light"}, suggestionTexts(c.Completer(document("theme l"))))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, ">"+strings.Repeat(" ", barWidth-1), ProgressBar(0))
	assert.Equal(t, strings.Repeat("=", barWidth/2)+">"+strings.Repeat(" ", barWidth/2-1), ProgressBar(50))
	assert.Equal(t, strings.Repeat("=", barWidth), ProgressBar(150))
}

func TestProgressPrinter(t *testing.T) {
	var out bytes.Buffer
	report := ProgressPrinter(&out)

	report("a.bin", 50, 100)
	assert.Contains(t, out.String(), "50.0%")

	report("a.bin", 100, 100)
	assert.True(t, strings.HasSuffix(out.String(), "\n"))

	out.Reset()
	report("b.bin", 2048, -1)
	assert.Contains(t, out.String(), "2.0 KB received")
}
