package terminal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// FileInfo represents a file or directory entry
type FileInfo struct {
	Name      string
	Type      string
	Size      int64
	Modified  time.Time
	IsDir     bool
	IsSymlink bool
}

// TableFormatter renders listings as tables on w.
type TableFormatter struct {
	out io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &TableFormatter{out: w}
}

func (tf *TableFormatter) newTable(headers ...any) *tablewriter.Table {
	table := tablewriter.NewWriter(tf.out)
	table.Header(headers...)
	table.Options(
		tablewriter.WithRendition(tw.Rendition{Borders: tw.Border{Left: tw.Pending, Right: tw.Pending, Top: tw.Pending, Bottom: tw.Pending}}),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
	)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.MaxWidth = 0
		cfg.Header = tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}}
		cfg.Row = tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}}
		cfg.Behavior = tw.Behavior{}
	})
	return table
}

// FormatLocalDirectory formats a local directory listing
func (tf *TableFormatter) FormatLocalDirectory(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}

	var files []FileInfo
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}

		fileType := "file"
		if entry.IsDir() {
			fileType = "dir"
		} else if info.Mode()&os.ModeSymlink != 0 {
			fileType = "link"
		}

		files = append(files, FileInfo{
			Name:      entry.Name(),
			Type:      fileType,
			Size:      info.Size(),
			Modified:  info.ModTime(),
			IsDir:     entry.IsDir(),
			IsSymlink: info.Mode()&os.ModeSymlink != 0,
		})
	}

	if len(files) == 0 {
		_, err := fmt.Fprintln(tf.out, "Directory is empty")
		return err
	}

	table := tf.newTable("Name", "Type", "Size", "Modified")
	for _, file := range files {
		size := formatSize(file.Size)
		if file.IsDir {
			size = "-"
		}

		name := file.Name
		if file.IsDir {
			name += "/"
		} else if file.IsSymlink {
			name += "@"
		}

		if err := table.Append([]string{
			truncateName(name),
			typeLabel(file),
			size,
			file.Modified.Format("Jan 02 15:04"),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// FormatRemoteNames formats a name listing of dir as returned by NLST.
func (tf *TableFormatter) FormatRemoteNames(dir string, names []string) error {
	if len(names) == 0 {
		_, err := fmt.Fprintf(tf.out, "%s is empty\n", dir)
		return err
	}

	table := tf.newTable("#", "Name", "Type")
	for i, name := range names {
		if err := table.Append([]string{
			fmt.Sprintf("%d", i+1),
			truncateName(name),
			typeLabel(FileInfo{Name: name, Type: "-"}),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// typeLabel shows the upper-cased extension for plain files.
func typeLabel(file FileInfo) string {
	if file.IsDir || file.IsSymlink {
		return file.Type
	}
	if ext := filepath.Ext(file.Name); ext != "" && ext != file.Name {
		return strings.ToUpper(strings.TrimPrefix(ext, "."))
	}
	return file.Type
}

func truncateName(name string) string {
	if len(name) > 50 {
		return name[:47] + "..."
	}
	return name
}

// formatSize formats a file size in human-readable format
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
