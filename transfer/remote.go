package transfer

import (
	"fmt"
	"path"
	"strings"
)

// MakeDirs creates every segment of dir below base, one MKD and CWD per
// segment, then returns to base. An empty base means "/". Existing
// segments are not special-cased: a server refusing MKD fails the call.
func (c *Conn) MakeDirs(dir, base string) error {
	client, err := c.session()
	if err != nil {
		return err
	}
	if base == "" {
		base = "/"
	}

	if err := client.ChangeDir(base); err != nil {
		return &TransportError{Op: "cwd " + base, Err: err}
	}
	for _, segment := range strings.Split(strings.Trim(dir, "/"), "/") {
		if segment == "" {
			continue
		}
		if err := client.MakeDir(segment); err != nil {
			return &TransportError{Op: "mkd " + segment, Err: err}
		}
		if err := client.ChangeDir(segment); err != nil {
			return &TransportError{Op: "cwd " + segment, Err: err}
		}
	}
	if err := client.ChangeDir(base); err != nil {
		return &TransportError{Op: "cwd " + base, Err: err}
	}
	return nil
}

// ListFiles returns the NLST of dir, or of the working directory when dir is empty.
func (c *Conn) ListFiles(dir string) ([]string, error) {
	client, err := c.session()
	if err != nil {
		return nil, err
	}
	names, err := client.NameList(dir)
	if err != nil {
		return nil, &TransportError{Op: "nlst " + dir, Err: err}
	}
	return names, nil
}

// UniqueName returns name if dir holds no entry with that name, otherwise
// the first free "root-k.ext". The check is not atomic with the later write.
func (c *Conn) UniqueName(name, dir string) (string, error) {
	entries, err := c.ListFiles(dir)
	if err != nil {
		return "", err
	}

	taken := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		taken[path.Base(entry)] = struct{}{}
	}
	return uniqueName(name, taken), nil
}

// MoveFile renames srcDir/name to dstDir/<name or a free variant of it> and
// returns the destination name. With renameExisting the target is overwritten.
// A failed rename is not retried: the server may already have applied it.
func (c *Conn) MoveFile(srcDir, dstDir, name string, renameExisting bool) (string, error) {
	c.attempts = 1
	client, err := c.session()
	if err != nil {
		return "", err
	}

	newName := name
	if !renameExisting {
		if newName, err = c.UniqueName(name, dstDir); err != nil {
			return "", err
		}
	}

	from, to := path.Join(srcDir, name), path.Join(dstDir, newName)
	if err := client.Rename(from, to); err != nil {
		return "", &TransportError{Op: fmt.Sprintf("rename %s to %s", from, to), Err: err}
	}
	return newName, nil
}

func uniqueName(name string, taken map[string]struct{}) string {
	if _, ok := taken[name]; !ok {
		return name
	}
	root, ext := splitExt(name)
	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s-%d%s", root, k, ext)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// splitExt splits the last dot-suffix off name. Leading dots belong to the
// root, so ".profile" has no extension.
func splitExt(name string) (root, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || strings.Trim(name[:i], ".") == "" {
		return name, ""
	}
	return name[:i], name[i:]
}
