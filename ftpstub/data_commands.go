package ftpstub

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func (sess *session) handlePASV() {
	sess.withAuth(func() {
		addr, err := sess.openPassiveListener()
		if err != nil {
			sess.log.Warn("passive listener", zap.Error(err))
			sess.sendResponse(425, "Can't open data connection")
			return
		}

		ip := addr.IP.To4()
		if ip == nil {
			sess.closeDataConnection()
			sess.sendResponse(425, "Can't open data connection")
			return
		}
		sess.sendResponse(227, fmt.Sprintf("Entering Passive Mode (%d,%d,%d,%d,%d,%d)",
			ip[0], ip[1], ip[2], ip[3], addr.Port/256, addr.Port%256))
	})
}

func (sess *session) handleEPSV() {
	sess.withAuth(func() {
		addr, err := sess.openPassiveListener()
		if err != nil {
			sess.log.Warn("passive listener", zap.Error(err))
			sess.sendResponse(425, "Can't open data connection")
			return
		}
		sess.sendResponse(229, fmt.Sprintf("Entering Extended Passive Mode (|||%d|)", addr.Port))
	})
}

// handleNLST lists bare names of a directory, or echoes a file argument.
func (sess *session) handleNLST(arg string) {
	sess.withAuth(func() {
		names, ok := sess.listing(arg, func(info os.FileInfo) string { return info.Name() })
		if !ok {
			return
		}
		sess.sendData(strings.Join(names, ""))
	})
}

func (sess *session) handleLIST(arg string) {
	sess.withAuth(func() {
		lines, ok := sess.listing(arg, func(info os.FileInfo) string {
			perms := "-rw-r--r--"
			if info.IsDir() {
				perms = "drwxr-xr-x"
			}
			return fmt.Sprintf("%s %3d %-8s %-8s %8d %s %s",
				perms, 1, "owner", "group", info.Size(),
				info.ModTime().Format("Jan 02 15:04"), info.Name())
		})
		if !ok {
			return
		}
		sess.sendData(strings.Join(lines, ""))
	})
}

// listing formats the entries named by arg, one CRLF-terminated line each.
// It answers 550 itself when arg does not exist.
func (sess *session) listing(arg string, format func(os.FileInfo) string) ([]string, bool) {
	// clients may pass ls-style flags
	if strings.HasPrefix(arg, "-") {
		_, arg, _ = strings.Cut(arg, " ")
	}
	fullPath := sess.resolvePath(arg)

	info, err := sess.server.fs.Stat(fullPath)
	if err != nil {
		sess.closeDataConnection()
		sess.sendResponse(550, "No such file or directory")
		return nil, false
	}

	var infos []os.FileInfo
	if info.IsDir() {
		if infos, err = afero.ReadDir(sess.server.fs, fullPath); err != nil {
			sess.closeDataConnection()
			sess.sendResponse(550, "Failed to list directory")
			return nil, false
		}
	} else {
		infos = []os.FileInfo{info}
	}

	lines := make([]string, 0, len(infos))
	for _, fi := range infos {
		lines = append(lines, format(fi)+"\r\n")
	}
	return lines, true
}

func (sess *session) handleRETR(name string) {
	sess.withAuth(func() {
		sess.withValidParam(name, func() {
			sess.withExistingFile(name, func(fullPath string, info os.FileInfo) {
				file, err := sess.server.fs.Open(fullPath)
				if err != nil {
					sess.closeDataConnection()
					sess.sendResponse(550, fmt.Sprintf("Failed to open file: %v", err))
					return
				}
				defer file.Close()

				dataConn, err := sess.openDataConnection()
				if err != nil {
					sess.closeDataConnection()
					sess.sendResponse(425, "Can't open data connection")
					return
				}
				defer sess.closeDataConnection()

				sess.sendResponse(150, fmt.Sprintf("Opening BINARY mode data connection for %s (%d bytes)", name, info.Size()))
				_, err = io.Copy(dataConn, file)
				_ = dataConn.Close()
				if err != nil {
					sess.sendResponse(426, "Connection closed; transfer aborted")
					return
				}
				sess.sendResponse(226, "Transfer complete")
			})
		})
	})
}

func (sess *session) handleSTOR(name string) {
	sess.withAuth(func() {
		sess.withValidParam(name, func() {
			fullPath := sess.resolvePath(name)

			parent, err := sess.server.fs.Stat(path.Dir(fullPath))
			if err != nil || !parent.IsDir() {
				sess.closeDataConnection()
				sess.sendResponse(553, "Requested action not taken: directory does not exist")
				return
			}
			if info, err := sess.server.fs.Stat(fullPath); err == nil && info.IsDir() {
				sess.closeDataConnection()
				sess.sendResponse(553, "Requested action not taken: is a directory")
				return
			}

			dataConn, err := sess.openDataConnection()
			if err != nil {
				sess.closeDataConnection()
				sess.sendResponse(425, "Can't open data connection")
				return
			}
			defer sess.closeDataConnection()

			sess.sendResponse(150, fmt.Sprintf("Opening BINARY mode data connection for %s", name))

			var buf bytes.Buffer
			_, err = io.Copy(&buf, dataConn)
			_ = dataConn.Close()
			if err != nil {
				sess.sendResponse(426, "Connection closed; transfer aborted")
				return
			}

			if err := afero.WriteFile(sess.server.fs, fullPath, buf.Bytes(), 0o644); err != nil {
				sess.sendResponse(451, fmt.Sprintf("Failed to store file: %v", err))
				return
			}
			sess.log.Debug("stored file", zap.String("path", fullPath), zap.Int("bytes", buf.Len()))
			sess.sendResponse(226, "Transfer complete")
		})
	})
}

func (sess *session) sendData(payload string) {
	dataConn, err := sess.openDataConnection()
	if err != nil {
		sess.closeDataConnection()
		sess.sendResponse(425, "Can't open data connection")
		return
	}
	defer sess.closeDataConnection()

	sess.sendResponse(150, "Here comes the directory listing")
	_, err = io.WriteString(dataConn, payload)
	_ = dataConn.Close()
	if err != nil {
		sess.sendResponse(426, "Connection closed; transfer aborted")
		return
	}
	sess.sendResponse(226, "Directory send OK")
}
