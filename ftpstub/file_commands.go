package ftpstub

import (
	"fmt"
	"os"
	"path"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func (sess *session) handlePWD() {
	sess.withAuth(func() {
		sess.sendResponse(257, fmt.Sprintf(`"%s" is the current directory`, sess.currentDir))
	})
}

func (sess *session) handleCWD(dir string) {
	sess.withAuth(func() {
		sess.withValidParam(dir, func() {
			fullPath := sess.resolvePath(dir)
			info, err := sess.server.fs.Stat(fullPath)
			if err != nil || !info.IsDir() {
				sess.sendResponse(550, "Failed to change directory")
				return
			}
			sess.currentDir = fullPath
			sess.sendResponse(250, fmt.Sprintf(`CWD command successful. "%s" is current directory`, fullPath))
		})
	})
}

func (sess *session) handleCDUP() {
	sess.withAuth(func() {
		sess.currentDir = path.Dir(sess.currentDir)
		sess.sendResponse(250, fmt.Sprintf(`CDUP command successful. "%s" is current directory`, sess.currentDir))
	})
}

func (sess *session) handleSIZE(name string) {
	sess.withAuth(func() {
		sess.withValidParam(name, func() {
			sess.withExistingFile(name, func(_ string, info os.FileInfo) {
				sess.sendResponse(213, fmt.Sprintf("%d", info.Size()))
			})
		})
	})
}

// handleMKD creates a directory. An existing directory is accepted unless
// the server runs with WithStrictMkdir.
func (sess *session) handleMKD(dir string) {
	sess.withAuth(func() {
		sess.withValidParam(dir, func() {
			fullPath := sess.resolvePath(dir)

			if info, err := sess.server.fs.Stat(fullPath); err == nil {
				if !info.IsDir() || sess.server.strictMkdir {
					sess.sendResponse(550, fmt.Sprintf(`"%s" already exists`, fullPath))
					return
				}
				sess.sendResponse(257, fmt.Sprintf(`"%s" directory exists`, fullPath))
				return
			}

			if err := sess.server.fs.MkdirAll(fullPath, 0o755); err != nil {
				sess.sendResponse(550, fmt.Sprintf("Failed to create directory: %v", err))
				return
			}
			sess.sendResponse(257, fmt.Sprintf(`"%s" directory created`, fullPath))
		})
	})
}

func (sess *session) handleRMD(dir string) {
	sess.withAuth(func() {
		sess.withValidParam(dir, func() {
			sess.withExistingDirectory(dir, func(fullPath string, _ os.FileInfo) {
				entries, err := afero.ReadDir(sess.server.fs, fullPath)
				if err != nil {
					sess.sendResponse(550, "Failed to read directory")
					return
				}
				if len(entries) > 0 {
					sess.sendResponse(550, "Directory not empty")
					return
				}
				if err := sess.server.fs.Remove(fullPath); err != nil {
					sess.sendResponse(550, fmt.Sprintf("Failed to remove directory: %v", err))
					return
				}
				sess.sendResponse(250, "Directory removed")
			})
		})
	})
}

func (sess *session) handleDELE(name string) {
	sess.withAuth(func() {
		sess.withValidParam(name, func() {
			sess.withExistingFile(name, func(fullPath string, _ os.FileInfo) {
				if err := sess.server.fs.Remove(fullPath); err != nil {
					sess.sendResponse(550, fmt.Sprintf("Failed to delete file: %v", err))
					return
				}
				sess.sendResponse(250, "File deleted")
			})
		})
	})
}

func (sess *session) handleRNFR(name string) {
	sess.withAuth(func() {
		sess.withValidParam(name, func() {
			fullPath := sess.resolvePath(name)
			if _, err := sess.server.fs.Stat(fullPath); err != nil {
				sess.sendResponse(550, "File or directory not found")
				return
			}
			sess.renameFrom = fullPath
			sess.sendResponse(350, "Ready for RNTO")
		})
	})
}

// handleRNTO completes a rename. An existing regular file at the target is
// replaced.
func (sess *session) handleRNTO(name string) {
	sess.withAuth(func() {
		sess.withValidParam(name, func() {
			from := sess.renameFrom
			sess.renameFrom = ""
			if from == "" {
				sess.sendResponse(503, "Bad sequence of commands, use RNFR first")
				return
			}

			to := sess.resolvePath(name)
			if parent, err := sess.server.fs.Stat(path.Dir(to)); err != nil || !parent.IsDir() {
				sess.sendResponse(553, "Requested action not taken: directory does not exist")
				return
			}
			if info, err := sess.server.fs.Stat(to); err == nil {
				if info.IsDir() {
					sess.sendResponse(550, "Target is a directory")
					return
				}
				if err := sess.server.fs.Remove(to); err != nil {
					sess.sendResponse(550, fmt.Sprintf("Rename failed: %v", err))
					return
				}
			} else if !isNotExist(err) {
				sess.sendResponse(550, fmt.Sprintf("Rename failed: %v", err))
				return
			}

			if err := sess.server.fs.Rename(from, to); err != nil {
				sess.sendResponse(550, fmt.Sprintf("Rename failed: %v", err))
				return
			}
			sess.log.Debug("renamed", zap.String("from", from), zap.String("to", to))
			sess.sendResponse(250, "Rename successful")
		})
	})
}
