package transfer

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Upload stores localDir/name into remoteDir, creating remoteDir below "/"
// first. Unless renameExisting is set, a free "root-k.ext" name is chosen
// when name is taken. It returns the remote name and leaves the session in
// remoteDir. The whole sequence is retried on transport errors.
func (c *Conn) Upload(localDir, name, remoteDir string, renameExisting bool) (string, error) {
	localPath := filepath.Join(localDir, name)
	info, err := os.Stat(localPath)
	if err != nil {
		return "", &LocalError{Op: "upload", Path: localPath, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", &LocalError{Op: "upload", Path: localPath, Err: ErrNotRegularFile}
	}

	targetDir := remoteDir
	if targetDir == "" {
		targetDir = "/"
	}

	var remoteName string
	err = c.withRetry("upload "+name, func() error {
		client, err := c.session()
		if err != nil {
			return err
		}

		if err := c.MakeDirs(remoteDir, "/"); err != nil {
			return err
		}
		if err := client.ChangeDir(targetDir); err != nil {
			return &TransportError{Op: "cwd " + targetDir, Err: err}
		}

		remoteName = name
		if !renameExisting {
			if remoteName, err = c.UniqueName(name, ""); err != nil {
				return err
			}
		}

		f, err := os.Open(localPath)
		if err != nil {
			return &LocalError{Op: "open", Path: localPath, Err: err}
		}
		defer f.Close()

		src := &trackedReader{r: f}
		pr := &ProgressReader{Reader: src, Name: name, Total: info.Size(), OnProgress: c.progress}
		if err := client.Stor(remoteName, pr); err != nil {
			if src.err != nil {
				return &LocalError{Op: "read", Path: localPath, Err: src.err}
			}
			return &TransportError{Op: "stor " + remoteName, Err: err}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	c.log.Debug("uploaded file",
		zap.String("local", localPath),
		zap.String("remote_dir", targetDir),
		zap.String("remote_name", remoteName),
		zap.Int64("bytes", info.Size()),
	)
	return remoteName, nil
}
