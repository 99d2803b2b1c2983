package transfer

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DownloadFile retrieves remotePath. With a nil sink the bytes go to
// localPath, which is created or truncated; otherwise every chunk is written
// to sink in arrival order and sink is left open. A retry restarts the
// transfer from the first byte and does not clean up partial output.
func (c *Conn) DownloadFile(localPath, remotePath string, sink io.Writer) error {
	return c.withRetry("download "+remotePath, func() error {
		return c.retrieve(localPath, remotePath, sink)
	})
}

// DirOption configures DownloadDirectory.
type DirOption func(*dirOptions)

type dirOptions struct {
	filter func(name string) bool
	sink   func(name string) io.Writer
}

// WithNameFilter skips listing entries for which keep returns false.
func WithNameFilter(keep func(name string) bool) DirOption {
	return func(o *dirOptions) { o.filter = keep }
}

// WithSink routes each file to the writer returned for its name. A nil
// writer falls back to the local file.
func WithSink(sink func(name string) io.Writer) DirOption {
	return func(o *dirOptions) { o.sink = sink }
}

// DownloadDirectory retrieves every file listed in remoteDir into localDir,
// creating localDir when missing. The session is left in remoteDir. The
// first failure aborts the walk; files already written stay.
func (c *Conn) DownloadDirectory(localDir, remoteDir string, opts ...DirOption) error {
	var o dirOptions
	for _, opt := range opts {
		opt(&o)
	}

	return c.withRetry("download directory "+remoteDir, func() error {
		if err := os.MkdirAll(localDir, 0o755); err != nil {
			return &LocalError{Op: "mkdir", Path: localDir, Err: err}
		}
		if err := c.ChangeDir(remoteDir); err != nil {
			return err
		}

		names, err := c.ListFiles("")
		if err != nil {
			return err
		}

		for _, name := range names {
			if o.filter != nil && !o.filter(name) {
				continue
			}
			var sink io.Writer
			if o.sink != nil {
				sink = o.sink(name)
			}
			if err := c.retrieve(filepath.Join(localDir, name), name, sink); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Conn) retrieve(localPath, remotePath string, sink io.Writer) error {
	client, err := c.session()
	if err != nil {
		return err
	}

	target := localPath
	var file *os.File
	if sink == nil {
		file, err = os.Create(localPath)
		if err != nil {
			return &LocalError{Op: "create", Path: localPath, Err: err}
		}
		defer file.Close()
		sink = file
	} else {
		target = "sink"
	}

	resp, err := client.Retr(remotePath)
	if err != nil {
		return &TransportError{Op: "retr " + remotePath, Err: err}
	}

	dst := &trackedWriter{w: sink}
	src := &ProgressReader{Reader: resp, Name: remotePath, Total: -1, OnProgress: c.progress}
	n, copyErr := io.Copy(dst, src)
	closeErr := resp.Close()

	switch {
	case dst.err != nil:
		return &LocalError{Op: "write", Path: target, Err: dst.err}
	case copyErr != nil:
		return transportErr("retr "+remotePath, copyErr)
	case closeErr != nil:
		return transportErr("retr "+remotePath, closeErr)
	}

	if file != nil {
		if err := file.Close(); err != nil {
			return &LocalError{Op: "close", Path: localPath, Err: err}
		}
	}

	c.log.Debug("downloaded file", zap.String("remote", remotePath), zap.String("local", target), zap.Int64("bytes", n))
	return nil
}
