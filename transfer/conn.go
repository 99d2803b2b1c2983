package transfer

import (
	"io"
	"net"
	"strconv"
	"time"

	"ftputil/logger"

	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"
)

const (
	// DefaultPort is used when Connect is given port 0.
	DefaultPort = 21

	anonymousUser     = "anonymous"
	anonymousPassword = "anonymous@"
)

// Conn is a single FTP session with retrying transfer helpers.
// It is not safe for concurrent use.
type Conn struct {
	client   *ftp.ServerConn
	addr     string
	passive  bool
	attempts int

	retry    RetryPolicy
	log      *zap.Logger
	debug    io.Writer
	progress ProgressFunc
}

// Option configures a Conn.
type Option func(*Conn)

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Conn) { c.retry = p }
}

// WithLogger sets the logger used for retries and the resource guard.
func WithLogger(l *zap.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDebugOutput mirrors the FTP control channel to w.
func WithDebugOutput(w io.Writer) Option {
	return func(c *Conn) { c.debug = w }
}

// WithProgress installs a transfer progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Conn) { c.progress = fn }
}

// NewConn returns an unconnected session handle.
func NewConn(opts ...Option) *Conn {
	c := &Conn{
		retry: DefaultRetryPolicy(),
		log:   logger.WithModule("transfer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials host:port, logs in and switches the session to passive mode.
// An empty user logs in anonymously. Port 0 means 21 and a zero timeout
// leaves dialing unbounded. Transport failures are retried.
func (c *Conn) Connect(host string, port int, user, password string, timeout time.Duration) error {
	if port == 0 {
		port = DefaultPort
	}
	if user == "" {
		user, password = anonymousUser, anonymousPassword
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	return c.withRetry("connect "+addr, func() error {
		opts := []ftp.DialOption{ftp.DialWithDisabledEPSV(true)}
		if timeout > 0 {
			opts = append(opts, ftp.DialWithTimeout(timeout))
		}
		if c.debug != nil {
			opts = append(opts, ftp.DialWithDebugOutput(c.debug))
		}

		client, err := ftp.Dial(addr, opts...)
		if err != nil {
			return &TransportError{Op: "dial " + addr, Err: err}
		}
		if err := client.Login(user, password); err != nil {
			_ = client.Quit()
			return &TransportError{Op: "login " + user, Err: err}
		}

		if c.client != nil {
			if err := c.client.Quit(); err != nil {
				c.log.Debug("quit previous session", zap.String("address", c.addr), zap.Error(err))
			}
		}
		c.client = client
		c.addr = addr
		c.passive = true

		c.log.Info("connected to ftp server", zap.String("address", addr), zap.String("user", user))
		return nil
	})
}

// Close quits the session. Closing an unconnected handle is a no-op.
func (c *Conn) Close() error {
	if c.client == nil {
		return nil
	}
	client := c.client
	c.client = nil
	c.passive = false

	if err := client.Quit(); err != nil {
		return &TransportError{Op: "quit", Err: err}
	}
	return nil
}

// Connected reports whether the session is live.
func (c *Conn) Connected() bool { return c.client != nil }

// Addr returns the host:port of the last successful Connect.
func (c *Conn) Addr() string { return c.addr }

// Passive reports whether data connections use PASV.
func (c *Conn) Passive() bool { return c.passive }

// Attempts returns how many tries the most recent retried operation used.
func (c *Conn) Attempts() int { return c.attempts }

// ChangeDir sends CWD.
func (c *Conn) ChangeDir(dir string) error {
	client, err := c.session()
	if err != nil {
		return err
	}
	if err := client.ChangeDir(dir); err != nil {
		return &TransportError{Op: "cwd " + dir, Err: err}
	}
	return nil
}

// CurrentDir sends PWD.
func (c *Conn) CurrentDir() (string, error) {
	client, err := c.session()
	if err != nil {
		return "", err
	}
	dir, err := client.CurrentDir()
	if err != nil {
		return "", &TransportError{Op: "pwd", Err: err}
	}
	return dir, nil
}

func (c *Conn) session() (*ftp.ServerConn, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}
	return c.client, nil
}

func (c *Conn) withRetry(operation string, fn func() error) error {
	policy := c.retry
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.log.Warn("retrying ftp operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.Attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	c.attempts = 0
	return policy.Do(operation, func() error {
		c.attempts++
		return fn()
	})
}
