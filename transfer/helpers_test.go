package transfer

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ftputil/ftpstub"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: time.Millisecond, Retryable: IsTransportError}
}

func newStub(t *testing.T, opts ...ftpstub.Option) *ftpstub.Server {
	t.Helper()

	srv, err := ftpstub.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func newTestConn(t *testing.T, opts ...Option) *Conn {
	t.Helper()

	base := []Option{WithRetryPolicy(fastRetry()), WithLogger(zaptest.NewLogger(t))}
	return NewConn(append(base, opts...)...)
}

func connect(t *testing.T, srv *ftpstub.Server, opts ...Option) *Conn {
	t.Helper()

	c := newTestConn(t, opts...)
	require.NoError(t, c.Connect(srv.Host(), srv.Port(), "", "", 5*time.Second))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeLocal(t *testing.T, dir, name, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// closedPort returns a loopback port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func countPrefix(lines []string, prefix string) int {
	n := 0
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}
