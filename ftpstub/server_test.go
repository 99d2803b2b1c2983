package ftpstub

import (
	"bytes"
	"io"
	"net/textproto"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	srv, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func dial(t *testing.T, srv *Server) *ftp.ServerConn {
	t.Helper()

	c, err := ftp.Dial(srv.Addr(), ftp.DialWithTimeout(5*time.Second), ftp.DialWithDisabledEPSV(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Quit() })
	return c
}

func login(t *testing.T, srv *Server) *ftp.ServerConn {
	t.Helper()

	c := dial(t, srv)
	require.NoError(t, c.Login("anonymous", "anonymous@"))
	return c
}

func replyCode(t *testing.T, err error) int {
	t.Helper()

	var protoErr *textproto.Error
	require.ErrorAs(t, err, &protoErr)
	return protoErr.Code
}

func TestServerAddress(t *testing.T) {
	srv := startServer(t)

	assert.Equal(t, "127.0.0.1", srv.Host())
	assert.NotZero(t, srv.Port())
}

func TestAnonymousLogin(t *testing.T) {
	srv := startServer(t)
	c := dial(t, srv)

	require.NoError(t, c.Login("anonymous", "anonymous@"))
	dir, err := c.CurrentDir()
	require.NoError(t, err)
	assert.Equal(t, "/", dir)
}

func TestWithoutAnonymousRejectsLogin(t *testing.T) {
	srv := startServer(t, WithoutAnonymous())
	c := dial(t, srv)

	err := c.Login("anonymous", "anonymous@")
	require.Error(t, err)
	assert.Equal(t, 530, replyCode(t, err))
}

func TestUnknownUserRejectedAtPassword(t *testing.T) {
	srv := startServer(t, WithUser("alice", "s3cret"))
	c := dial(t, srv)

	err := c.Login("mallory", "guess")
	require.Error(t, err)
	assert.Equal(t, 530, replyCode(t, err))
	assert.Contains(t, srv.Commands(), "PASS [REDACTED]")
}

func TestNamedUserLogin(t *testing.T) {
	srv := startServer(t, WithUser("alice", "s3cret"))

	bad := dial(t, srv)
	assert.Error(t, bad.Login("alice", "wrong"))

	good := dial(t, srv)
	assert.NoError(t, good.Login("alice", "s3cret"))
}

func TestCommandsRedactPassword(t *testing.T) {
	srv := startServer(t, WithUser("alice", "s3cret"))
	c := dial(t, srv)
	require.NoError(t, c.Login("alice", "s3cret"))

	cmds := srv.Commands()
	assert.Contains(t, cmds, "USER alice")
	assert.Contains(t, cmds, "PASS [REDACTED]")
	for _, cmd := range cmds {
		assert.NotContains(t, cmd, "s3cret")
	}
}

func TestStoreAndRetrieve(t *testing.T) {
	srv := startServer(t)
	c := login(t, srv)

	require.NoError(t, c.Stor("hello.txt", bytes.NewBufferString("hello world")))

	data, err := srv.ReadFile("/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	resp, err := c.Retr("hello.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(resp)
	require.NoError(t, err)
	require.NoError(t, resp.Close())
	assert.Equal(t, "hello world", string(got))
}

func TestRetrieveMissingFile(t *testing.T) {
	srv := startServer(t)
	c := login(t, srv)

	_, err := c.Retr("missing.txt")
	require.Error(t, err)
	assert.Equal(t, 550, replyCode(t, err))

	// the session stays usable
	_, err = c.CurrentDir()
	assert.NoError(t, err)
}

func TestStoreIntoMissingDirectory(t *testing.T) {
	srv := startServer(t)
	c := login(t, srv)

	err := c.Stor("/nope/file.txt", bytes.NewBufferString("x"))
	require.Error(t, err)
	assert.Equal(t, 553, replyCode(t, err))
}

func TestNameListReturnsSortedBareNames(t *testing.T) {
	srv := startServer(t)
	require.NoError(t, srv.AddFile("/data/b.txt", []byte("b")))
	require.NoError(t, srv.AddFile("/data/a.txt", []byte("a")))
	require.NoError(t, srv.AddDir("/data/sub"))
	c := login(t, srv)

	names, err := c.NameList("/data")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "sub"}, names)

	require.NoError(t, c.ChangeDir("/data"))
	names, err = c.NameList("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "sub"}, names)
}

func TestNameListEmptyDirectory(t *testing.T) {
	srv := startServer(t)
	require.NoError(t, srv.AddDir("/empty"))
	c := login(t, srv)

	names, err := c.NameList("/empty")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestList(t *testing.T) {
	srv := startServer(t)
	require.NoError(t, srv.AddFile("/report.csv", []byte("1,2,3")))
	require.NoError(t, srv.AddDir("/archive"))
	c := login(t, srv)

	entries, err := c.List("/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "archive", entries[0].Name)
	assert.Equal(t, ftp.EntryTypeFolder, entries[0].Type)
	assert.Equal(t, "report.csv", entries[1].Name)
	assert.Equal(t, uint64(5), entries[1].Size)
}

func TestMakeDirLenientByDefault(t *testing.T) {
	srv := startServer(t)
	c := login(t, srv)

	require.NoError(t, c.MakeDir("a"))
	assert.NoError(t, c.MakeDir("a"))
	assert.True(t, srv.Exists("/a"))
}

func TestMakeDirStrict(t *testing.T) {
	srv := startServer(t, WithStrictMkdir())
	c := login(t, srv)

	require.NoError(t, c.MakeDir("a"))
	err := c.MakeDir("a")
	require.Error(t, err)
	assert.Equal(t, 550, replyCode(t, err))
}

func TestChangeDirAndCdup(t *testing.T) {
	srv := startServer(t)
	require.NoError(t, srv.AddDir("/x/y"))
	c := login(t, srv)

	require.NoError(t, c.ChangeDir("x/y"))
	dir, err := c.CurrentDir()
	require.NoError(t, err)
	assert.Equal(t, "/x/y", dir)

	require.NoError(t, c.ChangeDirToParent())
	dir, err = c.CurrentDir()
	require.NoError(t, err)
	assert.Equal(t, "/x", dir)

	assert.Error(t, c.ChangeDir("/missing"))
}

func TestRenameOverwritesExistingFile(t *testing.T) {
	srv := startServer(t)
	require.NoError(t, srv.AddFile("/src/f.txt", []byte("new")))
	require.NoError(t, srv.AddFile("/dst/f.txt", []byte("old")))
	c := login(t, srv)

	require.NoError(t, c.Rename("/src/f.txt", "/dst/f.txt"))

	assert.False(t, srv.Exists("/src/f.txt"))
	data, err := srv.ReadFile("/dst/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestDeleteAndRemoveDir(t *testing.T) {
	srv := startServer(t)
	require.NoError(t, srv.AddFile("/d/f.txt", []byte("x")))
	c := login(t, srv)

	assert.Error(t, c.RemoveDir("/d"))
	require.NoError(t, c.Delete("/d/f.txt"))
	require.NoError(t, c.RemoveDir("/d"))
	assert.False(t, srv.Exists("/d"))
}

func TestFileSize(t *testing.T) {
	srv := startServer(t)
	require.NoError(t, srv.AddFile("/f.bin", make([]byte, 42)))
	c := login(t, srv)

	size, err := c.FileSize("/f.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(42), size)
}

func TestInjectedFailures(t *testing.T) {
	srv := startServer(t, WithFailures("STOR", 1))
	c := login(t, srv)

	err := c.Stor("f.txt", bytes.NewBufferString("x"))
	require.Error(t, err)
	assert.Equal(t, 451, replyCode(t, err))
	assert.False(t, srv.Exists("/f.txt"))

	require.NoError(t, c.Stor("f.txt", bytes.NewBufferString("x")))
	assert.True(t, srv.Exists("/f.txt"))
}

func TestInjectedConnectFailure(t *testing.T) {
	srv := startServer(t, WithFailures("CONNECT", 1))

	_, err := ftp.Dial(srv.Addr(), ftp.DialWithTimeout(5*time.Second))
	require.Error(t, err)

	c := dial(t, srv)
	assert.NoError(t, c.Login("anonymous", "x"))
}

func TestWithFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/seed.txt", []byte("seed"), 0o644))
	srv := startServer(t, WithFs(fs))

	files, err := srv.Files("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"seed.txt"}, files)
	assert.Same(t, fs, srv.Fs())
}

func TestCloseIsIdempotent(t *testing.T) {
	srv, err := New()
	require.NoError(t, err)
	c, err := ftp.Dial(srv.Addr(), ftp.DialWithTimeout(5*time.Second))
	require.NoError(t, err)
	defer c.Quit()

	require.NoError(t, srv.Close())
	assert.NoError(t, srv.Close())
}
