// Package ftpstub is an in-process FTP server backed by an afero filesystem.
// It speaks enough of RFC 959 for the jlaffaye/ftp client and supports
// fault injection so retry paths can be exercised in tests.
package ftpstub

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Server is a running stub FTP server listening on 127.0.0.1.
type Server struct {
	fs          afero.Fs
	listener    net.Listener
	log         *zap.Logger
	users       *userStore
	strictMkdir bool

	mu       sync.Mutex
	failures map[string]int
	commands []string
	sessions map[*session]struct{}
	closed   bool
	wg       sync.WaitGroup

	pendingUsers map[string]string
	anonymous    bool
}

// Option configures a Server.
type Option func(*Server)

// WithUser registers a named account.
func WithUser(name, password string) Option {
	return func(s *Server) { s.pendingUsers[name] = password }
}

// WithoutAnonymous rejects the anonymous and ftp logins.
func WithoutAnonymous() Option {
	return func(s *Server) { s.anonymous = false }
}

// WithStrictMkdir makes MKD of an existing directory fail with 550.
func WithStrictMkdir() Option {
	return func(s *Server) { s.strictMkdir = true }
}

// WithFailures makes the first n occurrences of verb answer 451. The pseudo
// verb CONNECT refuses the greeting with 421 and drops the connection.
func WithFailures(verb string, n int) Option {
	return func(s *Server) { s.failures[strings.ToUpper(verb)] += n }
}

// WithLogger sets the server logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithFs serves fs as the FTP root. Use afero.NewBasePathFs to serve a
// directory of the real filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Server) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// New starts a server on a random loopback port.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		fs:           afero.NewMemMapFs(),
		log:          zap.NewNop(),
		failures:     make(map[string]int),
		sessions:     make(map[*session]struct{}),
		pendingUsers: make(map[string]string),
		anonymous:    true,
	}
	for _, opt := range opts {
		opt(s)
	}

	users, err := newUserStore(s.anonymous, s.pendingUsers)
	if err != nil {
		return nil, err
	}
	s.users = users
	s.pendingUsers = nil

	if err := s.fs.MkdirAll("/", 0o755); err != nil {
		return nil, fmt.Errorf("prepare root: %w", err)
	}

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start FTP server: %w", err)
	}
	s.listener = listener
	s.log.Debug("ftp stub started", zap.String("address", listener.Addr().String()))

	s.wg.Add(1)
	go s.serve()

	return s, nil
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept connection", zap.Error(err))
			continue
		}

		if s.shouldFail("CONNECT") {
			_, _ = fmt.Fprintf(conn, "421 Service not available, closing control connection\r\n")
			_ = conn.Close()
			continue
		}

		sess := newSession(s, conn)
		if !s.track(sess) {
			_ = conn.Close()
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(sess)
			sess.run()
		}()
	}
}

// Close stops accepting connections, drops every session and waits for
// the handlers to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	err := s.listener.Close()
	for _, sess := range sessions {
		err = multierr.Append(err, sess.close())
	}
	s.wg.Wait()

	return err
}

// Addr returns the control address as host:port.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Host returns the listening IP.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Addr())
	p, _ := strconv.Atoi(port)
	return p
}

// Fs exposes the backing filesystem.
func (s *Server) Fs() afero.Fs { return s.fs }

// AddFile writes data at name, creating parent directories.
func (s *Server) AddFile(name string, data []byte) error {
	name = cleanPath(name)
	if err := s.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, name, data, 0o644)
}

// AddDir creates name and its parents.
func (s *Server) AddDir(name string) error {
	return s.fs.MkdirAll(cleanPath(name), 0o755)
}

// ReadFile returns the content stored at name.
func (s *Server) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(s.fs, cleanPath(name))
}

// Exists reports whether name is present, file or directory.
func (s *Server) Exists(name string) bool {
	_, err := s.fs.Stat(cleanPath(name))
	return err == nil
}

// Files returns the sorted entry names of dir.
func (s *Server) Files(dir string) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, cleanPath(dir))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Commands returns every command line received so far, passwords redacted.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

func (s *Server) record(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, line)
}

func (s *Server) shouldFail(verb string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures[verb] > 0 {
		s.failures[verb]--
		return true
	}
	return false
}

func (s *Server) track(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.sessions[sess] = struct{}{}
	return true
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sess)
}

func cleanPath(name string) string {
	return path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
