package ftpstub

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const dataAcceptTimeout = 10 * time.Second

// session is the state of one control connection.
type session struct {
	server *Server
	conn   net.Conn
	log    *zap.Logger

	mu            sync.Mutex
	currentDir    string
	username      string
	authenticated bool
	renameFrom    string
	dataListener  net.Listener
	quit          bool
}

func newSession(server *Server, conn net.Conn) *session {
	return &session{
		server:     server,
		conn:       conn,
		log:        server.log.With(zap.String("client", conn.RemoteAddr().String())),
		currentDir: "/",
	}
}

func (sess *session) run() {
	defer sess.closeDataConnection()
	defer sess.conn.Close()

	sess.log.Debug("client connected")
	sess.sendResponse(220, "ftpstub ready")

	scanner := bufio.NewScanner(sess.conn)
	for !sess.quit && scanner.Scan() {
		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}

		logged := command
		if strings.HasPrefix(strings.ToUpper(command), "PASS ") {
			logged = "PASS [REDACTED]"
		}
		sess.server.record(logged)
		sess.log.Debug("command", zap.String("line", logged))

		sess.handleCommand(command)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		sess.log.Debug("connection error", zap.Error(err))
	}
	sess.log.Debug("client disconnected")
}

func (sess *session) close() error {
	if err := sess.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (sess *session) sendResponse(code int, message string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if _, err := fmt.Fprintf(sess.conn, "%d %s\r\n", code, message); err != nil {
		sess.log.Debug("send response", zap.Int("code", code), zap.Error(err))
	}
}

func (sess *session) sendMultiline(code int, lines ...string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	var b strings.Builder
	for i, line := range lines {
		if i == len(lines)-1 {
			fmt.Fprintf(&b, "%d %s\r\n", code, line)
			break
		}
		if i == 0 {
			fmt.Fprintf(&b, "%d-%s\r\n", code, line)
			continue
		}
		fmt.Fprintf(&b, " %s\r\n", line)
	}
	if _, err := sess.conn.Write([]byte(b.String())); err != nil {
		sess.log.Debug("send response", zap.Int("code", code), zap.Error(err))
	}
}

// resolvePath turns an FTP argument into an absolute path of the backing fs.
func (sess *session) resolvePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = path.Join(sess.currentDir, p)
	}
	return cleanPath(p)
}

func (sess *session) openPassiveListener() (*net.TCPAddr, error) {
	sess.closeDataConnection()

	host, _, err := net.SplitHostPort(sess.conn.LocalAddr().String())
	if err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp4", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, err
	}
	sess.dataListener = listener
	return listener.Addr().(*net.TCPAddr), nil
}

func (sess *session) openDataConnection() (net.Conn, error) {
	if sess.dataListener == nil {
		return nil, errors.New("no passive listener available")
	}
	if tcp, ok := sess.dataListener.(*net.TCPListener); ok {
		_ = tcp.SetDeadline(time.Now().Add(dataAcceptTimeout))
	}

	conn, err := sess.dataListener.Accept()
	if err != nil {
		return nil, fmt.Errorf("data connection accept failed: %w", err)
	}
	return conn, nil
}

func (sess *session) closeDataConnection() {
	if sess.dataListener != nil {
		_ = sess.dataListener.Close()
		sess.dataListener = nil
	}
}
