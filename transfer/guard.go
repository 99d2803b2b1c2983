package transfer

import (
	"go.uber.org/zap"
)

// WithConn runs fn against conn and closes conn on every exit path. An error
// from fn is logged with the remote address and a stack trace, then returned
// unchanged. A panic is logged, conn is closed and the panic continues.
func WithConn(conn *Conn, fn func(*Conn) error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		conn.log.Error("ftp session panicked",
			zap.String("address", conn.Addr()),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
		if cerr := conn.Close(); cerr != nil {
			conn.log.Warn("close ftp connection", zap.String("address", conn.Addr()), zap.Error(cerr))
		}
		panic(r)
	}()

	if err = fn(conn); err != nil {
		conn.log.Error("ftp session failed",
			zap.String("address", conn.Addr()),
			zap.Error(err),
			zap.Stack("stack"),
		)
		if cerr := conn.Close(); cerr != nil {
			conn.log.Warn("close ftp connection", zap.String("address", conn.Addr()), zap.Error(cerr))
		}
		return err
	}

	return conn.Close()
}
