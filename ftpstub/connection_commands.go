package ftpstub

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

func (sess *session) handleUSER(name string) {
	sess.authenticated = false
	sess.username = name

	if name == "" {
		sess.sendResponse(501, "Syntax error in parameters")
		return
	}
	// Unknown names are rejected at PASS.
	sess.sendResponse(331, fmt.Sprintf("User %s OK. Password required", name))
}

func (sess *session) handlePASS(password string) {
	if sess.username == "" {
		sess.sendResponse(503, "Login with USER first")
		return
	}

	if !sess.server.users.authenticate(sess.username, password) {
		sess.log.Debug("login rejected", zap.String("user", sess.username))
		sess.sendResponse(530, "Login incorrect")
		return
	}

	sess.authenticated = true
	sess.log.Debug("login accepted", zap.String("user", sess.username))
	sess.sendResponse(230, "Login successful")
}

func (sess *session) handleQUIT() {
	sess.sendResponse(221, "Goodbye")
	sess.quit = true
}

func (sess *session) handleSYST() {
	sess.sendResponse(215, "UNIX Type: L8")
}

func (sess *session) handleFEAT() {
	sess.sendMultiline(211, "Features:", "PASV", "EPSV", "SIZE", "UTF8", "End")
}

func (sess *session) handleOPTS(args string) {
	if strings.EqualFold(args, "UTF8 ON") {
		sess.sendResponse(200, "UTF8 mode enabled")
		return
	}
	sess.sendResponse(501, "Option not understood")
}

func (sess *session) handleTYPE(typeStr string) {
	sess.withAuth(func() {
		switch strings.ToUpper(typeStr) {
		case "A", "A N":
			sess.sendResponse(200, "Switching to ASCII mode")
		case "I", "L 8":
			sess.sendResponse(200, "Switching to Binary mode")
		default:
			sess.sendResponse(504, "Command not implemented for that parameter")
		}
	})
}
