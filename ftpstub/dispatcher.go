package ftpstub

import "strings"

// handleCommand routes one control line to its handler.
func (sess *session) handleCommand(command string) {
	cmd, args, _ := strings.Cut(command, " ")
	cmd = strings.ToUpper(cmd)
	args = strings.TrimSpace(args)

	if sess.server.shouldFail(cmd) {
		sess.closeDataConnection()
		sess.sendResponse(451, "Requested action aborted: local error in processing")
		return
	}

	switch cmd {
	// Connection commands
	case "USER":
		sess.handleUSER(args)
	case "PASS":
		sess.handlePASS(args)
	case "QUIT":
		sess.handleQUIT()
	case "SYST":
		sess.handleSYST()
	case "FEAT":
		sess.handleFEAT()
	case "OPTS":
		sess.handleOPTS(args)
	case "TYPE":
		sess.handleTYPE(args)
	case "NOOP":
		sess.sendResponse(200, "NOOP command successful")

	// Directory commands
	case "PWD", "XPWD":
		sess.handlePWD()
	case "CWD", "XCWD":
		sess.handleCWD(args)
	case "CDUP", "XCUP":
		sess.handleCDUP()

	// Data connection commands
	case "PASV":
		sess.handlePASV()
	case "EPSV":
		sess.handleEPSV()

	// File transfer commands
	case "NLST":
		sess.handleNLST(args)
	case "LIST":
		sess.handleLIST(args)
	case "RETR":
		sess.handleRETR(args)
	case "STOR":
		sess.handleSTOR(args)

	// File management commands
	case "SIZE":
		sess.handleSIZE(args)
	case "MKD", "XMKD":
		sess.handleMKD(args)
	case "RMD", "XRMD":
		sess.handleRMD(args)
	case "DELE":
		sess.handleDELE(args)
	case "RNFR":
		sess.handleRNFR(args)
	case "RNTO":
		sess.handleRNTO(args)

	default:
		sess.sendResponse(502, "Command not implemented")
	}
}
