package ftpstub

import "os"

func (sess *session) withAuth(handler func()) {
	if !sess.authenticated {
		sess.sendResponse(530, "Not logged in")
		return
	}
	handler()
}

func (sess *session) withValidParam(param string, handler func()) {
	if param == "" {
		sess.sendResponse(501, "Syntax error in parameters")
		return
	}
	handler()
}

func (sess *session) withExistingFile(name string, handler func(string, os.FileInfo)) {
	fullPath := sess.resolvePath(name)

	info, err := sess.server.fs.Stat(fullPath)
	if err != nil {
		sess.sendResponse(550, "File not found")
		return
	}
	if info.IsDir() {
		sess.sendResponse(550, "Not a regular file")
		return
	}

	handler(fullPath, info)
}

func (sess *session) withExistingDirectory(name string, handler func(string, os.FileInfo)) {
	fullPath := sess.resolvePath(name)

	info, err := sess.server.fs.Stat(fullPath)
	if err != nil {
		sess.sendResponse(550, "Directory not found")
		return
	}
	if !info.IsDir() {
		sess.sendResponse(550, "Not a directory")
		return
	}

	handler(fullPath, info)
}
