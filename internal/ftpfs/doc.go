// Package ftpfs implements a file-storage adapter on top of FTP.
//
// FTP moves whole files and little else, so FileSystem emulates the richer
// operations. Append and Copy download the object into a local scratch file,
// modify it there, and upload it again. Move, Delete and MkDir are best-effort
// transport calls followed by a check of the final remote state.
//
// One FileSystem owns one Session. The session connects and logs in lazily on
// the first operation and is reused until Close. It never reconnects: once the
// control connection is lost, every later operation fails with ErrConnection
// and the caller decides whether to build a new FileSystem.
//
// A FileSystem is not safe for concurrent use. Callers that need parallel
// transfers create one FileSystem per goroutine; their scratch files never
// collide because staged names are globally unique.
package ftpfs
