package catfs

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// sourceHandle is a typed wrapper around an open file descriptor on
// the source tree: position-independent pread/pwrite, truncate, and
// fsync, plus open-flag translation (spec.md section 2, "Source
// handle"). Grounded on the teacher's backend/local handling of
// direct I/O and fadvise around a plain *os.File.
type sourceHandle struct {
	f    *os.File
	path string
}

// openFlags translates the subset of open intentions catfs cares
// about (read, write, create, truncate, direct-io) into os.OpenFile
// flags. create-exclusive bypasses validation per spec.md section 4.3.
type openFlags struct {
	Read      bool
	Write     bool
	Create    bool
	Exclusive bool
	Truncate  bool
	Direct    bool
}

// OpenFlags is the exported name adapters (e.g. package fuseadapter)
// use to build open intents for Core.Open; fields are identical to the
// internal openFlags this aliases.
type OpenFlags = openFlags

func (o openFlags) osFlags() int {
	var f int
	switch {
	case o.Read && o.Write:
		f = os.O_RDWR
	case o.Write:
		f = os.O_WRONLY
	default:
		f = os.O_RDONLY
	}
	if o.Create {
		f |= os.O_CREATE
	}
	if o.Exclusive {
		f |= os.O_EXCL
	}
	if o.Truncate {
		f |= os.O_TRUNC
	}
	return f
}

// openSource opens the source-side file for an operation.
func openSource(path string, flags openFlags) (*sourceHandle, error) {
	osFlags := flags.osFlags()
	if flags.Direct && directIOSupported {
		osFlags |= directIOFlag()
	}
	f, err := os.OpenFile(path, osFlags, 0o644)
	if err != nil {
		return nil, newErr(KindSourceIO, "open", path, err)
	}
	return &sourceHandle{f: f, path: path}, nil
}

func (h *sourceHandle) ReadAt(p []byte, off int64) (int, error) {
	n, err := h.f.ReadAt(p, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, newErr(KindSourceIO, "read", h.path, err)
	}
	return n, err
}

func (h *sourceHandle) WriteAt(p []byte, off int64) (int, error) {
	n, err := h.f.WriteAt(p, off)
	if err != nil {
		if isENOTSUP(err) {
			return n, newErr(KindNonSequentialWriteUnsupported, "write", h.path, err)
		}
		if isENOSPC(err) {
			return n, newErr(KindCacheSpaceExhausted, "write", h.path, err)
		}
		return n, newErr(KindSourceIO, "write", h.path, err)
	}
	return n, nil
}

func (h *sourceHandle) Truncate(size int64) error {
	if err := h.f.Truncate(size); err != nil {
		return newErr(KindSourceIO, "truncate", h.path, err)
	}
	return nil
}

func (h *sourceHandle) Sync() error {
	if err := h.f.Sync(); err != nil {
		return newErr(KindSourceIO, "fsync", h.path, err)
	}
	return nil
}

func (h *sourceHandle) Stat() (os.FileInfo, error) {
	fi, err := h.f.Stat()
	if err != nil {
		return nil, newErr(KindSourceIO, "stat", h.path, err)
	}
	return fi, nil
}

func (h *sourceHandle) Close() error {
	if err := h.f.Close(); err != nil {
		return newErr(KindSourceIO, "close", h.path, err)
	}
	return nil
}

// isENOTSUP detects the sentinel "this write shape is not supported"
// error some object-store gateways surface for non-sequential writes
// (spec.md section 4.3 / section 9).
func isENOTSUP(err error) bool {
	return errorIsErrno(err, unix.ENOTSUP) || errorIsErrno(err, unix.EOPNOTSUPP)
}

func isENOSPC(err error) bool {
	return errorIsErrno(err, unix.ENOSPC)
}
