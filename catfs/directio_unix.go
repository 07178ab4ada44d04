//go:build linux

package catfs

import "golang.org/x/sys/unix"

// directIOSupported mirrors the teacher's backend/local/directio_unix.go:
// O_DIRECT is only meaningful (and only defined) on Linux.
const directIOSupported = true

func directIOFlag() int { return unix.O_DIRECT }
