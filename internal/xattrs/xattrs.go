// Package xattrs wraps github.com/pkg/xattr with the catfs extended
// attribute namespace conventions: the "user." prefix required on
// Linux/BSD, and a single reserved key under which catfs stores the
// source fingerprint.
package xattrs

import (
	"errors"
	"syscall"

	"github.com/pkg/xattr"
)

// Prefix is prepended to catfs attribute names when stored on disk.
// Unixes other than Linux/*BSD may need a different convention; catfs
// only targets the "user." namespace.
const Prefix = "user."

// FingerprintKey is the attribute catfs stores the source fingerprint
// digest under (spec.md section 6: "Persisted state").
const FingerprintKey = Prefix + "catfs.src_chksum"

// IsNotSupported reports whether err indicates the filesystem has no
// xattr support at all (as opposed to the attribute simply being
// absent, which IsNotFound reports).
func IsNotSupported(err error) bool {
	var xerr *xattr.Error
	if !errors.As(err, &xerr) {
		return false
	}
	return errors.Is(xerr.Err, syscall.ENOTSUP) || errors.Is(xerr.Err, syscall.EINVAL)
}

// IsNotFound reports whether err indicates the attribute does not
// exist on an otherwise xattr-capable file.
func IsNotFound(err error) bool {
	var xerr *xattr.Error
	if !errors.As(err, &xerr) {
		return false
	}
	return errors.Is(xerr.Err, xattr.ENOATTR)
}

// Get reads the named attribute (without the Prefix) from path.
func Get(path, name string) ([]byte, error) {
	return xattr.LGet(path, Prefix+name)
}

// List returns every extended attribute name set on path, exactly as
// stored (including namespace prefixes such as "user."). Callers that
// need to hide catfs's own reserved attribute compare against
// FingerprintKey, which carries the same Prefix this returns names with.
func List(path string) ([]string, error) {
	return xattr.LList(path)
}

// Set writes the named attribute (without the Prefix) on path.
func Set(path, name string, value []byte) error {
	return xattr.LSet(path, Prefix+name, value)
}

// Remove deletes the named attribute (without the Prefix) on path.
func Remove(path, name string) error {
	err := xattr.LRemove(path, Prefix+name)
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}

// Probe checks whether xattrs are usable on the filesystem containing
// path by attempting a harmless round trip. Used at mount time: per
// spec.md section 7, XattrUnsupported is a fatal configuration error.
func Probe(path string) error {
	const probeKey = "catfs.probe"
	err := Set(path, probeKey, []byte("1"))
	if err != nil {
		return err
	}
	return Remove(path, probeKey)
}
