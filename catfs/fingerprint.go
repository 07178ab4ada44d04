package catfs

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/kahing/catfs/internal/xattrs"
)

// Digest is a source fingerprint: a cryptographic digest over the
// canonical string built from a SourceFile's entity tag (if any), its
// mtime, and its size (spec.md section 4.1). Two CacheFiles with equal
// Digests are guaranteed to be byte-identical copies of the same
// SourceFile generation.
//
// sha512 is stdlib, not a third-party library: the corpus has no
// general-purpose cryptographic hashing package for this use case (see
// DESIGN.md), and crypto/sha512 is the idiomatic choice for a fixed
// 512-bit digest.
type Digest [sha512.Size]byte

// String renders the digest as the lowercase hex form stored in the xattr
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest parses the hex form stored in the fingerprint xattr
func ParseDigest(s string) (Digest, bool) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(d) {
		return Digest{}, false
	}
	copy(d[:], b)
	return d, true
}

// computeFingerprint builds the canonical string and hashes it.
// Canonical form: "<entity_tag>\n<mtime_unix_seconds>\n<size>\n"
func computeFingerprint(a attrs) Digest {
	canon := fmt.Sprintf("%s\n%d\n%d\n", a.EntityTag, a.ModTime.Unix(), a.Size)
	return sha512.Sum512([]byte(canon))
}

// Validation is the result of comparing a CacheFile's stored
// fingerprint against the SourceFile's current one.
type Validation int

const (
	// Fresh means the stored fingerprint matches the current source
	Fresh Validation = iota
	// Stale means a fingerprint is stored but no longer matches
	Stale
	// Absent means no fingerprint is stored at all
	Absent
)

func (v Validation) String() string {
	switch v {
	case Fresh:
		return "Fresh"
	case Stale:
		return "Stale"
	default:
		return "Absent"
	}
}

// Validator computes and stores source fingerprints as an extended
// attribute on cache files, and decides freshness on open (spec.md
// section 4.1).
type Validator struct{}

// Fingerprint computes the expected digest for the given source attrs.
func (Validator) Fingerprint(a attrs) Digest {
	return computeFingerprint(a)
}

// Validate reads the fingerprint xattr off cachePath and compares it
// against expected.
func (Validator) Validate(cachePath string, expected Digest) (Validation, error) {
	raw, err := xattrs.Get(cachePath, fingerprintAttr)
	if err != nil {
		if xattrs.IsNotFound(err) {
			return Absent, nil
		}
		if xattrs.IsNotSupported(err) {
			return Absent, newErr(KindXattrUnsupported, "validate", cachePath, err)
		}
		return Absent, newErr(KindCacheIO, "validate", cachePath, err)
	}
	got, ok := ParseDigest(string(raw))
	if !ok || got != expected {
		return Stale, nil
	}
	return Fresh, nil
}

// Stamp writes the fingerprint xattr on cachePath. Per spec.md section
// 4.2, this must be the LAST write a page-in performs: a cache file
// without a final stamp is, by definition, not Fresh and will be
// repaged on next open.
func (Validator) Stamp(cachePath string, d Digest) error {
	return xattrs.Set(cachePath, fingerprintAttr, []byte(d.String()))
}

// fingerprintAttr is the unprefixed attribute name; xattrs.Get/Set add
// the "user." prefix.
const fingerprintAttr = "catfs.src_chksum"
