package catfs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PageBlockSize is the unit the Pager reads/writes the source in.
// spec.md section 4.2 calls out 128KiB-1MiB as typical; 1MiB balances
// syscall overhead against page-in latency for the first reader.
const PageBlockSize = 1 << 20 // 1 MiB

// FreeSpace expresses the governor's floor as either an absolute byte
// count or a percentage of the cache filesystem's total capacity
// (spec.md section 6, --free=<value>).
type FreeSpace struct {
	Bytes   uint64
	Percent float64
	IsPct   bool
}

// Floor returns the absolute byte floor given the cache filesystem's
// total capacity.
func (f FreeSpace) Floor(totalBytes uint64) uint64 {
	if !f.IsPct {
		return f.Bytes
	}
	return uint64(f.Percent / 100 * float64(totalBytes))
}

func (f FreeSpace) String() string {
	if f.IsPct {
		return fmt.Sprintf("%.2f%%", f.Percent)
	}
	return fmt.Sprintf("%d", f.Bytes)
}

// ParseFreeSpace parses the --free flag value: an integer followed by
// an optional K/M/G/T unit, or a percentage ending in %.
func ParseFreeSpace(s string) (FreeSpace, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FreeSpace{}, fmt.Errorf("empty --free value")
	}
	if strings.HasSuffix(s, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return FreeSpace{}, fmt.Errorf("invalid percentage %q: %w", s, err)
		}
		if pct < 0 || pct > 100 {
			return FreeSpace{}, fmt.Errorf("percentage %q out of range [0,100]", s)
		}
		return FreeSpace{Percent: pct, IsPct: true}, nil
	}
	unit := uint64(1)
	numPart := s
	if n := len(s); n > 0 {
		switch s[n-1] {
		case 'k', 'K':
			unit = 1 << 10
			numPart = s[:n-1]
		case 'm', 'M':
			unit = 1 << 20
			numPart = s[:n-1]
		case 'g', 'G':
			unit = 1 << 30
			numPart = s[:n-1]
		case 't', 'T':
			unit = 1 << 40
			numPart = s[:n-1]
		}
	}
	n, err := strconv.ParseUint(strings.TrimSpace(numPart), 10, 64)
	if err != nil {
		return FreeSpace{}, fmt.Errorf("invalid --free value %q: %w", s, err)
	}
	return FreeSpace{Bytes: n * unit}, nil
}

// Options configures a Core. Only SourceRoot, CacheRoot and Free are
// required; the rest have sane defaults applied by NewCore.
type Options struct {
	SourceRoot string
	CacheRoot  string

	// Free is the governor's free-space floor (spec.md section 4.4)
	Free FreeSpace

	// GovernorInterval is how often the governor samples free space in
	// the absence of an ENOSPC-triggered synchronous pass
	GovernorInterval time.Duration

	// UID/GID, when non-nil, override the ownership reported for
	// entries (forwarded mount options, spec.md section 6)
	UID *uint32
	GID *uint32

	// AllowOther mirrors the FUSE -o allow_other mount option; the
	// core does not interpret it itself, it is plumbed through to the
	// adapter at mount time.
	AllowOther bool

	// ExtraMountOptions carries any other -o key[=value] pairs
	// verbatim for the adapter to forward to the kernel.
	ExtraMountOptions []string
}

// DefaultOptions returns Options with every optional field filled in.
// Callers still need to set SourceRoot/CacheRoot/Free.
func DefaultOptions() Options {
	return Options{
		GovernorInterval: 5 * time.Second,
	}
}
