// Package ldmerr defines the closed set of error kinds the LDM decoder and
// resolver can produce. It mirrors the GQuark/GEnum error domain of the
// original libldm (LDM_ERROR_INTERNAL, _IO, _NOT_LDM, _INVALID,
// _INCONSISTENT, _NOTSUPPORTED, _MISSING_DISK), ported to a typed Go error.
package ldmerr

import "fmt"

// Kind is a closed, caller-observable error category.
type Kind int

const (
	// Internal indicates a decoder invariant was violated, e.g. a var-int
	// length byte exceeding the target integer width.
	Internal Kind = iota
	// Io indicates a read/stat/ioctl failure from the host.
	Io
	// NotLdm indicates the device is readable but carries no LDM signature.
	NotLdm
	// Invalid indicates structural corruption in the on-disk metadata.
	Invalid
	// Inconsistent indicates a newly added disk disagrees with its group's
	// committed sequence number.
	Inconsistent
	// NotSupported indicates an unknown VBLK revision or an unsupported
	// volume/component shape.
	NotSupported
	// MissingDisk indicates a disk required to materialise a volume is
	// absent and cannot be substituted.
	MissingDisk
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal"
	case Io:
		return "io"
	case NotLdm:
		return "not_ldm"
	case Invalid:
		return "invalid"
	case Inconsistent:
		return "inconsistent"
	case NotSupported:
		return "notsupported"
	case MissingDisk:
		return "missing-disk"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every fallible call in the
// ldm packages.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that carries a lower-level cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether the first *Error found along err's Unwrap chain has the
// given kind. Causes wrapped inside that *Error are not examined.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
