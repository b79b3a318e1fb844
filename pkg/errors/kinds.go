package errors

// Kind codes shared across every icecore package, so a caller can branch on
// IsKind(err, KindConflict) without knowing which package raised it.
var (
	KindNotFound      = MustNewCode("icecore.not_found")
	KindInvalidFormat = MustNewCode("icecore.invalid_format")
	KindConflict      = MustNewCode("icecore.conflict")
	KindNotSupported  = MustNewCode("icecore.not_supported")
	KindConversion    = MustNewCode("icecore.conversion")
	KindIO            = MustNewCode("icecore.io")
)

// IsKind reports whether err is an *Error (directly or via Unwrap) whose
// Code equals kind.
func IsKind(err error, kind Code) bool {
	for err != nil {
		if ie, ok := err.(*Error); ok {
			if ie.Code.Equals(kind) {
				return true
			}
			err = ie.Unwrap()
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
