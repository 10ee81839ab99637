package errors

// ErrorCode identifies a kind of failure. Its user-facing text lives in the
// message table.
type ErrorCode string

// Severity says whether a failure ends the operation that raised it. The zero
// value means unset.
type Severity uint8

const (
	SeverityWarning Severity = iota + 1
	SeverityFatal
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "fatal"
}

// Error is a coded error. A wrapped cause stays reachable through Unwrap.
type Error interface {
	error
	Code() ErrorCode
	Severity() Severity
	WithMessage(msg string) Error
	WithData(data any) Error
	Unwrap() error
}

// Factory creates coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
