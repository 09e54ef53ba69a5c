package domain

import "errors"

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrUnreadableFormat = errors.New("unreadable format")
	ErrAuth             = errors.New("storage access denied")
	ErrInconsistentData = errors.New("inconsistent data")
	ErrTimeout          = errors.New("timeout")
)

// Error kind names used in responses, logs and metric labels.
const (
	KindInvalidArgument  = "InvalidArgument"
	KindNotFound         = "NotFound"
	KindUnreadableFormat = "UnreadableFormat"
	KindAuth             = "AuthError"
	KindInconsistentData = "InconsistentData"
	KindTimeout          = "Timeout"
	KindInternal         = "Internal"
)

// KindOf classifies err by the first sentinel it wraps.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnreadableFormat):
		return KindUnreadableFormat
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrInconsistentData):
		return KindInconsistentData
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	default:
		return KindInternal
	}
}
