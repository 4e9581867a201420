package model

import "errors"

// File-level failures abort an ingestion or import; per-row failures are
// never reported through these.
var (
	ErrMalformedInput       = errors.New("malformed input")
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrNoValidRecords       = errors.New("no valid records")
	ErrInvalidConfiguration = errors.New("invalid configuration")

	ErrLayerNotFound   = errors.New("layer not found")
	ErrRecordNotFound  = errors.New("record not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ErrorCode maps err onto the user-facing taxonomy name.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedInput):
		return "MalformedInput"
	case errors.Is(err, ErrUnsupportedFormat):
		return "UnsupportedFormat"
	case errors.Is(err, ErrNoValidRecords):
		return "NoValidRecords"
	case errors.Is(err, ErrInvalidConfiguration):
		return "InvalidConfiguration"
	case errors.Is(err, ErrLayerNotFound):
		return "LayerNotFound"
	case errors.Is(err, ErrRecordNotFound):
		return "RecordNotFound"
	case errors.Is(err, ErrInvalidArgument):
		return "InvalidArgument"
	default:
		return "Internal"
	}
}
