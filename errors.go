package zelastic

import "github.com/kailas-cloud/zelastic/internal/domain"

// Errors returned by Store and Container operations. Match them with errors.Is.
var (
	ErrNotFound         = domain.ErrNotFound
	ErrDuplicateKey     = domain.ErrDuplicateKey
	ErrInvalidIndexType = domain.ErrInvalidIndexType
	ErrInvalidName      = domain.ErrInvalidName
	ErrInvalidFilter    = domain.ErrInvalidFilter
	ErrIndexOutOfRange  = domain.ErrIndexOutOfRange
)
