package leads

import "errors"

// ErrMissingClientID is returned when no tenant is in the request context.
var ErrMissingClientID = errors.New("leads: client id is required")
