package interfaces

import "errors"

// Common interface errors used across components
var ErrCaseNotFound = errors.New("case not found")
