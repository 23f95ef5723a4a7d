package types

import "errors"

// ARCHITECTURAL DISCOVERY: Specific error types enable proper error handling
// and user-friendly error messages throughout the system
var (
	ErrInvalidUserID    = errors.New("user ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidRoomID    = errors.New("room ID must be 1-100 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidUserName  = errors.New("user display name must be 1-100 characters")
	ErrInvalidPlane     = errors.New("plane must be one of: axial, sagittal, coronal")
	ErrInvalidShapeKind = errors.New("invalid annotation shape kind")
	ErrInvalidCaseTitle = errors.New("case title must be 1-200 characters")
	ErrInvalidModality  = errors.New("case modality must be 1-20 characters")
)
