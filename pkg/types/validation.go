package types

import "regexp"

// FUNCTIONAL DISCOVERY: Regex compiled once at package initialization
// for better performance in high-frequency validation scenarios
var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidUserID checks if a user ID meets format requirements
func IsValidUserID(userID string) bool {
	if len(userID) < 1 || len(userID) > 50 {
		return false
	}
	return idRegex.MatchString(userID)
}

// IsValidRoomID checks if a room (case) ID meets format requirements
// FUNCTIONAL DISCOVERY: Room IDs are case IDs; the 100-character limit
// accommodates TCIA-style case identifiers without truncation
func IsValidRoomID(roomID string) bool {
	if len(roomID) < 1 || len(roomID) > 100 {
		return false
	}
	return idRegex.MatchString(roomID)
}

// IsValidPlane checks if the plane is one of the three anatomical planes
func IsValidPlane(plane Plane) bool {
	switch plane {
	case PlaneAxial, PlaneSagittal, PlaneCoronal:
		return true
	default:
		return false
	}
}

// IsValidShapeKind checks if the shape kind is one of the allowed kinds
// ARCHITECTURAL DISCOVERY: Shape kind validated at the ingress boundary
// but the shape payload itself is not checked against the kind - geometry
// is assumed well-formed by the caller
func IsValidShapeKind(kind ShapeKind) bool {
	switch kind {
	case ShapePoint, ShapeLine, ShapeCircle, ShapeRectangle, ShapeText, ShapeArrow:
		return true
	default:
		return false
	}
}

// Validate ensures the user meets all requirements before joining a room
func (u *User) Validate() error {
	if !IsValidUserID(u.ID) {
		return ErrInvalidUserID
	}
	if len(u.Name) < 1 || len(u.Name) > 100 {
		return ErrInvalidUserName
	}
	return nil
}

// Validate ensures the annotation is well-formed enough to store and relay
func (a *Annotation) Validate() error {
	if !IsValidUserID(a.UserID) {
		return ErrInvalidUserID
	}
	if !IsValidShapeKind(a.Shape) {
		return ErrInvalidShapeKind
	}
	if !IsValidPlane(a.Plane) {
		return ErrInvalidPlane
	}
	return nil
}

// Validate ensures the case metadata meets all requirements
func (c *Case) Validate() error {
	if len(c.Title) < 1 || len(c.Title) > 200 {
		return ErrInvalidCaseTitle
	}
	if len(c.Modality) < 1 || len(c.Modality) > 20 {
		return ErrInvalidModality
	}
	return nil
}
