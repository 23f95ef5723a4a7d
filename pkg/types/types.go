package types

import (
	"encoding/json"
	"time"
)

// Plane identifies one of the three anatomical viewing planes
// ARCHITECTURAL DISCOVERY: Plane constants defined exactly as the imaging
// frontend names them to avoid translation at the transport boundary
type Plane string

const (
	PlaneAxial    Plane = "axial"
	PlaneSagittal Plane = "sagittal"
	PlaneCoronal  Plane = "coronal"
)

// ShapeKind identifies the geometry of an annotation
type ShapeKind string

const (
	ShapePoint     ShapeKind = "point"
	ShapeLine      ShapeKind = "line"
	ShapeCircle    ShapeKind = "circle"
	ShapeRectangle ShapeKind = "rectangle"
	ShapeText      ShapeKind = "text"
	ShapeArrow     ShapeKind = "arrow"
)

// User represents one specialist present in a review room
// FUNCTIONAL DISCOVERY: User is immutable after join - created on join,
// removed on leave, never mutated in between. This keeps snapshot copies
// cheap and race-free.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	Color     string    `json:"color"`
	Leader    bool      `json:"leader"`
	JoinedAt  time.Time `json:"joined_at"`
}

// CursorPosition is a user's ephemeral pointer position on an imaging plane
// FUNCTIONAL DISCOVERY: Replaced wholesale on every update, never merged.
// Entries expire implicitly once now - UpdatedAt reaches the staleness
// window; expiry is decided at read time, there is no background timer.
type CursorPosition struct {
	UserID    string    `json:"user_id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Plane     Plane     `json:"plane"`
	Slice     int       `json:"slice"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Annotation is a session-lifetime markup object placed by a user
// ARCHITECTURAL DISCOVERY: Payload kept as raw JSON tagged by Shape rather
// than a struct-per-shape union - the core never interprets the geometry,
// it only stores and relays it, so decoding here would be wasted work
type Annotation struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Shape     ShapeKind       `json:"shape"`
	Plane     Plane           `json:"plane"`
	Slice     int             `json:"slice"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Color     string          `json:"color"`
	CreatedAt time.Time       `json:"created_at"`
}

// ViewState is the plane/slice a leader is currently looking at
type ViewState struct {
	Plane Plane `json:"plane"`
	Slice int   `json:"slice"`
}

// RoomSnapshot is a point-in-time copy of a room's shared state
// FUNCTIONAL DISCOVERY: Snapshots are value copies taken under the room
// lock; callers can read them freely without further synchronization
type RoomSnapshot struct {
	RoomID      string           `json:"room_id"`
	Users       []User           `json:"users"`
	Cursors     []CursorPosition `json:"cursors"`
	Annotations []Annotation     `json:"annotations"`
	LeaderID    string           `json:"leader_id,omitempty"`
	View        *ViewState       `json:"view,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Case describes one imaging case available for collaborative review
// ARCHITECTURAL DISCOVERY: Case metadata is reference data persisted in
// SQLite; the review session itself (the room) is in-memory only
type Case struct {
	ID             string    `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Modality       string    `json:"modality" db:"modality"`
	Description    string    `json:"description" db:"description"`
	AxialSlices    int       `json:"axial_slices" db:"axial_slices"`
	SagittalSlices int       `json:"sagittal_slices" db:"sagittal_slices"`
	CoronalSlices  int       `json:"coronal_slices" db:"coronal_slices"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
