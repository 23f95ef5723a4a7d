package types

import "time"

// ARCHITECTURAL DISCOVERY: Message kind constants defined exactly as the
// viewer clients expect them so a message can be applied without a
// follow-up query
const (
	MessageKindJoin             = "join"
	MessageKindLeave            = "leave"
	MessageKindUsers            = "users"
	MessageKindCursor           = "cursor"
	MessageKindCursors          = "cursors"
	MessageKindViewChange       = "view_change"
	MessageKindAnnotationAdd    = "annotation_add"
	MessageKindAnnotationRemove = "annotation_remove"
	MessageKindAnnotations      = "annotations"
	MessageKindFollow           = "follow"
	MessageKindLeaderChange     = "leader_change"
	MessageKindPing             = "ping"
	MessageKindPong             = "pong"
	MessageKindSync             = "sync"
)

// Message is the single wire envelope for all room-state-change events
// FUNCTIONAL DISCOVERY: One struct with omitempty variant fields keeps the
// fan-out queue homogeneous and lets cursor coalescing inspect Kind and
// UserID without a type switch
type Message struct {
	Kind         string           `json:"kind"`
	RoomID       string           `json:"room_id"`
	UserID       string           `json:"user_id,omitempty"`
	User         *User            `json:"user,omitempty"`
	Users        []User           `json:"users,omitempty"`
	Cursor       *CursorPosition  `json:"cursor,omitempty"`
	Cursors      []CursorPosition `json:"cursors,omitempty"`
	Annotation   *Annotation      `json:"annotation,omitempty"`
	AnnotationID string           `json:"annotation_id,omitempty"`
	Annotations  []Annotation     `json:"annotations,omitempty"`
	LeaderID     string           `json:"leader_id,omitempty"`
	View         *ViewState       `json:"view,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Coalescible reports whether a pending copy of this message may be
// replaced by a newer one from the same user while queued.
// FUNCTIONAL DISCOVERY: Only cursor updates are coalescible - membership
// and annotation events must reach every subscriber, while a fast cursor
// stream only needs its latest value by the time a slow subscriber drains
func (m *Message) Coalescible() bool {
	return m.Kind == MessageKindCursor
}

// IsValidMessageKind checks if the message kind is one of the allowed kinds
func IsValidMessageKind(kind string) bool {
	switch kind {
	case MessageKindJoin,
		MessageKindLeave,
		MessageKindUsers,
		MessageKindCursor,
		MessageKindCursors,
		MessageKindViewChange,
		MessageKindAnnotationAdd,
		MessageKindAnnotationRemove,
		MessageKindAnnotations,
		MessageKindFollow,
		MessageKindLeaderChange,
		MessageKindPing,
		MessageKindPong,
		MessageKindSync:
		return true
	default:
		return false
	}
}
