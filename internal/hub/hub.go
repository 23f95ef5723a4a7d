package hub

import (
	"log"

	"github.com/google/uuid"
	"tumorboard/internal/fanout"
	"tumorboard/internal/room"
	"tumorboard/pkg/types"
)

// Hub is the ingress surface of the collaboration core: the transport layer
// delivers join/leave/cursor/annotation/leader events here, the store
// updates canonical state and notifies the fan-out.
// ARCHITECTURAL DISCOVERY: The hub validates payload shape at the boundary;
// past this point the core assumes well-formed input and no operation can
// fail hard - the worst case is a safe no-op
type Hub struct {
	store    *room.Store
	registry *fanout.Registry
}

// NewHub creates the ingress facade over store and registry.
func NewHub(store *room.Store, registry *fanout.Registry) *Hub {
	return &Hub{
		store:    store,
		registry: registry,
	}
}

// Join adds a user to a room (creating it as needed) and returns the room
// snapshot after the join. The first user to join an empty room becomes
// leader regardless of their leader flag.
func (h *Hub) Join(roomID string, user types.User) (*types.RoomSnapshot, error) {
	if !types.IsValidRoomID(roomID) {
		return nil, types.ErrInvalidRoomID
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	snap := h.store.AddUser(roomID, user)
	log.Printf("User joined: room=%s user=%s specialty=%s leader=%s",
		roomID, user.ID, user.Specialty, snap.LeaderID)
	return snap, nil
}

// Leave removes a user from a room, reassigning leadership or deleting the
// room per the empty-room rule. Unknown rooms and users are no-ops.
func (h *Hub) Leave(roomID, userID string) {
	if _, ok := h.store.RemoveUser(roomID, userID); !ok {
		log.Printf("User left, room gone: room=%s user=%s", roomID, userID)
		return
	}
	log.Printf("User left: room=%s user=%s", roomID, userID)
}

// Cursor records a cursor update and broadcasts it to everyone but the
// originator. Updates against unknown rooms are dropped.
func (h *Hub) Cursor(roomID string, cursor types.CursorPosition) error {
	if !types.IsValidUserID(cursor.UserID) {
		return types.ErrInvalidUserID
	}
	if !types.IsValidPlane(cursor.Plane) {
		return types.ErrInvalidPlane
	}
	h.store.UpdateCursor(roomID, cursor)
	return nil
}

// AnnotationAdd stores a new annotation and broadcasts it. A server-side ID
// is assigned when the client did not provide one.
// FUNCTIONAL DISCOVERY: Server-generated IDs prevent collisions between
// clients that race to annotate the same slice
func (h *Hub) AnnotationAdd(roomID string, annotation types.Annotation) (string, error) {
	if err := annotation.Validate(); err != nil {
		return "", err
	}
	if annotation.ID == "" {
		annotation.ID = uuid.New().String()
	}
	h.store.AddAnnotation(roomID, annotation)
	return annotation.ID, nil
}

// AnnotationRemove deletes an annotation and broadcasts the removal.
// Removing a nonexistent annotation is a benign no-op.
func (h *Hub) AnnotationRemove(roomID, annotationID string) {
	h.store.RemoveAnnotation(roomID, annotationID)
}

// SetLeader assigns room leadership unconditionally (the "follow me"
// action) and broadcasts the change. Membership of the target is not
// validated; the store flags non-member assignments in the log.
func (h *Hub) SetLeader(roomID, userID string) {
	h.store.SetLeader(roomID, userID)
}

// ViewChange relays a plane/slice change; the leader's view is also
// recorded so late joiners sync to it.
func (h *Hub) ViewChange(roomID, userID string, view types.ViewState) error {
	if !types.IsValidPlane(view.Plane) {
		return types.ErrInvalidPlane
	}
	h.store.UpdateView(roomID, userID, view)
	return nil
}

// RoomState is the query surface: a point-in-time snapshot, usable without
// a live subscription (e.g. on initial page load).
func (h *Hub) RoomState(roomID string) (*types.RoomSnapshot, bool) {
	return h.store.Snapshot(roomID)
}

// Subscribe registers a listener for a room's broadcasts.
func (h *Hub) Subscribe(roomID string, sub *fanout.Subscriber) error {
	return h.registry.Subscribe(roomID, sub)
}

// Unsubscribe removes a listener; effective immediately for future
// broadcasts.
func (h *Hub) Unsubscribe(roomID string, sub *fanout.Subscriber) {
	h.registry.Unsubscribe(roomID, sub)
}
