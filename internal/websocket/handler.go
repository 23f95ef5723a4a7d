package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"tumorboard/internal/config"
	"tumorboard/internal/fanout"
	"tumorboard/internal/hub"
	"tumorboard/pkg/interfaces"
	"tumorboard/pkg/types"
)

// WebSocket upgrader with production-ready settings
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// FUNCTIONAL DISCOVERY: Allow all origins for development;
		// production deployments sit behind the hospital reverse proxy
		// which enforces origin policy
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler upgrades viewer connections and bridges them into the
// collaboration core: subscribe to the fan-out, join the room, then pump
// client events into the hub until the socket dies.
type Handler struct {
	collab *hub.Hub
	cases  interfaces.CaseStore
	cfg    *config.WebSocketConfig
}

// NewHandler creates a WebSocket handler with dependency injection.
func NewHandler(collab *hub.Hub, cases interfaces.CaseStore, cfg *config.WebSocketConfig) *Handler {
	if cfg == nil {
		cfg = config.DefaultConfig().WebSocket
	}
	return &Handler{
		collab: collab,
		cases:  cases,
		cfg:    cfg,
	}
}

// HandleWebSocket handles WebSocket connection requests.
// ARCHITECTURAL DISCOVERY: Multi-stage validation (parameters -> case ->
// upgrade -> subscribe -> join) ensures malformed ingress is rejected at
// the boundary and never reaches the core
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	roomID := query.Get("room")
	userID := query.Get("user_id")
	name := query.Get("name")

	if roomID == "" || userID == "" || name == "" {
		http.Error(w, "Missing required query parameters: room, user_id, name", http.StatusBadRequest)
		return
	}
	if !types.IsValidRoomID(roomID) {
		http.Error(w, "Invalid room format", http.StatusBadRequest)
		return
	}
	if !types.IsValidUserID(userID) {
		http.Error(w, "Invalid user_id format", http.StatusBadRequest)
		return
	}

	// Room IDs are case IDs; a review can only start for a registered case.
	if h.cases != nil {
		if _, err := h.cases.GetCase(r.Context(), roomID); err != nil {
			if err == interfaces.ErrCaseNotFound {
				http.Error(w, "Unknown case", http.StatusNotFound)
			} else {
				http.Error(w, "Case lookup failed", http.StatusInternalServerError)
			}
			return
		}
	}

	user := types.User{
		ID:        userID,
		Name:      name,
		Specialty: query.Get("specialty"),
		Color:     query.Get("color"),
		Leader:    query.Get("leader") == "true",
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn, h.cfg.WriteTimeout)
	wsConn.SetCredentials(userID, roomID)

	// Subscribe before joining so the connection cannot miss its own
	// room's events between the join broadcast and registration.
	sub := fanout.NewSubscriber(userID, func(msg *types.Message) error {
		return wsConn.WriteJSON(msg)
	})
	if err := h.collab.Subscribe(roomID, sub); err != nil {
		log.Printf("Subscribe failed: room=%s user=%s: %v", roomID, userID, err)
		_ = wsConn.Close()
		return
	}

	snap, err := h.collab.Join(roomID, user)
	if err != nil {
		log.Printf("Join rejected: room=%s user=%s: %v", roomID, userID, err)
		h.collab.Unsubscribe(roomID, sub)
		_ = wsConn.Close()
		return
	}

	h.sendRoomState(wsConn, snap)

	go h.pingLoop(wsConn)
	go h.handleConnection(wsConn, sub)
}

// sendRoomState replays the full membership, cursor, and annotation lists
// so a (re)connecting client can self-heal without a follow-up query.
func (h *Handler) sendRoomState(conn *Connection, snap *types.RoomSnapshot) {
	now := time.Now()
	msgs := []*types.Message{
		{Kind: types.MessageKindUsers, RoomID: snap.RoomID, Users: snap.Users, LeaderID: snap.LeaderID, View: snap.View, Timestamp: now},
		{Kind: types.MessageKindCursors, RoomID: snap.RoomID, Cursors: snap.Cursors, Timestamp: now},
		{Kind: types.MessageKindAnnotations, RoomID: snap.RoomID, Annotations: snap.Annotations, Timestamp: now},
	}
	for _, msg := range msgs {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("Failed to send room state: room=%s user=%s: %v",
				snap.RoomID, conn.GetUserID(), err)
			return
		}
	}
}

// pingLoop keeps the socket warm with application-level pings.
func (h *Handler) pingLoop(conn *Connection) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			msg := &types.Message{
				Kind:      types.MessageKindPing,
				RoomID:    conn.GetRoomID(),
				Timestamp: time.Now(),
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-conn.ctx.Done():
			return
		}
	}
}

// handleConnection runs the read loop until the socket dies, then
// unsubscribes and leaves.
// FUNCTIONAL DISCOVERY: Unsubscribe before leave - the departing viewer
// must not receive its own leave broadcast through a dying socket
func (h *Handler) handleConnection(conn *Connection, sub *fanout.Subscriber) {
	roomID := conn.GetRoomID()
	userID := conn.GetUserID()

	defer func() {
		h.collab.Unsubscribe(roomID, sub)
		h.collab.Leave(roomID, userID)
		_ = conn.Close()
		log.Printf("Connection closed: room=%s user=%s", roomID, userID)
	}()

	for {
		msg, err := conn.ReadMessage(h.cfg.ReadTimeout)
		if err != nil {
			return
		}
		h.dispatch(conn, msg)
	}
}

// dispatch routes one client message into the core.
func (h *Handler) dispatch(conn *Connection, msg *types.Message) {
	roomID := conn.GetRoomID()
	userID := conn.GetUserID()

	switch msg.Kind {
	case types.MessageKindCursor:
		if msg.Cursor == nil {
			return
		}
		cursor := *msg.Cursor
		cursor.UserID = userID // server-attributed, client cannot spoof
		if err := h.collab.Cursor(roomID, cursor); err != nil {
			log.Printf("Cursor rejected: room=%s user=%s: %v", roomID, userID, err)
		}

	case types.MessageKindAnnotationAdd:
		if msg.Annotation == nil {
			return
		}
		annotation := *msg.Annotation
		annotation.UserID = userID
		if _, err := h.collab.AnnotationAdd(roomID, annotation); err != nil {
			log.Printf("Annotation rejected: room=%s user=%s: %v", roomID, userID, err)
		}

	case types.MessageKindAnnotationRemove:
		if msg.AnnotationID == "" {
			return
		}
		h.collab.AnnotationRemove(roomID, msg.AnnotationID)

	case types.MessageKindFollow:
		// "Follow me": the sender requests leadership unless they name
		// another target explicitly.
		target := msg.UserID
		if target == "" {
			target = userID
		}
		h.collab.SetLeader(roomID, target)

	case types.MessageKindViewChange:
		if msg.View == nil {
			return
		}
		if err := h.collab.ViewChange(roomID, userID, *msg.View); err != nil {
			log.Printf("View change rejected: room=%s user=%s: %v", roomID, userID, err)
		}

	case types.MessageKindPing:
		_ = conn.WriteJSON(&types.Message{
			Kind:      types.MessageKindPong,
			RoomID:    roomID,
			Timestamp: time.Now(),
		})

	case types.MessageKindPong:
		// Heartbeat reply; the read deadline reset is all we needed.

	case types.MessageKindSync:
		if snap, ok := h.collab.RoomState(roomID); ok {
			h.sendRoomState(conn, snap)
		}

	default:
		log.Printf("Unknown message kind from client: room=%s user=%s kind=%q",
			roomID, userID, msg.Kind)
	}
}
