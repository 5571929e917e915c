package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Respondent message types
const (
	MsgProgressUpdate      MessageType = "progress_update"
	MsgFollowUp            MessageType = "follow_up"
	MsgAssessmentCompleted MessageType = "assessment_completed"
	MsgError               MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections. Each assessment has at most one
// respondent connection; admins monitor every assessment.
type Hub struct {
	assessmentConns map[string]*Connection // assessmentID -> conn
	adminConns      map[*Connection]bool

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	AssessmentID string // Empty for admin connections
	IsAdmin      bool
	Send         chan []byte
	Hub          *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	AssessmentID string // Empty with ToAdmins means all admins
	ToAdmins     bool
	Message      *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		assessmentConns: make(map[string]*Connection),
		adminConns:      make(map[*Connection]bool),
		register:        make(chan *Connection),
		unregister:      make(chan *Connection),
		broadcast:       make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsAdmin {
				h.adminConns[conn] = true
				log.Printf("Admin monitor connected")
			} else {
				h.assessmentConns[conn.AssessmentID] = conn
				log.Printf("Respondent connected to assessment %s", conn.AssessmentID)
			}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conn.IsAdmin {
				if h.adminConns[conn] {
					delete(h.adminConns, conn)
					close(conn.Send)
					log.Printf("Admin monitor disconnected")
				}
			} else {
				if existing, ok := h.assessmentConns[conn.AssessmentID]; ok && existing == conn {
					delete(h.assessmentConns, conn.AssessmentID)
					close(conn.Send)
					log.Printf("Respondent disconnected from assessment %s", conn.AssessmentID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)

			if msg.ToAdmins {
				for conn := range h.adminConns {
					select {
					case conn.Send <- data:
					default:
						// Drop message if buffer full
					}
				}
			} else if conn, ok := h.assessmentConns[msg.AssessmentID]; ok {
				select {
				case conn.Send <- data:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToAssessment sends a message to the assessment's respondent
// (implements service.Broadcaster)
func (h *Hub) BroadcastToAssessment(assessmentID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		AssessmentID: assessmentID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// BroadcastToAdmins sends a message to every admin monitor
func (h *Hub) BroadcastToAdmins(msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		ToAdmins: true,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// DisconnectAssessment drops the respondent connection for an assessment
func (h *Hub) DisconnectAssessment(assessmentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.assessmentConns[assessmentID]; ok {
		delete(h.assessmentConns, assessmentID)
		close(conn.Send)
	}
}
