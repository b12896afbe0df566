package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ingestTimeout bounds the persistence work triggered by a single live event
// so one slow write cannot stall a client's read loop indefinitely.
const ingestTimeout = 5 * time.Second

// Hub fans live session events out to every socket attached to the same
// session. Ingestion failures are logged and dropped; the submitter never
// receives a negative acknowledgement.
type Hub struct {
	rooms      map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex

	sessions *SessionService
}

type Client struct {
	hub       *Hub
	socket    *websocket.Conn
	send      chan []byte
	sessionID uint
	userID    uint
}

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// answerPayload is the wire form of one competitor answer. Multi-select
// submissions arrive as a list and are joined with commas before they enter
// the ingestion pipeline.
type answerPayload struct {
	QuestionID string   `json:"questionId"`
	Answer     []string `json:"answer"`
}

type answerBroadcast struct {
	UserID     uint      `json:"userId"`
	QuestionID string    `json:"questionId"`
	Question   string    `json:"questionText"`
	Status     string    `json:"status"`
	Answer     string    `json:"answer"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewHub(sessions *SessionService) *Hub {
	return &Hub{
		rooms:      make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sessions:   sessions,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			room, ok := h.rooms[client.sessionID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.sessionID] = room
			}
			room[client] = true
			h.mutex.Unlock()
			log.Printf("client registered: session %d, user %d", client.sessionID, client.userID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if room, ok := h.rooms[client.sessionID]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
					if len(room) == 0 {
						delete(h.rooms, client.sessionID)
					}
				}
			}
			h.mutex.Unlock()
			log.Printf("client unregistered: session %d, user %d", client.sessionID, client.userID)
		}
	}
}

// BroadcastToSession sends one event to every socket in the session's room.
// Clients whose send buffer is full are dropped from the room.
func (h *Hub) BroadcastToSession(sessionID uint, messageType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("error marshaling %s payload: %v", messageType, err)
		return
	}
	data, err := json.Marshal(Message{Type: messageType, Payload: raw})
	if err != nil {
		log.Printf("error marshaling %s message: %v", messageType, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	room := h.rooms[sessionID]
	for client := range room {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(room, client)
		}
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, sessionID, userID uint) *Client {
	client := &Client{
		hub:       h,
		socket:    conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
		userID:    userID,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("error unmarshaling message: %v", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "joinSession":
		c.hub.BroadcastToSession(c.sessionID, fmt.Sprintf("newUser-%d", c.sessionID), map[string]interface{}{
			"userId": c.userID,
		})

	case "newAnswer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("malformed answer from user %d in session %d: %v", c.userID, c.sessionID, err)
			return
		}
		c.ingestAnswer(payload)

	case "submit_session":
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()
		if err := c.hub.sessions.Finish(ctx, c.sessionID, c.userID); err != nil {
			log.Printf("failed to finish session %d for user %d: %v", c.sessionID, c.userID, err)
			return
		}
		c.hub.BroadcastToSession(c.sessionID, "answer_pack", map[string]interface{}{
			"userId":    c.userID,
			"sessionId": c.sessionID,
		})

	default:
		log.Printf("unknown message type %q from user %d in session %d", msg.Type, c.userID, c.sessionID)
	}
}

func (c *Client) ingestAnswer(payload answerPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	value := strings.Join(payload.Answer, ",")
	err := c.hub.sessions.RecordAnswer(ctx, AnswerEvent{
		SessionID:  c.sessionID,
		UserID:     c.userID,
		QuestionID: payload.QuestionID,
		Value:      value,
	})
	if err != nil {
		log.Printf("dropping answer from user %d in session %d: %v", c.userID, c.sessionID, err)
		return
	}

	questionText := ""
	if question, err := c.hub.sessions.Question(ctx, c.sessionID, payload.QuestionID); err == nil {
		questionText = question.Text
	}

	c.hub.BroadcastToSession(c.sessionID, fmt.Sprintf("newAnswer-%d", c.sessionID), answerBroadcast{
		UserID:     c.userID,
		QuestionID: payload.QuestionID,
		Question:   questionText,
		Status:     "success",
		Answer:     value,
		Timestamp:  time.Now(),
	})
}
