package kds

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/pos-terminal/utils"
)

const (
	// writeWait membatasi satu penulisan ke client
	writeWait = 10 * time.Second
	sendQueue = 64
)

var ErrClientTooSlow = errors.New("client send queue is full")

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	role string
	send chan []byte
}

// Hub menampung semua client terminal (kasir, dapur, admin) untuk broadcast.
// Setiap client punya antrian kirim dan satu goroutine penulis, jadi Publish
// tidak pernah menunggu jaringan. Client yang antriannya penuh diputus.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

// Register -> menambahkan connection ke set dengan role
func (h *Hub) Register(conn *websocket.Conn, role string) {
	cl := &client{conn: conn, role: role, send: make(chan []byte, sendQueue)}

	h.mutex.Lock()
	h.clients[conn] = cl
	h.mutex.Unlock()

	go h.writePump(cl)
}

// Unregister -> melepaskan connection
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	h.dropLocked(conn)
	h.mutex.Unlock()
}

func (h *Hub) dropLocked(conn *websocket.Conn) {
	cl, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(cl.send)
	conn.Close()
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Publish broadcasts an event to every connected client.
func (h *Hub) Publish(event string, data interface{}) {
	h.broadcast(Message{Event: event, Data: data})
}

// SendTo queues a message for one client only. Unknown connections are
// ignored.
func (h *Hub) SendTo(conn *websocket.Conn, event string, data interface{}) error {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return err
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	cl, ok := h.clients[conn]
	if !ok {
		return nil
	}
	if !h.enqueueLocked(cl, payload) {
		return ErrClientTooSlow
	}
	return nil
}

// broadcast -> fungsi internal untuk mengirim pesan
func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("error marshaling hub message")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	utils.InfoLogger.Debugf("broadcasting %s to %d clients", msg.Event, len(h.clients))
	for _, cl := range h.clients {
		h.enqueueLocked(cl, data)
	}
}

func (h *Hub) enqueueLocked(cl *client, payload []byte) bool {
	select {
	case cl.send <- payload:
		return true
	default:
		utils.ErrorLogger.WithField("role", cl.role).Warn("dropping slow websocket client")
		h.dropLocked(cl.conn)
		return false
	}
}

func (h *Hub) writePump(cl *client) {
	for payload := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.WithField("role", cl.role).WithError(err).Warn("error sending message to client")
			h.Unregister(cl.conn)
			return
		}
	}
}
