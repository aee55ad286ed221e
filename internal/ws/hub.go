package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"karaoke_party/internal/models"
	"karaoke_party/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Типы исходящих событий комнаты
const (
	EventPlaylistUpdated  = "playlist_updated"
	EventPlaybackStarted  = "playback_started"
	EventPlaybackPaused   = "playback_paused"
	EventPresenceUpdated  = "presence_updated"
	EventSkipTimerStarted = "skip_timer_started"
	EventPartyClosed      = "party_closed"
)

// WSMessage — событие, рассылаемое всем клиентам комнаты
type WSMessage struct {
	EventType string      `json:"event_type"`
	Party     string      `json:"party"`
	Data      interface{} `json:"data,omitempty"`
}

// inboundMessage — сообщение от клиента. Мутации идут через HTTP,
// по сокету клиенты шлют только heartbeat.
type inboundMessage struct {
	Action string `json:"action"`
	Name   string `json:"name"`
}

// Hub хранит подключения клиентов, сгруппированные по коду вечеринки.
type Hub struct {
	clients map[string]map[*Client]bool
	// Канал для регистрации нового клиента.
	register chan *Client
	// Канал для удаления клиента.
	unregister chan *Client
	// Канал для трансляции событий по конкретной вечеринке.
	broadcast chan WSMessage
	// Mutex для защиты карты клиентов.
	mu sync.RWMutex
}

// Создаем глобальный экземпляр хаба.
var HubInstance = NewHub()

// NewHub создает новый Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan WSMessage),
	}
}

// Run запускает цикл обработки каналов хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.PartyCode] == nil {
				h.clients[client.PartyCode] = make(map[*Client]bool)
			}
			h.clients[client.PartyCode][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.PartyCode]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.PartyCode)
					}
				}
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			payload, err := json.Marshal(message)
			if err != nil {
				log.Println("Ошибка сериализации WS события:", err)
				continue
			}
			// Отставшие клиенты отключаются прямо здесь, поэтому
			// блокировка на запись, а не на чтение
			h.mu.Lock()
			if clients, ok := h.clients[message.Party]; ok {
				for client := range clients {
					select {
					case client.Send <- payload:
					default:
						close(client.Send)
						delete(clients, client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastWSMessage рассылает событие всем клиентам комнаты
func (h *Hub) BroadcastWSMessage(msg WSMessage) {
	h.broadcast <- msg
}

// Client представляет одно подключение через WebSocket.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	PartyCode string
	PartyID   uint
	Name      string // Имя участника, под которым обновляется присутствие
}

// readPump читает сообщения из WebSocket-соединения: heartbeat-ы участника
// и разрыв соединения. Heartbeat без ответа, ошибки просто рвут соединение.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}
		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			// Неизвестные сообщения отбрасываются на границе
			continue
		}
		if msg.Action == "heartbeat" {
			name := msg.Name
			if name == "" {
				name = c.Name
			}
			if name != "" && c.PartyID != 0 {
				TouchPresence(c.PartyID, c.PartyCode, name)
			}
		}
	}
}

// writePump отправляет сообщения клиенту из канала Send.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Канал закрыт.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			// Отправка ping-сообщения для поддержания соединения.
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Настраиваем апгрейдер для WebSocket с разрешением всех источников.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PartyWebSocketHandler обновляет соединение до WebSocket и регистрирует
// клиента в комнате вечеринки. Сразу после подключения клиенту отправляется
// полный снимок состояния, чтобы он не действовал вслепую.
// URL-пример: /api/parties/{code}/ws?name=Иван
func PartyWebSocketHandler(c *gin.Context) {
	code := c.Param("code")

	var party models.Party
	if err := storage.DB.Where("code = ?", code).First(&party).Error; err != nil {
		http.Error(c.Writer, "Вечеринка не найдена", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		http.Error(c.Writer, "Ошибка обновления до WebSocket", http.StatusInternalServerError)
		return
	}

	client := &Client{
		Hub:       HubInstance,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		PartyCode: code,
		PartyID:   party.ID,
		Name:      c.Query("name"),
	}
	HubInstance.register <- client

	go client.writePump()

	// Снимок текущей истины — до любых последующих событий
	if snapshot, err := BuildPlaylistMessage(code); err == nil {
		if payload, err := json.Marshal(snapshot); err == nil {
			client.Send <- payload
		}
	}

	client.readPump()
}
