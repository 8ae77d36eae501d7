// Package ws трансляция живых результатов анализа всем подключённым
// клиентам визуализации по WebSocket.
package ws

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
)

// Предупреждение в лог на каждые столько потерянных событий
const dropWarnEvery = 100

// Hub держит активных клиентов и рассылает им сообщения
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	dropped atomic.Int64
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run цикл обслуживания клиентов, запускается одной горутиной
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("WebSocket клиент подключён: %s", client.conn.RemoteAddr())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("WebSocket клиент отключён: %s", client.conn.RemoteAddr())

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает читать — отключаем, хаб не блокируем
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// RegisterClient регистрирует нового клиента
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// Broadcast рассылает типизированное событие всем клиентам
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	messageBytes, err := json.Marshal(map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		log.Printf("❌ Ошибка сериализации для broadcast: %v", err)
		return
	}

	select {
	case h.broadcast <- messageBytes:
	default:
		// Очередь рассылки переполнена: событие теряется со счётчиком, не молча
		if d := h.dropped.Add(1); d%dropWarnEvery == 1 {
			log.Printf("⚠️ Очередь рассылки WebSocket переполнена, потеряно событий: %d", d)
		}
	}
}

// Dropped сколько событий вытеснено из очереди рассылки
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// ClientCount количество подключённых клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
