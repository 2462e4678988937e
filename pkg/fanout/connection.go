package fanout

import (
	"time"

	"github.com/expr-lang/expr/vm"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const sendBufferSize = 64

const writeTimeout = 10 * time.Second
const pongTimeout = 60 * time.Second
const pingInterval = 30 * time.Second

// Connection is one websocket subscriber. The monotonic reached sets & the
// newest capture times it has seen are kept per vehicle, so a tenant
// dashboard tracks each of its vehicles independently. That view state is
// only ever touched by the hub's dispatch goroutine.
type Connection struct {
	hub *Hub

	socket *websocket.Conn
	send   chan []byte

	channel string

	filter          *vm.Program
	selectedStopRef string

	lastCaptured map[string]time.Time
	reachedStops map[string][]string
}

func newConnection(hub *Hub, socket *websocket.Conn, channel string, filter *vm.Program, selectedStopRef string) *Connection {
	return &Connection{
		hub: hub,

		socket: socket,
		send:   make(chan []byte, sendBufferSize),

		channel: channel,

		filter:          filter,
		selectedStopRef: selectedStopRef,

		lastCaptured: map[string]time.Time{},
		reachedStops: map[string][]string{},
	}
}

func (connection *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		connection.socket.Close()
	}()

	for {
		select {
		case message, ok := <-connection.send:
			connection.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				connection.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := connection.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			connection.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := connection.socket.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

func (connection *Connection) readPump() {
	defer func() {
		connection.hub.unregister(connection)
		connection.socket.Close()
	}()

	connection.socket.SetReadLimit(512)
	connection.socket.SetReadDeadline(time.Now().Add(pongTimeout))
	connection.socket.SetPongHandler(func(string) error {
		connection.socket.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	// Subscribers only listen, anything they send is discarded
	for {
		if _, _, err := connection.socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("Websocket closed unexpectedly")
			}
			break
		}
	}
}
