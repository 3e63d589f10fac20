package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/avvvet/game-services/internal/comm"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var ErrUnknownSocket = errors.New("unknown socket")

// Forwarder sends a game command to the game service.
type Forwarder interface {
	Request(ctx context.Context, req comm.Request) (comm.Reply, error)
}

// client is one websocket connection. gorilla connections allow a single
// concurrent writer, so every write goes through mu.
type client struct {
	conn   *websocket.Conn
	caller string // verified token subject
	mu     sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	roomMap sync.Map // to keep track of game room with socketId
	Broker  Forwarder
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(ctx context.Context, socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "subscribe":
		s.handleSubscribe(ctx, socketId, message)
	case "unsubscribe":
		s.roomMap.Delete(socketId)
		s.reply(socketId, "unsubscribe-response", message.GameId, comm.Reply{Ok: true})
	default:
		s.forward(ctx, socketId, message)
	}
}

// handleSubscribe joins the socket to a game room once the game service
// confirms the caller is a member.
func (s *Ws) handleSubscribe(ctx context.Context, socketId string, msg *comm.WSMessage) {
	var payload comm.Subscription
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.GameId == "" {
		s.SendError(socketId, "subscribe requires a game_id")
		return
	}

	c, ok := s.getClient(socketId)
	if !ok {
		return
	}

	reply, err := s.Broker.Request(ctx, comm.Request{
		Type:   comm.SubscribeGame,
		Caller: c.caller,
		GameId: payload.GameId,
	})
	if err != nil {
		log.Errorf("Failed to check subscription of socket %s: %v", socketId, err)
		s.SendError(socketId, "game service unavailable")
		return
	}

	if reply.Ok {
		s.StoreRoom(socketId, payload.GameId)
		log.Infof("socket %s subscribed to game %s", socketId, payload.GameId)
		reply.Data = nil
	}
	s.reply(socketId, "subscribe-response", payload.GameId, reply)
}

// forward relays a game command stamped with the socket's caller and
// writes the game service's reply back to the socket.
func (s *Ws) forward(ctx context.Context, socketId string, msg *comm.WSMessage) {
	c, ok := s.getClient(socketId)
	if !ok {
		return
	}

	req := comm.Request{
		Type:      msg.Type,
		Caller:    c.caller,
		GameId:    msg.GameId,
		MessageId: msg.Id,
		Data:      msg.Data,
	}

	reply, err := s.Broker.Request(ctx, req)
	if err != nil {
		log.Errorf("Failed to forward %s from socket %s: %v", msg.Type, socketId, err)
		s.SendError(socketId, "game service unavailable")
		return
	}

	s.reply(socketId, msg.Type+"-response", msg.GameId, reply)
}

func (s *Ws) reply(socketId, msgType, gameId string, reply comm.Reply) {
	data, err := json.Marshal(reply)
	if err != nil {
		log.Errorf("Failed to marshal %s: %v", msgType, err)
		return
	}
	if err := s.Send(socketId, &comm.WSMessage{Type: msgType, Data: data, GameId: gameId}); err != nil {
		log.Errorf("Failed to send %s to socket %s: %v", msgType, socketId, err)
	}
}

// SendError sends an error frame back to the client
func (s *Ws) SendError(socketId, errorMsg string) {
	data, _ := json.Marshal(map[string]string{"error": errorMsg})
	if err := s.Send(socketId, &comm.WSMessage{Type: "error", Data: data}); err != nil {
		log.Errorf("Failed to send error message to client: %v", err)
	}
}

// Send writes m to the socket. It is the broker's delivery function.
func (s *Ws) Send(socketId string, m *comm.WSMessage) error {
	c, ok := s.getClient(socketId)
	if !ok {
		return ErrUnknownSocket
	}
	return c.writeJSON(m)
}

func (s *Ws) StoreConnection(socketId, caller string, conn *websocket.Conn) {
	s.connMap.Store(socketId, &client{conn: conn, caller: caller})
}

func (s *Ws) getClient(socketId string) (*client, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*client), true
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.roomMap.Delete(socketId)
}

func (s *Ws) StoreRoom(socketId string, roomId string) {
	s.roomMap.Store(socketId, roomId)
}

func (s *Ws) GetRoom(socketId string) (string, bool) {
	room, ok := s.roomMap.Load(socketId)
	if !ok {
		return "", false
	}
	return room.(string), true
}

func (s *Ws) GetRoomSockets(roomId string) ([]string, bool) {
	var sockets []string
	found := false

	s.roomMap.Range(func(key, value interface{}) bool {
		if value.(string) == roomId {
			sockets = append(sockets, key.(string))
			found = true
		}
		return true // continue iterating
	})

	return sockets, found
}
