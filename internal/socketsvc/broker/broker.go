package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/game-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Sender writes a frame to one socket.
type Sender func(socketId string, m *comm.WSMessage) error

type Broker struct {
	Conn           *nats.Conn
	Send           Sender
	GetRoomSockets func(string) ([]string, bool)
	Timeout        time.Duration
}

func NewBroker(conn *nats.Conn, send Sender, fncGetRoomSockets func(string) ([]string, bool), timeout time.Duration) *Broker {
	return &Broker{
		Conn:           conn,
		Send:           send,
		GetRoomSockets: fncGetRoomSockets,
		Timeout:        timeout,
	}
}

// consume game events
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// Request forwards a command to the game service and waits for its reply.
func (b *Broker) Request(ctx context.Context, req comm.Request) (comm.Reply, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return comm.Reply{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	msg, err := b.Conn.RequestWithContext(ctx, comm.RequestTopic, payload)
	if err != nil {
		return comm.Reply{}, fmt.Errorf("request %s: %w", req.Type, err)
	}

	var reply comm.Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return comm.Reply{}, fmt.Errorf("decode %s reply: %w", req.Type, err)
	}
	return reply, nil
}

// handleMessages receive events from game service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	event := comm.Event{}
	if err := json.Unmarshal(msgNats.Data, &event); err != nil {
		log.Errorf("Error %s", err)
		return
	}

	b.deliver(event)
}

// deliver writes the event to every socket subscribed to its game.
func (b *Broker) deliver(event comm.Event) {
	switch event.Type {
	case comm.GameCreated, comm.GameUpdated, comm.MemberAdded, comm.GameDeleted,
		comm.MessageSent, comm.MessageDeleted:
	default:
		log.Errorf("Unknown event %q", event.Type)
		return
	}

	sockets, ok := b.GetRoomSockets(event.GameId)
	if !ok {
		return
	}

	m := &comm.WSMessage{Type: event.Type, Data: event.Data, GameId: event.GameId}
	for _, socketId := range sockets {
		if err := b.Send(socketId, m); err != nil {
			log.Warnf("unable to deliver %s to socket %s: %v", event.Type, socketId, err)
		}
	}
}
