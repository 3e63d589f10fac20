package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avvvet/game-services/internal/comm"
	"github.com/avvvet/game-services/internal/gamesvc/apperror"
	"github.com/avvvet/game-services/internal/gamesvc/models"
	"github.com/avvvet/game-services/internal/gamesvc/service"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

type Broker struct {
	Conn        *nats.Conn
	GameService *service.GameService
}

// NewBroker returns a broker without a game service so it can be handed to
// the service as its event publisher; set GameService before subscribing.
func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{
		Conn: nc,
	}
}

// handles game commands coming from the socket service
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	req := comm.Request{}
	var reply comm.Reply
	if err := json.Unmarshal(msgNat.Data, &req); err != nil {
		log.Errorf("Error nats message %s", err)
		reply = fail(apperror.New(apperror.ValidationError, "Malformed request."))
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		reply = b.dispatch(ctx, req)
	}

	if msgNat.Reply == "" {
		return
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}
	if err := msgNat.Respond(payload); err != nil {
		log.Errorf("Error responding to %s request: %s", req.Type, err)
	}
}

func (b *Broker) dispatch(ctx context.Context, req comm.Request) comm.Reply {
	caller, _ := models.ParseIdentity(req.Caller)

	switch req.Type {
	case comm.CreateGame:
		var payload models.GamePayload
		if err := decode(req.Data, &payload); err != nil {
			return fail(err)
		}
		return result(b.GameService.Create(ctx, caller, payload))
	case comm.UpdateGame:
		var payload models.GamePayload
		if err := decode(req.Data, &payload); err != nil {
			return fail(err)
		}
		return result(b.GameService.Update(ctx, caller, req.GameId, payload))
	case comm.GetGame:
		return result(b.GameService.Get(ctx, req.GameId))
	case comm.ListGames:
		return result(b.GameService.List(ctx))
	case comm.AddMember:
		var m comm.MemberRequest
		if err := decode(req.Data, &m); err != nil {
			return fail(err)
		}
		member, err := models.ParseIdentity(m.Member)
		if err != nil {
			return fail(apperror.New(apperror.ValidationError, "A valid member identity is required."))
		}
		return result(b.GameService.AddMember(ctx, caller, req.GameId, member))
	case comm.DeleteGame:
		return result(b.GameService.Delete(ctx, caller, req.GameId))
	case comm.SendMessage:
		var payload models.MessagePayload
		if err := decode(req.Data, &payload); err != nil {
			return fail(err)
		}
		return result(b.GameService.SendMessage(ctx, caller, req.GameId, payload))
	case comm.ListMessages:
		return result(b.GameService.ListMessages(ctx, caller, req.GameId))
	case comm.DeleteMessage:
		return result(b.GameService.DeleteMessage(ctx, caller, req.GameId, req.MessageId))
	case comm.SubscribeGame:
		return result(b.GameService.Subscribe(ctx, caller, req.GameId))
	default:
		log.Errorf("Unknown request type %q", req.Type)
		return fail(apperror.New(apperror.ValidationError, "Unknown request type "+req.Type+"."))
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return apperror.New(apperror.ValidationError, "Request data is required.")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperror.New(apperror.ValidationError, "Malformed request data.")
	}
	return nil
}

func result[T any](v T, err error) comm.Reply {
	if err != nil {
		return fail(err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fail(apperror.Wrap(apperror.StorageFailure, "Failed to encode reply", err))
	}
	return comm.Reply{Ok: true, Data: data}
}

func fail(err error) comm.Reply {
	kind := apperror.KindOf(err)
	if kind == apperror.StorageFailure {
		log.Errorf("request failed: %v", err)
	}
	return comm.Reply{Error: &comm.ReplyError{Kind: string(kind), Message: apperror.MessageOf(err)}}
}

// consume game commands, load balanced across instances in queueGroup
func (b *Broker) QueueSubscribe(topic, queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// Publish sends payload on topic. It lets the broker act as the game
// service's event publisher.
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
