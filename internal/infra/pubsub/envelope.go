package pubsub

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"lavra/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const attrRequestID = "request_id"

// PushEnvelope is the JSON body a Pub/Sub push subscription POSTs to its endpoint.
// The local publisher produces it and the worker's push handler consumes it.
type PushEnvelope struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// NewPushEnvelope wraps an account event the way a push subscription delivers it.
func NewPushEnvelope(event *service.AccountEvent, subscription string, publishedAt time.Time) (*PushEnvelope, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	envelope := &PushEnvelope{Subscription: subscription}
	envelope.Message.Data = base64.StdEncoding.EncodeToString(data)
	envelope.Message.Attributes = eventAttributes(event)
	envelope.Message.MessageID = uuid.NewString()
	envelope.Message.PublishTime = publishedAt.UTC().Format(time.RFC3339)

	return envelope, nil
}

// AccountEvent decodes the event carried in the message data.
func (e *PushEnvelope) AccountEvent() (*service.AccountEvent, error) {
	data, err := base64.StdEncoding.DecodeString(e.Message.Data)
	if err != nil {
		return nil, errors.Wrap(err, "decode message data")
	}

	var event service.AccountEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, errors.Wrap(err, "parse account event")
	}

	return &event, nil
}

// RequestID returns the originating request id, preferring the message attribute.
func (e *PushEnvelope) RequestID(event *service.AccountEvent) string {
	if requestID := e.Message.Attributes[attrRequestID]; requestID != "" {
		return requestID
	}
	if event != nil {
		return event.RequestID
	}

	return ""
}

// eventAttributes lets subscribers filter on type and user without decoding the payload.
func eventAttributes(event *service.AccountEvent) map[string]string {
	attributes := map[string]string{
		"type":    event.Type,
		"user_id": event.UserID,
	}
	if event.RequestID != "" {
		attributes[attrRequestID] = event.RequestID
	}

	return attributes
}
