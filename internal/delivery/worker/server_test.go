package worker

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lavra/config"
	"lavra/internal/delivery/worker/handler"
	"lavra/internal/domain/service"
	"lavra/internal/infra/pubsub"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEcho(t *testing.T) (*echo.Echo, *miniredis.Miniredis, *bytes.Buffer) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	cfg := &config.Config{PubSub: &config.PubSubConfig{Provider: "local"}}

	e := newEcho(ServerParams{
		Cfg:         cfg,
		Logger:      logger,
		Redis:       client,
		PushHandler: handler.NewPushHandler(handler.PushHandlerParams{Config: cfg, Logger: logger}),
	})

	return e, mr, &logs
}

func TestHealthCheck(t *testing.T) {
	e, mr, _ := newTestEcho(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mr.Close()

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func pushBody(t *testing.T, data []byte, attrs map[string]string) *bytes.Reader {
	t.Helper()

	var msg pubsub.PushEnvelope
	msg.Message.Data = base64.StdEncoding.EncodeToString(data)
	msg.Message.Attributes = attrs
	msg.Message.MessageID = "m-1"

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	return bytes.NewReader(body)
}

func TestPush_AccountEvent(t *testing.T) {
	e, _, logs := newTestEcho(t)

	event, err := json.Marshal(service.AccountEvent{
		Type:       service.EventUserRegistered,
		UserID:     "u-1",
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/push", pushBody(t, event, map[string]string{"request_id": "req-9"}))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "user.registered")
	assert.Contains(t, logs.String(), "request_id=req-9")
}

func TestPush_UnknownEventIsAcknowledged(t *testing.T) {
	e, _, logs := newTestEcho(t)

	req := httptest.NewRequest(http.MethodPost, "/push", pushBody(t, []byte(`{"type":"user.exploded"}`), nil))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "Ignoring unknown account event")
}

func TestPush_MalformedPayload(t *testing.T) {
	e, _, _ := newTestEcho(t)

	tests := map[string]io.Reader{
		"not json":       bytes.NewReader([]byte("{")),
		"bad base64":     bytes.NewReader([]byte(`{"message":{"data":"%%%"}}`)),
		"event not json": pushBody(t, []byte("nope"), nil),
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/push", body)
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
