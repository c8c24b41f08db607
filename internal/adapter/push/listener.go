// Package push receives dispatch events over the websocket channel.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/codec"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
	ws "github.com/Temutjin2k/ride-hail-client/pkg/wsHub"
)

const DefaultReconnectDelay = 2 * time.Second

type EventRouter interface {
	Route(ctx context.Context, events models.PollEvents) error
}

// TokenSource returns the bearer token to present, empty for none.
type TokenSource func() string

// Listener keeps a websocket to the dispatch server open while its context
// lives and routes every frame like a refresh answer.
type Listener struct {
	url    string
	token  TokenSource
	router EventRouter
	delay  time.Duration
	log    logger.Logger
}

func NewListener(url string, token TokenSource, router EventRouter, reconnectDelay time.Duration, log logger.Logger) *Listener {
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &Listener{
		url:    url,
		token:  token,
		router: router,
		delay:  reconnectDelay,
		log:    log,
	}
}

// Listen returns ctx.Err() once ctx is done. Dial and read failures only
// trigger a reconnect after the delay.
func (l *Listener) Listen(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionPushListen)

	for {
		if err := l.session(ctx); err != nil && ctx.Err() == nil {
			l.log.Warn(ctx, "push channel lost, reconnecting", "reason", err.Error(), "delay", l.delay.String())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.delay):
		}
	}
}

func (l *Listener) session(ctx context.Context) error {
	header := http.Header{}
	if l.token != nil {
		if token := l.token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	raw, err := ws.Dial(ctx, l.url, header)
	if err != nil {
		return err
	}

	conn := ws.NewConn(ctx, string(types.PassengerMode), raw)
	defer conn.Close()

	l.log.Info(ctx, "push channel connected", "url", l.url)

	err = conn.Listen(func(frame []byte) error {
		l.handle(ctx, frame)
		return nil
	})
	if errors.Is(err, ws.ErrConnClosed) {
		return nil
	}
	return err
}

// handle routes one frame. Bad frames are logged and skipped.
func (l *Listener) handle(ctx context.Context, frame []byte) {
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(frame, &body); err != nil {
		metrics.RecordEvent("push_frame", "malformed")
		l.log.Warn(ctx, "malformed push frame", "reason", err.Error())
		return
	}

	events, err := codec.DecodeMessages(body.Message)
	if err != nil {
		metrics.RecordEvent("push_frame", "malformed")
		l.log.Warn(ctx, "push frame has malformed sections", "reason", err.Error())
	}

	if err := l.router.Route(ctx, events); err != nil {
		l.log.Warn(wrap.ErrorCtx(ctx, err), "pushed reply rejected", "reason", err.Error())
	}
}
