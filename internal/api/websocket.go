package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/terra-clan/build-directory/internal/controller"
	"github.com/terra-clan/build-directory/internal/metrics"
	"github.com/terra-clan/build-directory/internal/models"
	"github.com/terra-clan/build-directory/internal/render"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var errUnknownIntent = errors.New("unknown intent")

// ListingIntent is a user action sent by a listing front end
type ListingIntent struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
	Page  int    `json:"page,omitempty"`
	Query string `json:"query,omitempty"`
}

// ListingMessage is pushed to the front end: a rendered view, a URL change
// or an error about the last intent
type ListingMessage struct {
	Type  string              `json:"type"`
	View  *render.ListingView `json:"view,omitempty"`
	Query *string             `json:"query,omitempty"`
	Error *apiError           `json:"error,omitempty"`
}

// listingSession couples one websocket connection to one controller
type listingSession struct {
	id     string
	conn   *websocket.Conn
	ctl    *controller.Controller
	cat    *models.Catalog
	urls   chan string
	outbox chan ListingMessage
	log    *zap.Logger
}

func (s *Server) handleListingWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("failed to upgrade to websocket", zap.Error(err))
		return
	}

	sess := &listingSession{
		id:     uuid.NewString(),
		conn:   conn,
		cat:    s.catalog(),
		urls:   make(chan string, 1),
		outbox: make(chan ListingMessage, 8),
	}
	sess.log = s.log.With(zap.String("session_id", sess.id))
	sess.ctl = controller.New(s.fetcher,
		controller.WithLogger(sess.log),
		controller.WithNavigator(sess.navigate),
	)

	sess.run(r.URL.RawQuery)
}

func (sess *listingSession) run(rawQuery string) {
	metrics.ListingSessions.Inc()
	defer metrics.ListingSessions.Dec()
	sess.log.Info("listing session connected", zap.String("query", rawQuery))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views := sess.ctl.Subscribe()
	sess.ctl.Mount(rawQuery)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer sess.conn.Close()
		sess.writeLoop(ctx, views)
	}()

	sess.readLoop(ctx)
	cancel()
	sess.ctl.Close()
	wg.Wait()

	sess.log.Info("listing session disconnected")
}

// navigate keeps only the newest URL; it runs under the controller lock
func (sess *listingSession) navigate(query string) {
	select {
	case <-sess.urls:
	default:
	}
	sess.urls <- query
}

func (sess *listingSession) readLoop(ctx context.Context) {
	sess.conn.SetReadLimit(wsMaxMessageSize)
	sess.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, message, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var intent ListingIntent
		if err := json.Unmarshal(message, &intent); err != nil {
			sess.sendError(ctx, "invalid_request", "invalid JSON message")
			continue
		}

		if err := sess.apply(intent); err != nil {
			sess.log.Debug("intent rejected", zap.String("type", intent.Type), zap.Error(err))
			sess.sendError(ctx, "validation_error", err.Error())
		}
	}
}

func (sess *listingSession) apply(intent ListingIntent) error {
	switch intent.Type {
	case render.IntentFilter:
		return sess.ctl.SetFilter(intent.Field, intent.Value)
	case render.IntentClear:
		return sess.ctl.ClearFilter(intent.Field)
	case render.IntentClearAll:
		sess.ctl.ClearAll()
	case render.IntentPage:
		if !sess.ctl.SetPage(intent.Page) {
			sess.log.Debug("page intent ignored", zap.Int("page", intent.Page))
		}
	case render.IntentNavigate:
		sess.ctl.Navigate(intent.Query)
	case render.IntentRetry:
		sess.ctl.Retry()
	default:
		return fmt.Errorf("%w: %q", errUnknownIntent, intent.Type)
	}
	return nil
}

func (sess *listingSession) sendError(ctx context.Context, code, message string) {
	select {
	case sess.outbox <- ListingMessage{Type: "error", Error: &apiError{Code: code, Message: message}}:
	case <-ctx.Done():
	}
}

// writeLoop is the only writer on the connection
func (sess *listingSession) writeLoop(ctx context.Context, views <-chan controller.View) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		var msg ListingMessage
		select {
		case <-ctx.Done():
			sess.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		case view, ok := <-views:
			if !ok {
				return
			}
			lv := render.Listing(view, sess.cat)
			msg = ListingMessage{Type: "view", View: &lv}
		case q := <-sess.urls:
			msg = ListingMessage{Type: "navigate", Query: &q}
		case msg = <-sess.outbox:
		case <-ticker.C:
			if err := sess.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			continue
		}

		sess.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := sess.conn.WriteJSON(msg); err != nil {
			sess.log.Debug("failed to send listing message", zap.Error(err))
			return
		}
	}
}
