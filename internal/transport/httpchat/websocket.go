package httpchat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"ideabot/internal/collector"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsInbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"`
}

type wsOutbound struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Text    string `json:"text,omitempty"`
	Code    string `json:"code,omitempty"`
}

// wsOutbox queues collector replies for the connection writer.
type wsOutbox struct {
	session string
	writeCh chan wsOutbound
}

func (o wsOutbox) Send(ctx context.Context, text string) error {
	select {
	case o.writeCh <- wsOutbound{Type: "message", Session: o.session, Text: text}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleWS serves one session over a websocket. The session id comes from the
// "session" query parameter. Events are applied in arrival order by a single
// worker so a long evaluation does not stall ping handling.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("session"))
	if id == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		h.log.Printf("httpchat: ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	key := SessionKey(id)
	out := wsOutbox{session: id, writeCh: writeCh}
	events := make(chan wsInbound, 8)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for ev := range events {
			h.applyWS(ctx, key, id, ev, out)
		}
	}()

	pushWS(writeCh, wsOutbound{
		Type:    "subscribed",
		Session: id,
		Stage:   string(h.collector.StageOf(key)),
	})

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Printf("httpchat: ws read %s: %v", id, err)
			}
			break
		}
		msgType := strings.ToLower(strings.TrimSpace(in.Type))
		switch msgType {
		case "ping":
			pushWS(writeCh, wsOutbound{Type: "pong", Session: id})
		case "start", "text", "reset":
			in.Type = msgType
			select {
			case events <- in:
			default:
				pushWS(writeCh, wsOutbound{Type: "error", Session: id, Code: "busy", Text: "still working on your previous message"})
			}
		default:
			pushWS(writeCh, wsOutbound{Type: "error", Session: id, Code: "invalid_argument", Text: "unsupported type: " + msgType})
		}
	}

	close(events)
	cancel()
	<-workerDone
	<-writerDone
}

func (h *Handler) applyWS(ctx context.Context, key, id string, ev wsInbound, out wsOutbox) {
	var err error
	switch ev.Type {
	case "start":
		err = h.collector.Start(ctx, key, ev.Name, out)
	case "reset":
		err = h.collector.Reset(ctx, key, out)
	case "text":
		err = h.collector.Handle(ctx, key, ev.Text, out)
		if errors.Is(err, collector.ErrNoSession) {
			err = out.Send(ctx, noSessionHint)
		}
	}
	if err != nil {
		if ctx.Err() == nil {
			h.log.Printf("httpchat: ws %s %s: %v", ev.Type, id, err)
		}
		pushWS(out.writeCh, wsOutbound{Type: "error", Session: id, Code: "internal", Text: "internal error"})
		return
	}
	pushWS(out.writeCh, wsOutbound{Type: "stage", Session: id, Stage: string(h.collector.StageOf(key))})
}

// pushWS queues a non-essential frame, dropping the oldest one when the
// writer is behind.
func pushWS(writeCh chan wsOutbound, out wsOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
