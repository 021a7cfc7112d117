package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"quizwhiz-service/internal/app"
	"quizwhiz-service/internal/domain"
	"quizwhiz-service/internal/quiz"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Choice string `json:"choice"`
}

type explainPayload struct {
	Index int `json:"index"`
}

type explanationPayload struct {
	Index       int    `json:"index"`
	Explanation string `json:"explanation"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS validates the quiz setup, upgrades to a websocket and drives one
// quiz controller for the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	params, err := domain.ParseParameters(r.URL.Query())
	if err == nil {
		err = h.service.CheckParameters(identity, params)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id, controller := h.service.Open(ctx, identity)
	updates, unsubscribe := controller.Subscribe()
	defer unsubscribe()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	var pending sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Warn("ws write error", "controller_id", id, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	if _, err := controller.Load(params); err != nil {
		reply(errorMessage(err))
	}
	slog.Info("quiz connection opened",
		"controller_id", id,
		"user_id", identity.UserID,
		"subject", params.Subject,
		"topic", params.Topic,
	)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.handle(ctx, id, controller, inbound, reply, &pending); err != nil {
			reply(errorMessage(err))
		}
	}

	close(closeSignals)
	cancel()
	pending.Wait()
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handle(ctx context.Context, id string, c *quiz.Controller, msg inboundMessage, reply func(outboundMessage[any]), pending *sync.WaitGroup) error {
	switch msg.Type {
	case "load":
		var params domain.Parameters
		if err := json.Unmarshal(msg.Payload, &params); err != nil {
			return errBadPayload
		}
		_, err := c.Load(params)
		return err
	case "start":
		return c.Start()
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return errBadPayload
		}
		return c.Select(payload.Choice)
	case "confirm":
		return c.Confirm()
	case "hidden":
		c.ReportHidden()
		return nil
	case "dismissNotice":
		return c.DismissNotice()
	case "explain":
		var payload explainPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return errBadPayload
		}
		// explanations never block the session
		pending.Add(1)
		go func() {
			defer pending.Done()
			text, err := h.service.ExplainQuestion(ctx, id, payload.Index)
			if err != nil {
				reply(errorMessage(err))
				return
			}
			reply(outboundMessage[any]{Type: "explanation", Payload: explanationPayload{Index: payload.Index, Explanation: text}})
		}()
		return nil
	default:
		return errUnsupportedMessage
	}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: errorCode(err), Message: err.Error()}}
}
