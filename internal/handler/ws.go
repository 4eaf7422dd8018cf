package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/quickpick/api/internal/apperr"
	"github.com/quickpick/api/internal/coordinator"
	"github.com/quickpick/api/internal/middleware"
	"github.com/quickpick/api/internal/selection"
	"github.com/quickpick/api/internal/session"
	"github.com/quickpick/api/internal/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	coord *coordinator.Coordinator
	hub   *ws.Hub
}

func NewWSHandler(coord *coordinator.Coordinator, hub *ws.Hub) *WSHandler {
	return &WSHandler{coord: coord, hub: hub}
}

// clientMessage is the inbound action envelope. Each connection gets a
// fresh id at upgrade time; that id is the participant identity for as
// long as the socket lives.
type clientMessage struct {
	Action    string             `json:"action"`
	Name      string             `json:"name"`
	OptionIDs []string           `json:"optionIds"`
	Options   []selection.Option `json:"options"`
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	code := c.Param("code")
	if !session.ValidCode(code) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_code", "error": "invalid session code"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	connID := uuid.New().String()
	h.hub.Register(connID, conn)
	middleware.ConnectionOpened()

	defer func() {
		// A read failure is a disconnect, not a leave: membership and
		// submissions survive, only presence flips. The request context
		// is dead by now, so cleanup runs on its own.
		if h.hub.RoomOf(connID) == code {
			h.coord.HandleDisconnect(context.Background(), code, connID)
		}
		h.hub.Unregister(connID)
		middleware.ConnectionClosed()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.hub.Error(connID, "invalid_message", "message is not valid JSON")
			continue
		}
		h.dispatch(c, code, connID, msg)
	}
}

func (h *WSHandler) dispatch(c *gin.Context, code, connID string, msg clientMessage) {
	ctx := c.Request.Context()

	var err error
	switch msg.Action {
	case "join":
		_, err = h.coord.JoinSession(ctx, code, connID, msg.Name)
		if err == nil {
			middleware.RecordJoin()
		}
	case "submit":
		var completed bool
		completed, err = h.coord.SubmitSelections(ctx, code, connID, msg.OptionIDs)
		if err == nil {
			middleware.RecordSubmission()
			if completed {
				middleware.RecordRoundCompleted()
			}
		}
	case "restart":
		err = h.coord.RestartSession(ctx, code, connID)
	case "leave":
		err = h.coord.LeaveSession(ctx, code, connID)
	case "options":
		err = h.coord.SetOptions(ctx, code, msg.Options)
	default:
		h.hub.Error(connID, "unknown_action", "unknown action")
		return
	}

	if err != nil {
		if apperr.IsKind(err, apperr.KindInternal) {
			log.Printf("internal error on ws action %s in %s: %v", msg.Action, code, err)
		}
		h.hub.Error(connID, apperr.CodeOf(err), userMessage(err))
	}
}

func userMessage(err error) string {
	if apperr.IsKind(err, apperr.KindInternal) {
		return "internal error"
	}
	return err.Error()
}
