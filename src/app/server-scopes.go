package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/openpantry/pantry/src/app/request"
	"github.com/openpantry/pantry/src/app/response"
	"github.com/openpantry/pantry/src/realtime"
	"github.com/openpantry/pantry/src/utils/model"

	"github.com/gin-gonic/gin"
	"github.com/teivah/onecontext"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// onScopeWebsocket streams one conversation scope. After the upgrade
// the server pushes a full snapshot frame on every change to the
// visible list. Incoming frames are optimistic sends.
func (self *Server) onScopeWebsocket(c *gin.Context) {
	senderId := actor(c)
	if senderId == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	kind := c.Param("kind")
	if kind != "claim" && kind != "collaboration" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown scope kind"})
		return
	}

	// Scope ids are kind-qualified so claim and collaboration
	// conversations can never collide
	scopeId := kind + ":" + c.Param("id")

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		self.Log.WithError(err).Debug("Failed to accept websocket")
		return
	}
	defer conn.CloseNow()

	// The socket lives until either the client goes away or the
	// server is stopping, whichever comes first.
	ctx, cancel := onecontext.Merge(c.Request.Context(), self.Ctx)
	defer cancel()

	// Serialized snapshot pushes. Updates arriving while a push is in
	// flight collapse into one pending notification.
	updates := make(chan struct{}, 1)
	notify := func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	}

	scope := realtime.NewScope(self.Config, scopeId).
		WithStore(self.messages).
		WithSource(self.source).
		WithMonitor(self.monitor).
		WithOnUpdate(notify)

	err = scope.Open(ctx)
	if err != nil {
		self.Log.WithError(err).WithField("scope_id", scopeId).Error("Failed to open scope")
		conn.Close(websocket.StatusInternalError, "failed to open scope")
		return
	}
	defer scope.Close()

	// Initial snapshot
	notify()

	go self.readScopeFrames(ctx, cancel, conn, scope, senderId)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "closing")
			return
		case <-updates:
		}

		view := response.ScopeViewToResponse(scopeId,
			realtime.GroupByDay(scope.Messages(), self.Config.Realtime.CollapseWindow))

		err = wsjson.Write(ctx, conn, view)
		if err != nil {
			return
		}
	}
}

func (self *Server) readScopeFrames(ctx context.Context, cancel func(), conn *websocket.Conn, scope *realtime.Scope, senderId string) {
	// Reader owns the socket lifetime, a dead read ends the stream
	defer cancel()

	for {
		var in request.SendMessage
		err := wsjson.Read(ctx, conn, &in)
		if err != nil {
			return
		}
		if in.Body == "" {
			continue
		}

		err = scope.Send(ctx, senderId, in.Body)
		if err != nil && !errors.Is(err, model.ErrRemoteWriteFailed) {
			// Remote write failures roll the optimistic entry back and
			// are already pushed to the client as a fresh snapshot
			self.Log.WithError(err).Debug("Scope send rejected")
		}
	}
}
