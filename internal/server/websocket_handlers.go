package server

import (
	"encoding/json"

	"docflow/internal/middleware"
	"docflow/internal/models"
	"docflow/internal/notifications"
	"docflow/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// wsIncoming is a message sent by a connected client. Only chat messages are
// accepted over the socket; everything else arrives via the REST API.
type wsIncoming struct {
	Type    string `json:"type"`
	Payload struct {
		Body string `json:"body"`
	} `json:"payload"`
}

// WebsocketHandler upgrades the connection and attaches the client to the
// event hub. Workflow events, chat messages and per-user notifications are
// all delivered over this single socket.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		if s.hub == nil {
			_ = conn.Close()
			return
		}

		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.Close()
			return
		}
		role, _ := conn.Locals("role").(models.Role)
		extra, _ := conn.Locals("extraRoles").([]models.Role)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket connection rejected",
				"user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "connection limit reached"))
			_ = conn.Close()
			return
		}

		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		actor := service.Actor{UserID: userID, Role: role, Extra: extra}
		client.IncomingHandler = func(_ *notifications.Client, raw []byte) {
			var msg wsIncoming
			if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "chat" {
				return
			}
			if _, err := s.chatService.PostMessage(s.streamCtx(), actor, msg.Payload.Body); err != nil {
				middleware.Logger.Warn("websocket chat message rejected",
					"user_id", userID, "error", err)
			}
		}

		go client.WritePump()
		client.ReadPump()
	})
}
