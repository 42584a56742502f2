package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/llm"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 64 * 1024
)

// wsFrame is one message on the dashboard chat socket. Client frames
// carry "message" (and optionally "userId"); server frames carry
// "type" with "content" or "source".
type wsFrame struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
	UserID  string `json:"userId,omitempty"`
	Content string `json:"content,omitempty"`
	Source  string `json:"source,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleChatWS streams chat replies over a WebSocket. Each client frame
// is answered with delta frames followed by a done frame, and the
// connection stays open for the next message.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("chat socket opened")

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("chat socket closed unexpectedly")
			}
			return
		}

		frame.Message = strings.TrimSpace(frame.Message)
		if frame.Message == "" {
			s.writeFrame(conn, wsFrame{Type: "error", Error: "message is required"})
			continue
		}
		userID := frame.UserID
		if userID == "" {
			userID = dashboardUser
		}

		reply := s.deps.Responder.RespondStream(r.Context(), userID, frame.Message, func(ev llm.StreamEvent) {
			switch ev.Type {
			case "delta":
				s.writeFrame(conn, wsFrame{Type: "delta", Content: ev.Content})
			case "error":
				s.writeFrame(conn, wsFrame{Type: "error", Error: ev.Error})
			}
		})

		s.writeFrame(conn, wsFrame{Type: "done", Content: reply.Text, Source: string(reply.Source)})
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, frame wsFrame) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.log.Debug().Err(err).Msg("chat socket write failed")
	}
}
