package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/version"
)

// maxBodyBytes caps request bodies on JSON endpoints.
const maxBodyBytes = 1 << 20

// handleWebhook receives inbound events from the MEGA API gateway. It
// acknowledges immediately and processes the message in the background;
// the gateway retries on slow responses, which would duplicate replies.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var event domain.Event
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&event); err != nil {
		s.log.Warn().Err(err).Msg("malformed webhook payload")
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "malformed payload",
		})
		return
	}

	if !event.IsProcessable() {
		s.log.Debug().
			Str("type", event.MessageType).
			Bool("fromMe", event.Key.FromMe).
			Msg("ignoring webhook event")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	s.deps.Sink.Dispatch(event)

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "received",
		"user":   domain.UserID(event.Key.RemoteJID),
	})
}

// handleHealth reports service health, including gateway connectivity
// and whether replies can be grounded in the knowledge base.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
		"rag": map[string]any{
			"enabled":  s.deps.RAGReady,
			"passages": s.passageCount(),
		},
	}

	instance := map[string]any{"connected": false}
	if status, err := s.deps.Messenger.InstanceStatus(r.Context()); err != nil {
		instance["error"] = err.Error()
		health["status"] = "degraded"
	} else {
		instance["connected"] = true
		instance["detail"] = status
	}
	health["instance"] = instance

	writeJSON(w, http.StatusOK, health)
}

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// dashboardUser is the transcript key for dashboard sessions that do
// not name one.
const dashboardUser = "dashboard"

func (c *chatRequest) normalize() {
	c.Message = strings.TrimSpace(c.Message)
	if c.UserID == "" {
		c.UserID = dashboardUser
	}
}

// handleChat answers one dashboard message synchronously.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	req.normalize()
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply := s.deps.Responder.Respond(r.Context(), req.UserID, req.Message)
	writeJSON(w, http.StatusOK, map[string]any{
		"reply":  reply.Text,
		"source": reply.Source,
	})
}

type documentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// handleDocuments ingests a document into the knowledge base.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ingester == nil {
		writeError(w, http.StatusServiceUnavailable, "document ingestion is not available")
		return
	}

	var req documentRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Name == "" {
		req.Name = "upload-" + time.Now().UTC().Format("20060102-150405")
	}

	count, err := s.deps.Ingester.IngestText(r.Context(), req.Name, req.Content)
	if err != nil {
		s.log.Error().Err(err).Str("document", req.Name).Msg("document ingestion failed")
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"document": req.Name,
		"passages": count,
	})
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// handleSend sends an arbitrary message through the gateway, used by
// the dashboard for manual outreach and connectivity tests.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	if req.Phone == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "phone and message are required")
		return
	}

	if err := s.deps.Messenger.SendText(r.Context(), req.Phone, req.Message); err != nil {
		writeError(w, http.StatusBadGateway, "delivery failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "sent",
		"to":     domain.Recipient(req.Phone),
	})
}
