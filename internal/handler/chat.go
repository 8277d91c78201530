package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"luca-backend/internal/i18n"
	"luca-backend/internal/imaging"
	"luca-backend/internal/model"
	"luca-backend/internal/service"
	"luca-backend/internal/utils"
	"luca-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Archiver stores exported transcripts. *storage.Archive implements it.
type Archiver interface {
	Upload(ctx context.Context, conversationID, filename string, doc model.Export) (string, error)
}

type ChatHandler struct {
	registry      *service.Registry
	archive       Archiver
	maxImageBytes int64
	heartbeat     time.Duration
}

// NewChatHandler wires the conversation endpoints. archive may be nil.
func NewChatHandler(registry *service.Registry, archive Archiver, maxImageBytes int64) *ChatHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = imaging.DefaultMaxBytes
	}
	return &ChatHandler{
		registry:      registry,
		archive:       archive,
		maxImageBytes: maxImageBytes,
		heartbeat:     30 * time.Second,
	}
}

func (h *ChatHandler) conversation(c *gin.Context) (*service.Controller, bool) {
	ctrl, err := h.registry.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error(), Type: "not_found"})
		return nil, false
	}
	return ctrl, true
}

func (h *ChatHandler) CreateConversation(c *gin.Context) {
	var req model.CreateConversationRequest
	// An empty body selects the default language.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_request"})
		return
	}

	var lang i18n.Language
	if req.Language != "" {
		parsed, err := i18n.Parse(req.Language)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_language"})
			return
		}
		lang = parsed
	}

	ctrl := h.registry.Create(c.Request.Context(), lang)
	c.JSON(http.StatusCreated, ctrl.Snapshot())
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	convs := h.registry.List()
	out := make([]model.ConversationSummary, 0, len(convs))
	for _, ctrl := range convs {
		snap := ctrl.Snapshot()
		out = append(out, model.ConversationSummary{
			ConversationID: snap.ConversationID,
			Language:       snap.Language,
			MessageCount:   len(snap.Messages),
			LastActive:     ctrl.LastActive().Unix(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	ctrl, ok := h.conversation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	if err := h.registry.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error(), Type: "not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted successfully"})
}

// SendMessage accepts JSON {text} or a multipart form with text and image
// fields, then streams the turn as SSE.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	ctrl, ok := h.conversation(c)
	if !ok {
		return
	}

	var (
		req   model.SendMessageRequest
		image *imaging.File
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req.Text = c.PostForm("text")
		file, err := h.readImage(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_image"})
			return
		}
		image = file
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_request"})
		return
	}

	turn, err := ctrl.BeginTurn(c.Request.Context(), req.Text, image)
	if err != nil {
		h.rejectTurn(c, ctrl, err)
		return
	}
	h.streamTurn(c, ctrl, turn)
}

// readImage loads the optional "image" part. Size and type are checked later
// by the controller so that failures land in the conversation log.
func (h *ChatHandler) readImage(c *gin.Context) (*imaging.File, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	// one byte past the limit is enough for the controller to reject it
	data, err := io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &imaging.File{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func (h *ChatHandler) rejectTurn(c *gin.Context, ctrl *service.Controller, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyTurn):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "empty_turn"})
	case errors.Is(err, service.ErrBusy):
		c.JSON(http.StatusConflict, model.ErrorResponse{Error: err.Error(), Type: "busy"})
	case errors.Is(err, service.ErrNotReady):
		msg := ctrl.Snapshot().Notice
		if msg == "" {
			msg = err.Error()
		}
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: msg, Type: "not_ready"})
	case errors.Is(err, service.ErrUnknownReaction):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_reaction"})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error(), Type: "service_error"})
	}
}

// streamTurn runs an accepted turn and forwards every message update as an
// SSE "message" event, then a final "snapshot" and [DONE]. A client that goes
// away does not stop the turn.
func (h *ChatHandler) streamTurn(c *gin.Context, ctrl *service.Controller, turn *service.Turn) {
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	log := logger.WithFields(logrus.Fields{"conversation_id": ctrl.ID()})
	sse := utils.NewSSEWriter(c.Writer)
	c.Status(http.StatusOK)

	done := make(chan error, 1)
	go func() { done <- turn.Run() }()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	forward := func(u service.Update) error {
		if u.Kind != service.UpdateAppend && u.Kind != service.UpdateChange {
			return nil
		}
		return sse.WriteJSON("message", model.MessageEvent{ConversationID: ctrl.ID(), Message: u.Message})
	}

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				// conversation deleted mid-turn
				sse.Close()
				return
			}
			if err := forward(u); err != nil {
				log.Warnf("Failed to write SSE, client gone: %v", err)
				return
			}

		case err := <-done:
			for drained := false; !drained; {
				select {
				case u, ok := <-updates:
					if !ok {
						drained = true
						break
					}
					if werr := forward(u); werr != nil {
						return
					}
				default:
					drained = true
				}
			}
			if errors.Is(err, service.ErrTurnSuperseded) {
				sse.WriteJSON("error", model.ErrorResponse{Error: err.Error(), Type: "superseded"})
			}
			sse.WriteJSON("snapshot", ctrl.Snapshot())
			sse.Close()
			return

		case <-heartbeat.C:
			data, _ := json.Marshal(gin.H{"type": "heartbeat", "timestamp": time.Now().Unix()})
			if err := sse.Write("heartbeat", string(data)); err != nil {
				log.Warnf("Failed to send heartbeat: %v", err)
				return
			}

		case <-c.Request.Context().Done():
			log.Info("client disconnected, turn continues in background")
			return
		}
	}
}

// React records a reaction. Retry streams the regenerated turn like
// SendMessage; other reactions answer with JSON.
func (h *ChatHandler) React(c *gin.Context) {
	ctrl, ok := h.conversation(c)
	if !ok {
		return
	}

	var req model.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_request"})
		return
	}

	turn, err := ctrl.BeginRetry(c.Request.Context(), req.MessageID, model.Reaction(req.Type))
	if err != nil {
		h.rejectTurn(c, ctrl, err)
		return
	}
	if turn == nil {
		c.JSON(http.StatusOK, gin.H{
			"message_id": req.MessageID,
			"type":       req.Type,
			"snapshot":   ctrl.Snapshot(),
		})
		return
	}
	h.streamTurn(c, ctrl, turn)
}

func (h *ChatHandler) Clear(c *gin.Context) {
	ctrl, ok := h.conversation(c)
	if !ok {
		return
	}
	ctrl.Clear(c.Request.Context())
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *ChatHandler) SetLanguage(c *gin.Context) {
	ctrl, ok := h.conversation(c)
	if !ok {
		return
	}

	var req model.LanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_request"})
		return
	}
	lang, err := i18n.Parse(req.Language)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_language"})
		return
	}
	if err := ctrl.SetLanguage(c.Request.Context(), lang); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_language"})
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// ExportFilename names the download after the export time, with colons
// replaced so the name is valid on every filesystem.
func ExportFilename(exportedAt string) string {
	return "luca-chat-" + strings.ReplaceAll(exportedAt, ":", "-") + ".json"
}

// Export downloads the transcript. With ?archive=true and an archive
// configured, a copy is also uploaded and its object name returned in the
// X-Archive-Object header.
func (h *ChatHandler) Export(c *gin.Context) {
	ctrl, ok := h.conversation(c)
	if !ok {
		return
	}

	doc := ctrl.Export()
	filename := ExportFilename(doc.ExportedAt)

	if c.Query("archive") == "true" {
		if h.archive == nil {
			c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "export archive is not configured", Type: "archive_disabled"})
			return
		}
		name, err := h.archive.Upload(c.Request.Context(), ctrl.ID(), filename, doc)
		if err != nil {
			logger.Errorf("Failed to archive export of %s: %v", ctrl.ID(), err)
			c.JSON(http.StatusBadGateway, model.ErrorResponse{Error: err.Error(), Type: "archive_failed"})
			return
		}
		c.Header("X-Archive-Object", name)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error(), Type: "service_error"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *ChatHandler) Translations(c *gin.Context) {
	lang, err := i18n.Parse(c.Param("lang"))
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error(), Type: "invalid_language"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"language":      lang,
		"speech_locale": i18n.SpeechLocale(lang),
		"translations":  i18n.Bundle(lang),
	})
}
