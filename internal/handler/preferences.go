package handler

import (
	"errors"
	"net/http"

	"luca-backend/internal/i18n"
	"luca-backend/internal/model"
	"luca-backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type PreferencesHandler struct {
	store storage.PreferenceStore
}

func NewPreferencesHandler(store storage.PreferenceStore) *PreferencesHandler {
	return &PreferencesHandler{store: store}
}

type preferencesResponse struct {
	ClientID      string `json:"client_id"`
	ResolvedTheme string `json:"resolved_theme"`
	Default       bool   `json:"default"`
	storage.Preferences
}

// Get returns the stored preferences, or the defaults for an unknown client.
// ?system=dark tells the server the client's color scheme for mode "system".
func (h *PreferencesHandler) Get(c *gin.Context) {
	clientID := c.Param("client_id")

	prefs, err := h.store.Get(clientID)
	isDefault := false
	switch {
	case errors.Is(err, storage.ErrPreferencesNotFound):
		prefs = storage.DefaultPreferences()
		isDefault = true
	case errors.Is(err, storage.ErrInvalidClientID):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_client_id"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error(), Type: "storage_error"})
		return
	}

	c.JSON(http.StatusOK, h.response(c, clientID, prefs, isDefault))
}

func (h *PreferencesHandler) Put(c *gin.Context) {
	clientID := c.Param("client_id")

	var req model.PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_request"})
		return
	}

	prefs := storage.Preferences{
		Theme:     req.Theme,
		ThemeMode: storage.ThemeMode(req.ThemeMode),
	}
	if req.Language != "" {
		lang, err := i18n.Parse(req.Language)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_language"})
			return
		}
		prefs.Language = lang
	}

	saved, err := h.store.Put(clientID, prefs)
	switch {
	case errors.Is(err, storage.ErrInvalidClientID), errors.Is(err, storage.ErrInvalidData):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Type: "invalid_preferences"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error(), Type: "storage_error"})
		return
	}

	c.JSON(http.StatusOK, h.response(c, clientID, saved, false))
}

func (h *PreferencesHandler) response(c *gin.Context, clientID string, prefs storage.Preferences, isDefault bool) preferencesResponse {
	return preferencesResponse{
		ClientID:      clientID,
		ResolvedTheme: storage.ResolveTheme(prefs.Theme, prefs.ThemeMode, c.Query("system") == "dark"),
		Default:       isDefault,
		Preferences:   prefs,
	}
}
