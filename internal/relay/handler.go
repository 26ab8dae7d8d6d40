package relay

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/centerionware/smartbillsplitter-sub003/internal/middleware"
)

var (
	sharesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_shares_created_total",
		Help: "Shares created, including reactivation claims.",
	})
	sharesUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_shares_updated_total",
		Help: "Share payload updates accepted.",
	})
	sharesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_shares_fetched_total",
		Help: "Share payloads served to readers.",
	})
)

// ErrorResponse is the JSON error envelope for all relay endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type shareRequest struct {
	EncryptedData string `json:"encryptedData" binding:"required"`
}

type shareResponse struct {
	ShareID       string `json:"shareId"`
	UpdateToken   string `json:"updateToken,omitempty"`
	EncryptedData string `json:"encryptedData,omitempty"`
	LastUpdatedAt int64  `json:"lastUpdatedAt"`
}

// Handler wires the share endpoints onto a gin router.
type Handler struct {
	store  *ShareStore
	tokens *TokenManager
	cfg    Config
}

// NewHandler creates the relay API handler.
func NewHandler(store *ShareStore, tokens *TokenManager, cfg Config) *Handler {
	return &Handler{store: store, tokens: tokens, cfg: cfg}
}

// SetupRoutes registers all relay routes and middleware.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(middleware.RequestLogger(), middleware.CORS(), middleware.BodyLimit(h.cfg.MaxBodyBytes))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/share", h.createShare)
	router.GET("/share/:shareId", h.getShare)
	router.PUT("/share/:shareId", h.updateShare)
	router.POST("/share/:shareId/reactivate", h.reactivateShare)
}

// createShare stores a new encrypted payload under a fresh share ID and
// returns the ID together with the update token that authorizes later
// rewrites.
func (h *Handler) createShare(c *gin.Context) {
	req, ok := h.bindShareRequest(c)
	if !ok {
		return
	}

	shareID := uuid.New().String()
	rec, err := h.store.Create(c.Request.Context(), shareID, req.EncryptedData, h.cfg.ShareTTL)
	if err != nil {
		h.serverError(c, "failed to create share", err)
		return
	}

	token, err := h.tokens.Generate(shareID)
	if err != nil {
		h.serverError(c, "failed to issue update token", err)
		return
	}

	sharesCreated.Inc()
	c.JSON(http.StatusCreated, shareResponse{
		ShareID:       rec.ID,
		UpdateToken:   token,
		LastUpdatedAt: rec.UpdatedAt,
	})
}

// getShare serves the encrypted payload to anyone holding the share ID.
// Knowing the ID is the read capability; decryption still requires the
// key from the share URL fragment.
func (h *Handler) getShare(c *gin.Context) {
	shareID := c.Param("shareId")

	rec, err := h.store.Get(c.Request.Context(), shareID)
	if errors.Is(err, ErrShareNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "No share exists under this ID",
			Code:  "SHARE_NOT_FOUND",
		})
		return
	}
	if err != nil {
		h.serverError(c, "failed to load share", err)
		return
	}
	if rec.Expired() {
		c.JSON(http.StatusGone, ErrorResponse{
			Error: "This share has expired",
			Code:  "SHARE_EXPIRED",
		})
		return
	}

	sharesFetched.Inc()
	c.JSON(http.StatusOK, shareResponse{
		ShareID:       rec.ID,
		EncryptedData: rec.Data,
		LastUpdatedAt: rec.UpdatedAt,
	})
}

// updateShare rewrites a share's payload. It requires the update token
// minted for this share and answers with a fresh token, so ownership
// rolls forward as long as the bill keeps changing.
func (h *Handler) updateShare(c *gin.Context) {
	shareID := c.Param("shareId")
	if !h.requireToken(c, shareID) {
		return
	}

	req, ok := h.bindShareRequest(c)
	if !ok {
		return
	}

	rec, err := h.store.Update(c.Request.Context(), shareID, req.EncryptedData, h.cfg.ShareTTL)
	if errors.Is(err, ErrShareNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "No share exists under this ID",
			Code:  "SHARE_NOT_FOUND",
		})
		return
	}
	if err != nil {
		h.serverError(c, "failed to update share", err)
		return
	}

	token, err := h.tokens.Generate(shareID)
	if err != nil {
		h.serverError(c, "failed to reissue update token", err)
		return
	}

	sharesUpdated.Inc()
	c.JSON(http.StatusOK, shareResponse{
		ShareID:       rec.ID,
		UpdateToken:   token,
		LastUpdatedAt: rec.UpdatedAt,
	})
}

// reactivateShare restores a share under its original ID. When the ID
// is free the caller claims it outright and gets a new token; when a
// record still exists the caller must present a valid token, and the
// payload is replaced with the expiry pushed out.
func (h *Handler) reactivateShare(c *gin.Context) {
	shareID := c.Param("shareId")

	req, ok := h.bindShareRequest(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	_, err := h.store.Get(ctx, shareID)
	switch {
	case errors.Is(err, ErrShareNotFound):
		rec, err := h.store.Create(ctx, shareID, req.EncryptedData, h.cfg.ShareTTL)
		if err != nil {
			h.serverError(c, "failed to reclaim share", err)
			return
		}
		token, err := h.tokens.Generate(shareID)
		if err != nil {
			h.serverError(c, "failed to issue update token", err)
			return
		}
		sharesCreated.Inc()
		c.JSON(http.StatusCreated, shareResponse{
			ShareID:       rec.ID,
			UpdateToken:   token,
			LastUpdatedAt: rec.UpdatedAt,
		})
	case err != nil:
		h.serverError(c, "failed to load share", err)
	default:
		if !h.requireToken(c, shareID) {
			return
		}
		rec, err := h.store.Update(ctx, shareID, req.EncryptedData, h.cfg.ShareTTL)
		if err != nil {
			h.serverError(c, "failed to refresh share", err)
			return
		}
		token, err := h.tokens.Generate(shareID)
		if err != nil {
			h.serverError(c, "failed to reissue update token", err)
			return
		}
		sharesUpdated.Inc()
		c.JSON(http.StatusOK, shareResponse{
			ShareID:       rec.ID,
			UpdateToken:   token,
			LastUpdatedAt: rec.UpdatedAt,
		})
	}
}

// bindShareRequest parses the request body, translating oversized
// payloads into 413 and anything else malformed into 400.
func (h *Handler) bindShareRequest(c *gin.Context) (*shareRequest, bool) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: "Encrypted payload exceeds the relay size limit",
				Code:  "PAYLOAD_TOO_LARGE",
			})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Request body must be JSON with an encryptedData field",
			Code:  "INVALID_REQUEST",
		})
		return nil, false
	}
	return &req, true
}

// requireToken enforces the bearer update token for shareID. Returns
// false after writing the error response when the check fails.
func (h *Handler) requireToken(c *gin.Context, shareID string) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "Update token required",
			Code:  "TOKEN_REQUIRED",
		})
		return false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "Invalid token format",
			Code:  "INVALID_TOKEN",
		})
		return false
	}

	if _, err := h.tokens.Validate(parts[1], shareID); err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "Invalid or expired update token",
			Code:  "INVALID_TOKEN",
		})
		return false
	}
	return true
}

func (h *Handler) serverError(c *gin.Context, msg string, err error) {
	slog.Error(msg, "error", err, "path", c.Request.URL.Path)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: msg,
		Code:  "INTERNAL",
	})
}
