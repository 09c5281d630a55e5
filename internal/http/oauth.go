package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/oauth2"
)

// OAuthController handles the Google Drive connection endpoints.
type OAuthController struct {
	tokens      OAuthTokens
	flow        OAuthFlow
	queue       RetryEnqueuer
	auditor     ConnectionAuditor
	frontendURL string
	logger      *zap.Logger
}

// NewOAuthController creates a new OAuthController. queue and auditor may be nil.
func NewOAuthController(tokens OAuthTokens, flow OAuthFlow, queue RetryEnqueuer, auditor ConnectionAuditor, frontendURL string, logger *zap.Logger) *OAuthController {
	return &OAuthController{
		tokens:      tokens,
		flow:        flow,
		queue:       queue,
		auditor:     auditor,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Connect handles GET /api/auth/google
// Optional contentType/contentId query parameters are carried through the
// consent round trip and resumed by the callback.
func (oc *OAuthController) Connect(c *gin.Context) {
	userID := GetUserID(c)

	var pending *oauth2.PendingExport
	if raw := c.Query("contentType"); raw != "" {
		contentType, ok := entities.ParseContentType(raw)
		if !ok {
			respondBadRequest(c, "contentType must be one of: lesson, quiz")
			return
		}
		contentID, ok := parseQueryID(c, "contentId")
		if !ok {
			return
		}
		pending = &oauth2.PendingExport{ContentType: contentType, ContentID: contentID}
	}

	consentURL, err := oc.tokens.ConsentURL(userID, pending)
	if errors.Is(err, oauth2.ErrNotConfigured) {
		respondError(c, http.StatusInternalServerError, "google drive export is not configured")
		return
	}
	if err != nil {
		respondInternalError(c, oc.logger, err, "build consent url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": consentURL})
}

// Callback handles GET /api/auth/google/callback
func (oc *OAuthController) Callback(c *gin.Context) {
	if providerErr := c.Query("error"); providerErr != "" {
		oc.logger.Info("google consent declined", zap.String("error", providerErr))
		c.Redirect(http.StatusFound, oc.frontendRedirect("denied", false))
		return
	}

	result, err := oc.flow.CompleteWebFlow(c.Request.Context(), c.Query("code"), c.Query("state"))
	if errors.Is(err, oauth2.ErrInvalidState) {
		respondBadRequest(c, "invalid or expired state")
		return
	}
	if errors.Is(err, oauth2.ErrInvalidCode) {
		respondBadRequest(c, "invalid or expired authorization code")
		return
	}
	if err != nil {
		oc.logger.Error("google oauth callback failed", zap.Error(err))
		c.Redirect(http.StatusFound, oc.frontendRedirect("error", false))
		return
	}

	if oc.auditor != nil {
		oc.auditor.LogConnect(result.UserID, nil)
	}

	resumed := false
	if result.Pending != nil && oc.queue != nil {
		item, err := oc.queue.Enqueue(c.Request.Context(), result.UserID, result.Pending.ContentType, result.Pending.ContentID)
		if err != nil {
			oc.logger.Error("failed to resume pending export",
				zap.Uint("user_id", result.UserID),
				zap.String("content_type", string(result.Pending.ContentType)),
				zap.Uint("content_id", result.Pending.ContentID),
				zap.Error(err),
			)
		} else {
			resumed = true
			oc.logger.Info("resumed pending export after consent",
				zap.Uint("user_id", result.UserID),
				zap.Uint("item_id", item.ID),
			)
		}
	}

	c.Redirect(http.StatusFound, oc.frontendRedirect("connected", resumed))
}

// Disconnect handles POST /api/auth/google/disconnect
func (oc *OAuthController) Disconnect(c *gin.Context) {
	userID := GetUserID(c)

	if err := oc.tokens.Disconnect(userID); err != nil {
		respondInternalError(c, oc.logger, err, "disconnect google")
		return
	}
	if oc.auditor != nil {
		oc.auditor.LogDisconnect(userID)
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "google drive disconnected"})
}

// Status handles GET /api/auth/google/status
func (oc *OAuthController) Status(c *gin.Context) {
	status, err := oc.tokens.Status(GetUserID(c))
	if err != nil {
		respondInternalError(c, oc.logger, err, "google status")
		return
	}
	c.JSON(http.StatusOK, status)
}

func (oc *OAuthController) frontendRedirect(state string, pending bool) string {
	target, err := url.Parse(oc.frontendURL)
	if err != nil || oc.frontendURL == "" {
		target = &url.URL{Path: "/"}
	}
	q := target.Query()
	q.Set("googleDrive", state)
	if pending {
		q.Set("pending", "1")
	}
	target.RawQuery = q.Encode()
	return target.String()
}
