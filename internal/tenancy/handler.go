package tenancy

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-hq/meridian/internal/platform/httpx"
	"github.com/meridian-hq/meridian/internal/shared"
)

// Handler manages the context switch endpoint.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver, audit *shared.AuditLogger) *Handler {
	return &Handler{logger: logger, resolver: resolver, audit: audit, validate: validator.New()}
}

// MountRoutes registers context routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/switch", h.switchContext)
}

type switchRequest struct {
	Scope     string `json:"scope" validate:"required,oneof=none company establishment"`
	ContextID int64  `json:"context_id" validate:"min=0"`
}

func (h *Handler) switchContext(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	subjectID, ok := currentSubjectID(sess)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req switchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	scope, err := ParseScope(req.Scope)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	res, err := h.resolver.Resolve(r.Context(), subjectID, Context{Scope: scope, ID: req.ContextID}, false)
	if err != nil {
		h.logger.Error("switch context", slog.Int64("subject", subjectID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess.SetActiveContext(string(res.Context.Scope), res.Context.ID)

	if h.audit != nil {
		if err := h.audit.Record(r.Context(), shared.AuditLog{
			ActorID:  subjectID,
			Action:   "context.switch",
			Entity:   "context",
			EntityID: res.Context.Normalize().String(),
			Meta:     map[string]any{"fallback": res.Fallback},
		}); err != nil {
			h.logger.Warn("audit context switch", slog.Any("error", err))
		}
	}

	httpx.JSON(w, http.StatusOK, res)
}

// currentSubjectID extracts the authenticated subject from the session.
func currentSubjectID(sess *shared.Session) (int64, bool) {
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
