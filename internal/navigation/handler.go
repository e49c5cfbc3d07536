package navigation

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-hq/meridian/internal/platform/httpx"
	"github.com/meridian-hq/meridian/internal/rbac"
	"github.com/meridian-hq/meridian/internal/shared"
	"github.com/meridian-hq/meridian/internal/tenancy"
)

// Handler manages navigation endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	ordering *OrderingService
	cache    *ResolutionCache
	guard    rbac.Middleware
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, ordering *OrderingService, cache *ResolutionCache, guard rbac.Middleware, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		ordering: ordering,
		cache:    cache,
		guard:    guard,
		audit:    audit,
		validate: validator.New(),
	}
}

// MountRoutes registers navigation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/tree", h.tree)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(shared.PermNavigationManage))
		r.Post("/nodes/{id}/move", h.moveNode)
		r.Post("/invalidate", h.invalidate)
	})
}

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	subjectID, ok := subjectFromSession(sess)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	requested, err := requestedContext(r, sess)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actAsAdmin := r.URL.Query().Get("act_as_admin") == "true"

	tree, err := h.service.ResolveTree(r.Context(), subjectID, requested, actAsAdmin)
	if err != nil {
		h.logger.Error("resolve tree", slog.Int64("subject", subjectID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tree)
}

type moveRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

func (h *Handler) moveNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "node id must be an integer")
		return
	}

	var req moveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.ordering.MoveSibling(r.Context(), nodeID, Direction(req.Direction))
	if err != nil {
		h.logger.Error("move node", slog.Int64("node", nodeID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	if h.audit != nil && !result.NoChange {
		actorID, _ := subjectFromSession(shared.SessionFromContext(r.Context()))
		if err := h.audit.Record(r.Context(), shared.AuditLog{
			ActorID:  actorID,
			Action:   "navigation.move",
			Entity:   "menu_node",
			EntityID: strconv.FormatInt(nodeID, 10),
			Meta:     map[string]any{"direction": req.Direction},
		}); err != nil {
			h.logger.Warn("audit node move", slog.Any("error", err))
		}
	}

	httpx.JSON(w, http.StatusOK, result)
}

// invalidate is the hook node CRUD features call after any mutation to
// roles, permissions, assignments or menu nodes.
func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("invalidate cache", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Invalidation Failed", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func subjectFromSession(sess *shared.Session) (int64, bool) {
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

// requestedContext reads the context from query parameters, defaulting to
// the session's active context when absent.
func requestedContext(r *http.Request, sess *shared.Session) (tenancy.Context, error) {
	q := r.URL.Query()
	rawScope := q.Get("scope")
	rawID := q.Get("context_id")

	if rawScope == "" && rawID == "" && sess != nil {
		scope, id := sess.ActiveContext()
		parsed, err := tenancy.ParseScope(scope)
		if err != nil {
			return tenancy.None(), nil
		}
		return tenancy.Context{Scope: parsed, ID: id}, nil
	}

	scope, err := tenancy.ParseScope(rawScope)
	if err != nil {
		return tenancy.Context{}, err
	}
	var id int64
	if rawID != "" {
		id, err = strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return tenancy.Context{}, err
		}
	}
	return tenancy.Context{Scope: scope, ID: id}, nil
}
