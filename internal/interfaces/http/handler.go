package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmanzanog/service-catalog/internal/domain"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/topology"
)

// PortfolioService defines the portfolio operations the API exposes.
type PortfolioService interface {
	Create(ctx context.Context, p domain.Principal, name, description string) (*domain.Portfolio, error)
	Get(ctx context.Context, p domain.Principal, id string) (*domain.Portfolio, error)
	List(ctx context.Context, p domain.Principal) ([]*domain.Portfolio, error)
	Update(ctx context.Context, p domain.Principal, id string, update domain.PortfolioUpdate) (*domain.Portfolio, error)
	Destroy(ctx context.Context, p domain.Principal, id string) (string, error)
	Restore(ctx context.Context, id, restoreKey string) (*domain.Portfolio, error)
	Copy(ctx context.Context, p domain.Principal, id, newName string) (*domain.Portfolio, error)
}

// ItemService defines the portfolio item operations the API exposes.
type ItemService interface {
	AddItem(ctx context.Context, p domain.Principal, portfolioID, serviceOfferingRef string) (*domain.PortfolioItem, error)
	Get(ctx context.Context, p domain.Principal, id string) (*domain.PortfolioItem, error)
	List(ctx context.Context, p domain.Principal, portfolioID string) ([]*domain.PortfolioItem, error)
	Patch(ctx context.Context, p domain.Principal, id string, patch domain.ItemPatch) (*domain.PortfolioItem, error)
	Destroy(ctx context.Context, p domain.Principal, id string) (string, error)
	Restore(ctx context.Context, id, restoreKey string) (*domain.PortfolioItem, error)
	Icon(ctx context.Context, p domain.Principal, id string) (*topology.Icon, error)
	ServicePlans(ctx context.Context, p domain.Principal, id string) ([]topology.ServicePlan, error)
	ControlParameters(ctx context.Context, p domain.Principal, id string) (map[string]any, error)
}

// ShareService defines the sharing operations the API exposes.
type ShareService interface {
	Share(ctx context.Context, p domain.Principal, ref domain.ResourceRef, verbs []domain.Verb, groupIDs []string) error
	Unshare(ctx context.Context, p domain.Principal, ref domain.ResourceRef, verbs []domain.Verb, groupIDs []string) error
	ShareInfo(ctx context.Context, p domain.Principal, ref domain.ResourceRef) ([]domain.GroupShare, error)
}

type Handler struct {
	portfolios PortfolioService
	items      ItemService
	shares     ShareService
}

func NewHandler(portfolios PortfolioService, items ItemService, shares ShareService) *Handler {
	return &Handler{
		portfolios: portfolios,
		items:      items,
		shares:     shares,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreatePortfolioRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type RestoreRequest struct {
	RestoreKey string `json:"restore_key" binding:"required"`
}

type RestoreKeyResponse struct {
	RestoreKey string `json:"restore_key"`
}

type CopyRequest struct {
	PortfolioName string `json:"portfolio_name"`
}

type ShareRequest struct {
	Permissions []string `json:"permissions" binding:"required"`
	GroupUUIDs  []string `json:"group_uuids" binding:"required"`
}

type AddItemRequest struct {
	PortfolioID        string `json:"portfolio_id" binding:"required"`
	ServiceOfferingRef string `json:"service_offering_ref" binding:"required"`
}

// respondError maps the typed error taxonomy onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var denied *domain.DeniedError
	var inconsistency *domain.TopologyInconsistency

	switch {
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: denied.Error()})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrOfferingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrAlreadyDiscarded), errors.Is(err, domain.ErrNotDiscarded):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidRestoreToken), errors.Is(err, domain.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.As(err, &inconsistency) && inconsistency.MissingRef:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: inconsistency.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func bindError(c *gin.Context, err error) {
	slog.ErrorContext(c.Request.Context(), "Invalid request body", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

// --- Portfolios ---

func (h *Handler) CreatePortfolio(c *gin.Context) {
	var req CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	portfolio, err := h.portfolios.Create(c.Request.Context(), currentPrincipal(c), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, portfolio)
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	portfolio, err := h.portfolios.Get(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

func (h *Handler) ListPortfolios(c *gin.Context) {
	portfolios, err := h.portfolios.List(c.Request.Context(), currentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": portfolios})
}

func (h *Handler) UpdatePortfolio(c *gin.Context) {
	var update domain.PortfolioUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		bindError(c, err)
		return
	}

	portfolio, err := h.portfolios.Update(c.Request.Context(), currentPrincipal(c), c.Param("id"), update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

func (h *Handler) DeletePortfolio(c *gin.Context) {
	restoreKey, err := h.portfolios.Destroy(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RestoreKeyResponse{RestoreKey: restoreKey})
}

func (h *Handler) RestorePortfolio(c *gin.Context) {
	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	portfolio, err := h.portfolios.Restore(c.Request.Context(), c.Param("id"), req.RestoreKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

func (h *Handler) CopyPortfolio(c *gin.Context) {
	// The copy body is optional; an absent one means "default name".
	var req CopyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}

	portfolio, err := h.portfolios.Copy(c.Request.Context(), currentPrincipal(c), c.Param("id"), req.PortfolioName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

// --- Sharing ---

func (h *Handler) SharePortfolio(c *gin.Context)   { h.share(c, h.shares.Share) }
func (h *Handler) UnsharePortfolio(c *gin.Context) { h.share(c, h.shares.Unshare) }

func (h *Handler) share(c *gin.Context, apply func(context.Context, domain.Principal, domain.ResourceRef, []domain.Verb, []string) error) {
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	verbs, err := domain.ParseVerbs(req.Permissions)
	if err != nil {
		respondError(c, err)
		return
	}

	ref := domain.ResourceRef{Type: domain.ResourceTypePortfolio, ID: c.Param("id")}
	if err := apply(c.Request.Context(), currentPrincipal(c), ref, verbs, req.GroupUUIDs); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ShareInfo(c *gin.Context) {
	ref := domain.ResourceRef{Type: domain.ResourceTypePortfolio, ID: c.Param("id")}
	shares, err := h.shares.ShareInfo(c.Request.Context(), currentPrincipal(c), ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shares)
}

// --- Portfolio items ---

func (h *Handler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	item, err := h.items.AddItem(c.Request.Context(), currentPrincipal(c), req.PortfolioID, req.ServiceOfferingRef)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetItem(c *gin.Context) {
	item, err := h.items.Get(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.items.List(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *Handler) PatchItem(c *gin.Context) {
	var patch domain.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		bindError(c, err)
		return
	}

	item, err := h.items.Patch(c.Request.Context(), currentPrincipal(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	restoreKey, err := h.items.Destroy(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RestoreKeyResponse{RestoreKey: restoreKey})
}

func (h *Handler) RestoreItem(c *gin.Context) {
	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	item, err := h.items.Restore(c.Request.Context(), c.Param("id"), req.RestoreKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) ItemIcon(c *gin.Context) {
	icon, err := h.items.Icon(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, icon)
}

func (h *Handler) ItemServicePlans(c *gin.Context) {
	plans, err := h.items.ServicePlans(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (h *Handler) ItemControlParameters(c *gin.Context) {
	params, err := h.items.ControlParameters(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, params)
}
