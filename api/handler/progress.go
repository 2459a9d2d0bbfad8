package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/immolink/backend/api/transport"
	"github.com/immolink/backend/domain"
	"github.com/immolink/backend/pkg/httpcontext"
	collabUC "github.com/immolink/backend/usecase/collaboration"
)

type ProgressHandler struct {
	baseHandler
	uc *collabUC.UseCase
}

func NewProgressHandler(uc *collabUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Validate one milestone on behalf of one party
// @Tags progress
// @Router /api/v1/collaborations/{id}/progress [post]
func (h *ProgressHandler) Advance(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}
	id := h.collaborationID(ctx)
	if id == "" {
		return
	}

	var req transport.ProgressRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	collab, err := h.uc.Advance(stdCtx, actorID, id, req.Step, req.Notes, req.ValidatedBy)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, collab)
}

// @Summary List the canonical milestone identifiers
// @Tags progress
// @Router /api/v1/progress-steps [get]
func (h *ProgressHandler) Steps(ctx *fasthttp.RequestCtx) {
	h.respondSuccess(ctx, http.StatusOK, domain.CanonicalSteps)
}
