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

type ContractHandler struct {
	baseHandler
	uc *collabUC.UseCase
}

func NewContractHandler(uc *collabUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Fetch the contract, materializing the default text on first access
// @Tags contract
// @Router /api/v1/collaborations/{id}/contract [get]
func (h *ContractHandler) Get(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}
	id := h.collaborationID(ctx)
	if id == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	view, err := h.uc.Contract(stdCtx, actorID, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}

// @Summary Edit the contract text; a substantive change resets both signatures
// @Tags contract
// @Router /api/v1/collaborations/{id}/contract [put]
func (h *ContractHandler) Update(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}
	id := h.collaborationID(ctx)
	if id == "" {
		return
	}

	var req transport.ContractUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	view, err := h.uc.EditContract(stdCtx, actorID, id, req.ContractText, req.AdditionalTerms)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}

// @Summary Sign the contract; the second signature activates the collaboration
// @Tags contract
// @Router /api/v1/collaborations/{id}/sign [post]
func (h *ContractHandler) Sign(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}
	id := h.collaborationID(ctx)
	if id == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	collab, err := h.uc.Sign(stdCtx, actorID, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, collab)
}
