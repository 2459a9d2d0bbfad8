package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/immolink/backend/api/transport"
	"github.com/immolink/backend/domain"
	"github.com/immolink/backend/pkg/httpcontext"
	collabUC "github.com/immolink/backend/usecase/collaboration"
)

type CollaborationHandler struct {
	baseHandler
	uc *collabUC.UseCase
}

func NewCollaborationHandler(uc *collabUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *CollaborationHandler {
	return &CollaborationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Propose a collaboration
// @Tags collaborations
// @Router /api/v1/collaborations [post]
func (h *CollaborationHandler) Propose(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	var req transport.ProposeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	collab, err := h.uc.Propose(stdCtx, actorID, collabUC.ProposeInput{
		Subject: domain.SubjectRef{
			Kind: domain.SubjectKind(req.SubjectKind),
			ID:   req.SubjectID,
		},
		Compensation: domain.Compensation{
			Kind:       domain.CompensationKind(req.Compensation.Kind),
			Percentage: req.Compensation.Percentage,
			Amount:     req.Compensation.Amount,
			Currency:   req.Compensation.Currency,
		},
		Message: req.Message,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, collab)
}

// @Summary List the actor's collaborations
// @Tags collaborations
// @Router /api/v1/collaborations [get]
func (h *CollaborationHandler) List(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	limit := parseInt(string(ctx.QueryArgs().Peek("limit")), 50)
	offset := parseInt(string(ctx.QueryArgs().Peek("offset")), 0)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	collabs, err := h.uc.List(stdCtx, actorID,
		string(ctx.QueryArgs().Peek("role")),
		string(ctx.QueryArgs().Peek("status")),
		limit, offset)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(collabs, transport.ListMeta{
		Count:  len(collabs),
		Limit:  limit,
		Offset: offset,
	}))
}

// @Summary Fetch one collaboration
// @Tags collaborations
// @Router /api/v1/collaborations/{id} [get]
func (h *CollaborationHandler) Get(ctx *fasthttp.RequestCtx) {
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

	collab, err := h.uc.Get(stdCtx, actorID, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, collab)
}

// @Summary Accept or reject a pending proposal
// @Tags collaborations
// @Router /api/v1/collaborations/{id}/respond [post]
func (h *CollaborationHandler) Respond(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}
	id := h.collaborationID(ctx)
	if id == "" {
		return
	}

	var req transport.RespondRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	collab, err := h.uc.Respond(stdCtx, actorID, id, req.Decision)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, collab)
}

// @Summary Cancel a live collaboration
// @Tags collaborations
// @Router /api/v1/collaborations/{id}/cancel [post]
func (h *CollaborationHandler) Cancel(ctx *fasthttp.RequestCtx) {
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

	collab, err := h.uc.Cancel(stdCtx, actorID, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, collab)
}

// @Summary Close an active deal
// @Tags collaborations
// @Router /api/v1/collaborations/{id}/complete [post]
func (h *CollaborationHandler) Complete(ctx *fasthttp.RequestCtx) {
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

	collab, err := h.uc.Complete(stdCtx, actorID, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, collab)
}

// @Summary Add a note to an active collaboration
// @Tags collaborations
// @Router /api/v1/collaborations/{id}/notes [post]
func (h *CollaborationHandler) AddNote(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}
	id := h.collaborationID(ctx)
	if id == "" {
		return
	}

	var req transport.NoteRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	collab, err := h.uc.AddNote(stdCtx, actorID, id, req.Text)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, collab)
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
