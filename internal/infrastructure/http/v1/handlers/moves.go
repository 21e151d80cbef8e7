package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/movement"
	"stockledger/internal/domain/reconcile"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// MoveHandler handles stock move endpoints.
type MoveHandler struct {
	*BaseHandler
	facade *reconcile.Facade
}

// NewMoveHandler creates a new stock move handler.
func NewMoveHandler(facade *reconcile.Facade) *MoveHandler {
	return &MoveHandler{
		BaseHandler: NewBaseHandler(),
		facade:      facade,
	}
}

// Create handles draft move creation.
// POST /api/v1/moves
func (h *MoveHandler) Create(c *gin.Context) {
	var req dto.CreateMoveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID := id.MustParse(req.ProductID)
	sourceID := id.MustParse(req.SourceLocationID)
	destID := id.MustParse(req.DestinationLocationID)

	move := movement.NewStockMove(productID, sourceID, destID, types.Quantity(req.Quantity), h.GetActorID(c))
	move.Reference = req.Reference
	move.Notes = req.Notes

	if err := h.facade.CreateMove(c.Request.Context(), move); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, move.ID.String())
}

// Get returns one move.
// GET /api/v1/moves/:id
func (h *MoveHandler) Get(c *gin.Context) {
	moveID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	move, err := h.facade.GetMove(c.Request.Context(), moveID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.MoveToResponse(move))
}

// List returns moves matching the filter.
// GET /api/v1/moves
func (h *MoveHandler) List(c *gin.Context) {
	var query dto.MoveListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := movement.ListFilter{
		Limit:  query.PageSize,
		Offset: query.Offset(),
	}
	if query.State != "" {
		state := movement.State(query.State)
		filter.State = &state
	}
	if query.ProductID != "" {
		productID := id.MustParse(query.ProductID)
		filter.ProductID = &productID
	}

	moves, err := h.facade.ListMoves(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: dto.MovesToResponse(moves)})
}

// Confirm approves a draft move and posts its ledger entries.
// POST /api/v1/moves/:id/confirm
func (h *MoveHandler) Confirm(c *gin.Context) {
	h.transition(c, h.facade.ConfirmMove)
}

// Reject refuses a draft or confirmed move, restoring stock once.
// POST /api/v1/moves/:id/reject
func (h *MoveHandler) Reject(c *gin.Context) {
	h.transition(c, h.facade.RejectMove)
}

// Complete marks a confirmed move as physically done.
// POST /api/v1/moves/:id/complete
func (h *MoveHandler) Complete(c *gin.Context) {
	moveID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.facade.CompleteMove(c.Request.Context(), moveID, h.GetActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.respondWithMove(c, moveID)
}

// transition handles the confirm/reject shape: optional notes body, shared
// error path, refreshed move in the response.
func (h *MoveHandler) transition(c *gin.Context, fn func(ctx context.Context, moveID id.ID, approverID, notes string) error) {
	moveID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.TransitionMoveRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	if err := fn(c.Request.Context(), moveID, h.GetActorID(c), req.Notes); err != nil {
		h.Error(c, err)
		return
	}

	h.respondWithMove(c, moveID)
}

func (h *MoveHandler) respondWithMove(c *gin.Context, moveID id.ID) {
	move, err := h.facade.GetMove(c.Request.Context(), moveID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.MoveToResponse(move))
}
