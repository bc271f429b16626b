package unavailability

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BorcilaVasile/medical-appointment-api/internal/middleware"
	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/service/unavailability"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/apperror"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/httputil"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/validator"
)

type Handler struct {
	service  *unavailability.Service
	validate validator.Validator
}

func NewHandler(service *unavailability.Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	blocks := r.Group("/unavailability")
	{
		blocks.POST("", h.Declare)
		blocks.GET("", h.List)
		blocks.DELETE("/:id", h.Revoke)
	}
}

func (h *Handler) Declare(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperror.Forbidden("missing identity"))
		return
	}

	var req model.DeclareUnavailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperror.BadRequest("malformed request body", err))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		httputil.RespondWithError(c, apperror.BadRequest(err.Error(), err))
		return
	}

	// Doctors declare their own blackouts; admins may act for anyone.
	if actor.Role != model.RoleAdmin {
		if !actor.IsDoctor() || req.DoctorID != actor.ID {
			httputil.RespondWithError(c, apperror.Forbidden("doctors may only block their own calendar"))
			return
		}
	}

	block, err := h.service.Declare(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, block)
}

func (h *Handler) List(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Query("doctor_id"))
	if err != nil {
		httputil.RespondWithError(c, apperror.BadRequest("invalid doctor ID", err))
		return
	}

	from := c.Query("from")
	to := c.Query("to")
	if to == "" {
		to = from
	}

	blocks, err := h.service.List(c.Request.Context(), doctorID, from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, blocks)
}

func (h *Handler) Revoke(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperror.Forbidden("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperror.NotFound("unavailable block"))
		return
	}

	if err := h.service.Revoke(c.Request.Context(), id, actor); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"revoked": id})
}
