package appointment

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BorcilaVasile/medical-appointment-api/internal/middleware"
	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/service/availability"
	"github.com/BorcilaVasile/medical-appointment-api/internal/service/booking"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/apperror"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/httputil"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/validator"
)

type Handler struct {
	bookingSvc   *booking.Service
	availability *availability.Service
	validate     validator.Validator
}

func NewHandler(bookingSvc *booking.Service, availabilitySvc *availability.Service) *Handler {
	return &Handler{
		bookingSvc:   bookingSvc,
		availability: availabilitySvc,
		validate:     validator.New(),
	}
}

// RegisterPublicRoutes exposes availability resolution without authentication.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/appointments/availability", h.GetAvailability)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.Book)
		appointments.GET("", h.List)
		appointments.GET("/:id", h.Get)
		appointments.POST("/:id/cancel", h.Cancel)
		appointments.POST("/:id/confirm", h.Confirm)
		appointments.POST("/:id/complete", h.Complete)
	}
}

func (h *Handler) GetAvailability(c *gin.Context) {
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

	days, err := h.availability.Resolve(c.Request.Context(), doctorID, from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, days)
}

func (h *Handler) Book(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperror.Forbidden("missing identity"))
		return
	}

	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperror.BadRequest("malformed request body", err))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		httputil.RespondWithError(c, apperror.BadRequest(err.Error(), err))
		return
	}

	// Patients book for themselves; the id in the body must match.
	if actor.IsPatient() && req.PatientID != actor.ID {
		httputil.RespondWithError(c, apperror.Forbidden("patients may only book for themselves"))
		return
	}

	appt, err := h.bookingSvc.Book(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appt)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperror.NotFound("appointment"))
		return
	}

	appt, err := h.bookingSvc.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.AppointmentFilters{
		FromDate: c.Query("from"),
		ToDate:   c.Query("to"),
	}

	if v := c.Query("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, apperror.BadRequest("invalid doctor ID", err))
			return
		}
		filters.DoctorID = id
	}
	if v := c.Query("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, apperror.BadRequest("invalid patient ID", err))
			return
		}
		filters.PatientID = id
	}
	if v := c.Query("clinic_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, apperror.BadRequest("invalid clinic ID", err))
			return
		}
		filters.ClinicID = id
	}
	if v := c.Query("status"); v != "" {
		filters.Status = model.AppointmentStatus(v)
	}

	appts, err := h.bookingSvc.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appts)
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperror.Forbidden("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperror.NotFound("appointment"))
		return
	}

	var req model.CancelAppointmentRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	appt, err := h.bookingSvc.Cancel(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

func (h *Handler) Confirm(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperror.Forbidden("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperror.NotFound("appointment"))
		return
	}

	appt, err := h.bookingSvc.Confirm(c.Request.Context(), id, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

func (h *Handler) Complete(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperror.Forbidden("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperror.NotFound("appointment"))
		return
	}

	var req model.CompleteAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperror.BadRequest("malformed request body", err))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		httputil.RespondWithError(c, apperror.BadRequest(err.Error(), err))
		return
	}

	appt, err := h.bookingSvc.Complete(c.Request.Context(), id, actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}
