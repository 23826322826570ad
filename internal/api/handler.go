package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/surpluslink/go-surpluslink/internal/coordinator"
	"github.com/surpluslink/go-surpluslink/internal/models"
	"github.com/surpluslink/go-surpluslink/internal/notify"
	"github.com/surpluslink/go-surpluslink/internal/repository"
	"github.com/surpluslink/go-surpluslink/internal/storage"
)

type Handler struct {
	coord       *coordinator.Coordinator
	profiles    repository.ProfileRepository
	photos      storage.PhotoStore
	broadcaster *notify.Broadcaster
}

func NewHandler(coord *coordinator.Coordinator, profiles repository.ProfileRepository, photos storage.PhotoStore, broadcaster *notify.Broadcaster) *Handler {
	return &Handler{
		coord:       coord,
		profiles:    profiles,
		photos:      photos,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	{
		api.POST("/donations", h.postDonation)
		api.GET("/donations/:id", h.getDonation)
		api.GET("/donations/:id/route", h.getRoute)
		api.GET("/donations/:id/custody", h.getCustody)

		api.POST("/donations/:id/claim", h.claim)
		api.POST("/donations/:id/reject", h.reject)
		api.POST("/donations/:id/cancel", h.cancel)
		api.POST("/donations/:id/accept", h.acceptMission)
		api.PATCH("/donations/:id/delivery-status", h.updateDeliveryStatus)
		api.POST("/donations/:id/confirm-pickup", h.confirmPickup)
		api.POST("/donations/:id/confirm-delivery", h.confirmDelivery)
		api.POST("/donations/:id/cancel-mission", h.cancelMission)
		api.POST("/donations/:id/complete", h.complete)

		api.GET("/feed", h.listFeed)
		api.GET("/missions", h.listMissions)
		api.GET("/stats", h.stats)
		api.GET("/utilization", h.utilization)

		api.PUT("/profiles/ngo/:id", h.upsertNGO)
		api.PUT("/profiles/volunteer/:id", h.upsertVolunteer)

		api.POST("/uploads", h.uploadPhoto)
		api.GET("/events", h.streamEvents)
	}
}

// respondError maps the typed error taxonomy onto HTTP. Every kind is
// recoverable at the caller: conflicts tell the client to refresh, custody
// errors block the confirm until evidence arrives.
func respondError(c *gin.Context, err error) {
	var (
		ve       *models.ValidationError
		conflict *models.ConflictError
		te       *models.TransitionError
		mp       *models.MissingPhotoError
		to       *models.TimeoutError
	)
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error(), "kind": string(conflict.Kind)})
	case errors.As(err, &te):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": te.Error(), "status": string(te.From)})
	case errors.As(err, &mp):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": mp.Error(), "checkpoint": mp.Checkpoint})
	case errors.As(err, &to):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": to.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) postDonation(c *gin.Context) {
	var in coordinator.PostDonationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.coord.PostDonation(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) getDonation(c *gin.Context) {
	d, err := h.coord.GetDonation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) listFeed(c *gin.Context) {
	ngoID := c.Query("ngo_id")
	if ngoID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ngo_id is required"})
		return
	}

	opts := coordinator.FeedOptions{Limit: 50}
	if cat := c.Query("category"); cat != "" {
		fc := models.FoodCategory(cat)
		opts.FoodCategory = &fc
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 200 {
			opts.Limit = lim
		}
	}

	feed, err := h.coord.ListFeed(c.Request.Context(), ngoID, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

type actorBody struct {
	NGOID       string `json:"ngo_id"`
	DonorID     string `json:"donor_id"`
	VolunteerID string `json:"volunteer_id"`
	ActorID     string `json:"actor_id"`
	Reason      string `json:"reason"`
	Photo       string `json:"photo"`
	Notes       string `json:"notes"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
	Status      string `json:"status"`
}

func (h *Handler) claim(c *gin.Context) {
	var body actorBody
	if err := c.ShouldBindJSON(&body); err != nil || body.NGOID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ngo_id is required"})
		return
	}

	d, err := h.coord.Claim(c.Request.Context(), body.NGOID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) reject(c *gin.Context) {
	var body actorBody
	if err := c.ShouldBindJSON(&body); err != nil || body.NGOID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ngo_id is required"})
		return
	}
	reason, ok := models.ParseRejectionReason(body.Reason)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown rejection reason"})
		return
	}

	d, err := h.coord.Reject(c.Request.Context(), body.NGOID, c.Param("id"), reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) cancel(c *gin.Context) {
	var body actorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor := body.ActorID
	if actor == "" {
		actor = body.DonorID
	}
	if actor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor_id is required"})
		return
	}

	d, err := h.coord.CancelDonation(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) listMissions(c *gin.Context) {
	volID := c.Query("volunteer_id")
	if volID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volunteer_id is required"})
		return
	}

	missions, err := h.coord.ListAvailableMissions(c.Request.Context(), volID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"missions": missions, "count": len(missions)})
}

func (h *Handler) acceptMission(c *gin.Context) {
	var body actorBody
	if err := c.ShouldBindJSON(&body); err != nil || body.VolunteerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volunteer_id is required"})
		return
	}

	d, err := h.coord.AcceptMission(c.Request.Context(), body.VolunteerID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) updateDeliveryStatus(c *gin.Context) {
	var body actorBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	d, err := h.coord.UpdateDeliveryStatus(c.Request.Context(), c.Param("id"), models.DeliveryStatus(body.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) confirmPickup(c *gin.Context) {
	var body actorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.coord.ConfirmPickup(c.Request.Context(), c.Param("id"), body.ActorID, body.Photo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) confirmDelivery(c *gin.Context) {
	var body actorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.coord.ConfirmDelivery(c.Request.Context(), c.Param("id"), body.ActorID, body.Photo, body.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) cancelMission(c *gin.Context) {
	var body actorBody
	if err := c.ShouldBindJSON(&body); err != nil || body.VolunteerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volunteer_id is required"})
		return
	}
	reason, ok := models.ParseCancelReason(body.Reason)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown cancel reason"})
		return
	}

	d, err := h.coord.CancelMission(c.Request.Context(), c.Param("id"), body.VolunteerID, reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) complete(c *gin.Context) {
	var body actorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.coord.Complete(c.Request.Context(), c.Param("id"), body.ActorID, body.Rating, body.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) getRoute(c *gin.Context) {
	stops, err := h.coord.OptimizedRoute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stops": stops})
}

func (h *Handler) getCustody(c *gin.Context) {
	records, err := h.coord.CustodyLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *Handler) stats(c *gin.Context) {
	if donorID := c.Query("donor_id"); donorID != "" {
		st, err := h.coord.DonorStats(c.Request.Context(), donorID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
		return
	}
	if ngoID := c.Query("ngo_id"); ngoID != "" {
		st, err := h.coord.NGOStats(c.Request.Context(), ngoID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "donor_id or ngo_id is required"})
}

func (h *Handler) utilization(c *gin.Context) {
	ngoID := c.Query("ngo_id")
	if ngoID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ngo_id is required"})
		return
	}

	u, err := h.coord.Utilization(c.Request.Context(), ngoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) upsertNGO(c *gin.Context) {
	var p models.NGOProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.ID = c.Param("id")
	if p.DailyCapacity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "daily_capacity must not be negative"})
		return
	}

	if err := h.profiles.UpsertNGO(c.Request.Context(), &p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) upsertVolunteer(c *gin.Context) {
	var p models.VolunteerProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.ID = c.Param("id")

	if err := h.profiles.UpsertVolunteer(c.Request.Context(), &p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p, "tier": p.Tier()})
}

// uploadPhoto pushes evidence bytes to blob storage and returns the stable
// reference the confirm endpoints expect.
func (h *Handler) uploadPhoto(c *gin.Context) {
	if h.photos == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "photo storage not configured"})
		return
	}

	file, _, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	defer file.Close()

	folder := c.DefaultPostForm("folder", "custody")
	url, err := h.photos.Upload(c.Request.Context(), file, folder)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
