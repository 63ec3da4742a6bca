package handler

import (
	"errors"
	"net/http"
	"strconv"

	"parking_reservation/internal/api/middleware"
	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
)

const adminReservationListLimit = 100

type ReservationHandler struct {
	reservationService *service.ReservationService
	parkingService     *service.ParkingService
}

func NewReservationHandler(rs *service.ReservationService, ps *service.ParkingService) *ReservationHandler {
	return &ReservationHandler{reservationService: rs, parkingService: ps}
}

// GET /api/user/lots
func (h *ReservationHandler) ListLots(c *gin.Context) {
	lots, err := h.parkingService.ListLotsUser(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list parking lots"})
		return
	}
	c.JSON(http.StatusOK, lots)
}

// POST /api/user/reserve
func (h *ReservationHandler) Reserve(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var dto domain.ReserveDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reservations, err := h.reservationService.Reserve(c.Request.Context(), principal, dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "parking lot not found"})
		case errors.Is(err, repository.ErrNoSpotAvailable):
			c.JSON(http.StatusBadRequest, gin.H{"error": "no spot available in this lot"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reserve spot"})
		}
		return
	}

	requested := dto.Quantity
	if requested == 0 {
		requested = 1
	}
	c.JSON(http.StatusCreated, gin.H{
		"reservations": reservations,
		"booked":       len(reservations),
		"requested":    requested,
	})
}

// POST /api/user/release/:id
func (h *ReservationHandler) Release(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	reservation, err := h.reservationService.Release(c.Request.Context(), principal, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not release reservation"})
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// GET /api/user/reservations
func (h *ReservationHandler) ListOwn(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	reservations, err := h.reservationService.ListUserReservations(c.Request.Context(), principal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list reservations"})
		return
	}
	c.JSON(http.StatusOK, reservations)
}

// GET /api/admin/reservations
func (h *ReservationHandler) ListAll(c *gin.Context) {
	limit := adminReservationListLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	reservations, err := h.reservationService.ListAllReservations(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list reservations"})
		return
	}
	c.JSON(http.StatusOK, reservations)
}
