package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-bookings/internal/booking"
	"github.com/robertarktes/travel-bookings/internal/domain"
)

type createBookingRequest struct {
	Type   string `json:"type"`
	ItemID string `json:"itemId"`
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, domain.InvalidRequestf("malformed request body"))
		return
	}
	if req.Type == "" || req.ItemID == "" {
		writeError(w, r, h.logger, domain.InvalidRequestf("type and itemId are required"))
		return
	}

	view, err := h.bookings.Create(r.Context(), booking.CreateRequest{UserID: id.UserID, ItemType: req.Type, ItemID: req.ItemID})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Booking successful",
		"booking": view,
	})
}

func (h *Handlers) MyBookings(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	views, err := h.bookings.ListMine(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) AllBookings(w http.ResponseWriter, r *http.Request) {
	views, err := h.bookings.ListAll(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, domain.InvalidRequestf("invalid id"))
		return
	}

	view, err := h.bookings.Get(r.Context(), bookingID, id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, domain.InvalidRequestf("invalid id"))
		return
	}

	if err := h.bookings.Cancel(r.Context(), bookingID, id.UserID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Booking cancelled successfully."})
}

// AdminCancelBooking removes any user's booking.
func (h *Handlers) AdminCancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, domain.InvalidRequestf("invalid id"))
		return
	}

	if err := h.bookings.CancelAsAdmin(r.Context(), bookingID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Booking cancelled successfully."})
}

func (h *Handlers) RegenerateTicket(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, domain.InvalidRequestf("invalid id"))
		return
	}

	view, err := h.bookings.RegenerateTicket(r.Context(), bookingID, id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
