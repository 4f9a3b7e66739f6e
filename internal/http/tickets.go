package http

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/travel-bookings/internal/domain"
)

func (h *Handlers) DownloadTicket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	if _, err := domain.ParseTicketFileName(name); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rc, err := h.tickets.Open(r.Context(), name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WithField("file", name).WithError(err).Warn("ticket download interrupted")
	}
}
