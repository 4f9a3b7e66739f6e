package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-bookings/internal/domain"
)

func catalogRef(r *http.Request) (domain.ItemRef, error) {
	t, err := domain.ParseItemType(chi.URLParam(r, "type"))
	if err != nil {
		return domain.ItemRef{}, err
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return domain.ItemRef{}, domain.InvalidRequestf("invalid id")
	}
	return domain.ItemRef{Type: t, ID: id}, nil
}

func (h *Handlers) ListCatalog(w http.ResponseWriter, r *http.Request) {
	t, err := domain.ParseItemType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items, err := h.catalog.List(r.Context(), t)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handlers) GetCatalogItem(w http.ResponseWriter, r *http.Request) {
	ref, err := catalogRef(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	item, err := h.catalog.Resolve(r.Context(), ref)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handlers) CreateCatalogItem(w http.ResponseWriter, r *http.Request) {
	t, err := domain.ParseItemType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	item, err := decodeCatalogItem(r, t)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	assignID(item, uuid.New())

	if err := h.catalog.Create(r.Context(), item); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handlers) UpdateCatalogItem(w http.ResponseWriter, r *http.Request) {
	ref, err := catalogRef(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	item, err := decodeCatalogItem(r, ref.Type)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	assignID(item, ref.ID)

	if err := h.catalog.Update(r.Context(), item); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handlers) DeleteCatalogItem(w http.ResponseWriter, r *http.Request) {
	ref, err := catalogRef(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.catalog.Delete(r.Context(), ref); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": string(ref.Type) + " deleted"})
}

func decodeCatalogItem(r *http.Request, t domain.ItemType) (domain.CatalogItem, error) {
	var item domain.CatalogItem
	switch t {
	case domain.ItemTypeEvent:
		item = &domain.Event{}
	case domain.ItemTypeFlight:
		item = &domain.Flight{}
	case domain.ItemTypeHotel:
		item = &domain.Hotel{}
	default:
		return nil, domain.InvalidRequestf("invalid booking type %q", t)
	}
	if err := json.NewDecoder(r.Body).Decode(item); err != nil {
		return nil, domain.InvalidRequestf("malformed request body")
	}
	return item, nil
}

// assignID overrides any client-supplied id.
func assignID(item domain.CatalogItem, id uuid.UUID) {
	switch v := item.(type) {
	case *domain.Event:
		v.ID = id
	case *domain.Flight:
		v.ID = id
	case *domain.Hotel:
		v.ID = id
	}
}
