package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slatehq/slate/internal/lifecycle"
	"github.com/slatehq/slate/internal/model"
)

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

type clientRequest struct {
	Name           string `json:"name"`
	WeeklyCapacity int    `json:"weekly_capacity"`
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	// The scheduling engine assumes a positive capacity; enforce it here.
	if req.WeeklyCapacity < 1 {
		writeError(w, http.StatusBadRequest, "weekly_capacity must be at least 1")
		return
	}

	client := model.NewClient(uuid.New().String(), req.Name, req.WeeklyCapacity)
	if err := s.store.CreateClient(r.Context(), client); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create client")
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}
	if clients == nil {
		clients = []model.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	client, err := s.store.GetClient(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return
	}

	counts, err := s.store.CountByStatus(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count items")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"client":        client,
		"status_counts": counts,
	})
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := s.store.GetClient(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return
	}

	var req struct {
		Name           *string `json:"name"`
		WeeklyCapacity *int    `json:"weekly_capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := existing.Name
	capacity := existing.WeeklyCapacity
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
	}
	if req.WeeklyCapacity != nil {
		capacity = *req.WeeklyCapacity
		if capacity < 1 {
			writeError(w, http.StatusBadRequest, "weekly_capacity must be at least 1")
			return
		}
	}

	if err := s.store.UpdateClient(r.Context(), id, name, capacity); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update client")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.store.DeleteClient(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type itemRequest struct {
	Title      string  `json:"title"`
	Kind       string  `json:"kind"`
	PinnedDate *string `json:"pinned_date"`
	SourceURL  string  `json:"source_url"`
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")
	if _, err := s.store.GetClient(r.Context(), clientID); errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "client not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Kind == "" {
		req.Kind = model.KindFlow
	}
	pinnedDate, err := validateKind(req.Kind, req.PinnedDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// New flow items go to the back of the queue.
	priority := 0
	if req.Kind == model.KindFlow {
		existing, err := s.store.ListItems(r.Context(), model.ItemFilter{
			ClientID: clientID,
			Kind:     []string{model.KindFlow},
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list items")
			return
		}
		for _, it := range existing {
			if it.PriorityIndex >= priority {
				priority = it.PriorityIndex + 1
			}
		}
	}

	item := model.NewItem(uuid.New().String(), clientID, req.Title, req.Kind, req.SourceURL, priority)
	item.PinnedDate = pinnedDate

	if err := s.store.CreateItem(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	filter := model.ItemFilter{
		ClientID: r.PathValue("id"),
		Status:   splitComma(r.URL.Query().Get("status")),
		Kind:     splitComma(r.URL.Query().Get("kind")),
	}

	items, err := s.store.ListItems(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	item, err := s.store.GetItem(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := s.store.GetItem(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	var req struct {
		Title      *string `json:"title"`
		Brief      *string `json:"brief"`
		Kind       *string `json:"kind"`
		PinnedDate *string `json:"pinned_date"`
		SourceURL  *string `json:"source_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item := existing.Item
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			writeError(w, http.StatusBadRequest, "title must not be empty")
			return
		}
		item.Title = *req.Title
	}
	if req.Brief != nil {
		item.Brief = *req.Brief
	}
	if req.SourceURL != nil {
		item.SourceURL = *req.SourceURL
	}
	if req.Kind != nil {
		item.Kind = *req.Kind
	}
	if req.PinnedDate != nil {
		if *req.PinnedDate == "" {
			item.PinnedDate = nil
		} else {
			item.PinnedDate = req.PinnedDate
		}
	}

	pinnedDate, err := validateKind(item.Kind, item.PinnedDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item.PinnedDate = pinnedDate

	if err := s.store.UpdateItem(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.store.DeleteItem(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Status transitions
// ---------------------------------------------------------------------------

type statusRequest struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

// handleUpdateStatus gates every status write behind the lifecycle graph.
// Requesting the current status is a no-op, answered without consulting the
// graph.
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	to := lifecycle.Status(req.Status)
	if !lifecycle.Valid(to) {
		writeError(w, http.StatusBadRequest, "unknown status: "+req.Status)
		return
	}

	item, err := s.store.GetItem(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	if string(to) == item.Status {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":      id,
			"status":  item.Status,
			"changed": false,
		})
		return
	}

	feedbackText := strings.TrimSpace(req.Feedback)
	if err := lifecycle.Validate(lifecycle.Status(item.Status), to, feedbackText != ""); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": err.Error(),
			"code":  transitionErrorCode(err),
		})
		return
	}

	var feedback *model.Feedback
	if to == lifecycle.StatusRejected {
		f := model.NewFeedback(uuid.New().String(), id, feedbackText)
		feedback = &f
	}

	if err := s.store.UpdateItemStatus(r.Context(), id, string(to), feedback); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"status":  string(to),
		"changed": true,
	})
}

func transitionErrorCode(err error) string {
	var invalid *lifecycle.InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		return "invalid_transition"
	case errors.Is(err, lifecycle.ErrMissingFeedback):
		return "missing_feedback"
	default:
		return "invalid_request"
	}
}

// ---------------------------------------------------------------------------
// Reorder
// ---------------------------------------------------------------------------

type reorderRequest struct {
	ItemIDs []string `json:"item_ids"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.ItemIDs) == 0 {
		writeError(w, http.StatusBadRequest, "item_ids is required")
		return
	}

	if err := s.store.ReorderItems(r.Context(), clientID, req.ItemIDs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reorder items")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reordered": len(req.ItemIDs)})
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// validateKind checks the kind/pinned-date pairing: pinned items need a valid
// calendar day, flow items must not carry one.
func validateKind(kind string, pinnedDate *string) (*string, error) {
	switch kind {
	case model.KindFlow:
		if pinnedDate != nil {
			return nil, errBadRequest("pinned_date is only valid for pinned items")
		}
		return nil, nil
	case model.KindPinned:
		if pinnedDate == nil || *pinnedDate == "" {
			return nil, errBadRequest("pinned items require a pinned_date")
		}
		if _, err := time.Parse(model.DayFormat, *pinnedDate); err != nil {
			return nil, errBadRequest("pinned_date must be formatted as " + model.DayFormat)
		}
		return pinnedDate, nil
	default:
		return nil, errBadRequest("kind must be flow or pinned")
	}
}

type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }
