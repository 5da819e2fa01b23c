package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/slatehq/slate/internal/model"
	"github.com/slatehq/slate/internal/schedule"
)

// slotJSON is one allocated slot as served to calendar and table views.
type slotJSON struct {
	ItemID     string `json:"item_id"`
	Title      string `json:"title"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	VisualDate string `json:"visual_date"`
	WeekNumber int    `json:"week_number"`
	Overloaded bool   `json:"is_overloaded"`
	Stale      bool   `json:"is_stale"`
}

type weekJSON struct {
	WeekNumber int        `json:"week_number"`
	WeekStart  string     `json:"week_start"`
	WeekEnd    string     `json:"week_end"`
	TotalSlots int        `json:"total_slots"`
	Overloaded bool       `json:"is_overloaded"`
	Slots      []slotJSON `json:"slots"`
}

type overrunJSON struct {
	ItemID string `json:"item_id"`
	Day    string `json:"day"`
	Count  int    `json:"count"`
}

type scheduleResponse struct {
	ClientID   string        `json:"client_id"`
	Anchor     string        `json:"anchor"`
	DailyLimit int           `json:"daily_limit"`
	Weeks      []weekJSON    `json:"weeks"`
	Overruns   []overrunJSON `json:"overruns,omitempty"`
}

// handleSchedule runs the engine over the client's backlog for one anchor
// date. The anchor defaults to today (UTC); weeks=N truncates the response to
// the first N week buckets.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")

	client, err := s.store.GetClient(r.Context(), clientID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return
	}

	anchor := time.Now().UTC()
	if v := r.URL.Query().Get("anchor"); v != "" {
		anchor, err = time.Parse(model.DayFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "anchor must be formatted as "+model.DayFormat)
			return
		}
	}

	maxWeeks := 0
	if v := r.URL.Query().Get("weeks"); v != "" {
		maxWeeks, err = strconv.Atoi(v)
		if err != nil || maxWeeks < 1 {
			writeError(w, http.StatusBadRequest, "weeks must be a positive integer")
			return
		}
	}

	items, err := s.store.ListItems(r.Context(), model.ItemFilter{ClientID: clientID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	resp := buildSchedule(client, items, anchor, maxWeeks)
	for _, o := range resp.Overruns {
		slog.Warn("allocation overrun", "client_id", clientID, "item_id", o.ItemID, "day", o.Day, "count", o.Count)
	}
	writeJSON(w, http.StatusOK, resp)
}

// buildSchedule converts the backlog, runs the engine, and shapes the output
// for the wire.
func buildSchedule(client *model.Client, items []model.Item, anchor time.Time, maxWeeks int) scheduleResponse {
	inputs := make([]schedule.Item, len(items))
	byID := make(map[string]model.Item, len(items))
	for i, it := range items {
		inputs[i] = it.ScheduleInput()
		byID[it.ID] = it
	}

	capacity := schedule.Capacity{WeeklyItems: client.WeeklyCapacity}
	slots, overruns := schedule.Allocate(inputs, capacity, anchor)
	groups := schedule.GroupByWeek(slots)
	if maxWeeks > 0 && len(groups) > maxWeeks {
		groups = groups[:maxWeeks]
	}

	weeks := make([]weekJSON, len(groups))
	for i, g := range groups {
		wk := weekJSON{
			WeekNumber: g.WeekNumber,
			WeekStart:  schedule.DayKey(g.WeekStart),
			WeekEnd:    schedule.DayKey(g.WeekEnd),
			TotalSlots: g.TotalSlots,
			Overloaded: g.Overloaded,
			Slots:      make([]slotJSON, len(g.Slots)),
		}
		for j, slot := range g.Slots {
			item := byID[slot.Item.ID]
			wk.Slots[j] = slotJSON{
				ItemID:     slot.Item.ID,
				Title:      item.Title,
				Kind:       item.Kind,
				Status:     item.Status,
				VisualDate: schedule.DayKey(slot.VisualDate),
				WeekNumber: slot.WeekNumber,
				Overloaded: slot.Overloaded,
				Stale:      schedule.IsStale(slot.Item, slot.VisualDate),
			}
		}
		weeks[i] = wk
	}

	resp := scheduleResponse{
		ClientID:   client.ID,
		Anchor:     schedule.DayKey(anchor),
		DailyLimit: schedule.DailyLimit(client.WeeklyCapacity),
		Weeks:      weeks,
	}
	for _, o := range overruns {
		resp.Overruns = append(resp.Overruns, overrunJSON{
			ItemID: o.ItemID,
			Day:    schedule.DayKey(o.Day),
			Count:  o.Count,
		})
	}
	return resp
}
