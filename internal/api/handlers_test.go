package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/slatehq/slate/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := store.New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	return New(s, "*")
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode JSON: %v\nbody: %s", err, rr.Body.String())
	}
	return result
}

func createClient(t *testing.T, h http.Handler, name string, capacity int) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"weekly_capacity":%d}`, name, capacity)
	rr := doRequest(t, h, "POST", "/api/clients", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create client: status = %d, body: %s", rr.Code, rr.Body.String())
	}
	return decodeJSON(t, rr)["id"].(string)
}

func createItem(t *testing.T, h http.Handler, clientID, body string) string {
	t.Helper()
	rr := doRequest(t, h, "POST", "/api/clients/"+clientID+"/items", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create item: status = %d, body: %s", rr.Code, rr.Body.String())
	}
	return decodeJSON(t, rr)["id"].(string)
}

func TestCreateClient(t *testing.T) {
	h := newTestServer(t).Handler()

	rr := doRequest(t, h, "POST", "/api/clients", `{"name":"Acme","weekly_capacity":5}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	result := decodeJSON(t, rr)
	if result["name"] != "Acme" {
		t.Errorf("name = %v, want Acme", result["name"])
	}
}

func TestCreateClient_RejectsNonPositiveCapacity(t *testing.T) {
	h := newTestServer(t).Handler()

	for _, capacity := range []int{0, -3} {
		body := fmt.Sprintf(`{"name":"Acme","weekly_capacity":%d}`, capacity)
		rr := doRequest(t, h, "POST", "/api/clients", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("capacity %d: status = %d, want 400", capacity, rr.Code)
		}
	}
}

func TestCreateItem_Validation(t *testing.T) {
	h := newTestServer(t).Handler()
	clientID := createClient(t, h, "Acme", 5)

	t.Run("pinned requires a date", func(t *testing.T) {
		rr := doRequest(t, h, "POST", "/api/clients/"+clientID+"/items", `{"title":"Post","kind":"pinned"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("flow must not carry a date", func(t *testing.T) {
		rr := doRequest(t, h, "POST", "/api/clients/"+clientID+"/items", `{"title":"Post","kind":"flow","pinned_date":"2024-03-06"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("unknown client 404s", func(t *testing.T) {
		rr := doRequest(t, h, "POST", "/api/clients/nope/items", `{"title":"Post"}`)
		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rr.Code)
		}
	})
}

func TestCreateItem_FlowPriorityAppends(t *testing.T) {
	h := newTestServer(t).Handler()
	clientID := createClient(t, h, "Acme", 5)

	first := createItem(t, h, clientID, `{"title":"One"}`)
	second := createItem(t, h, clientID, `{"title":"Two"}`)

	rr := doRequest(t, h, "GET", "/api/clients/"+clientID+"/items", "")
	var items []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0]["id"] != first || items[1]["id"] != second {
		t.Errorf("order = %v,%v, want %s,%s", items[0]["id"], items[1]["id"], first, second)
	}
}

func TestStatusTransitions(t *testing.T) {
	h := newTestServer(t).Handler()
	clientID := createClient(t, h, "Acme", 5)
	itemID := createItem(t, h, clientID, `{"title":"Post"}`)
	statusPath := "/api/items/" + itemID + "/status"

	t.Run("forward skip", func(t *testing.T) {
		rr := doRequest(t, h, "PATCH", statusPath, `{"status":"finished"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
		}
		if result := decodeJSON(t, rr); result["changed"] != true {
			t.Errorf("changed = %v, want true", result["changed"])
		}
	})

	t.Run("illegal backward edge", func(t *testing.T) {
		rr := doRequest(t, h, "PATCH", statusPath, `{"status":"draft"}`)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422, body: %s", rr.Code, rr.Body.String())
		}
		if result := decodeJSON(t, rr); result["code"] != "invalid_transition" {
			t.Errorf("code = %v, want invalid_transition", result["code"])
		}
	})

	t.Run("reopen then reject requires feedback", func(t *testing.T) {
		rr := doRequest(t, h, "PATCH", statusPath, `{"status":"approved"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("reopen: status = %d, body: %s", rr.Code, rr.Body.String())
		}

		rr = doRequest(t, h, "PATCH", statusPath, `{"status":"rejected"}`)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("reject without feedback: status = %d", rr.Code)
		}
		if result := decodeJSON(t, rr); result["code"] != "missing_feedback" {
			t.Errorf("code = %v, want missing_feedback", result["code"])
		}

		rr = doRequest(t, h, "PATCH", statusPath, `{"status":"rejected","feedback":"wrong hashtags"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("reject with feedback: status = %d, body: %s", rr.Code, rr.Body.String())
		}

		// Feedback history is recorded on the item.
		rr = doRequest(t, h, "GET", "/api/items/"+itemID, "")
		item := decodeJSON(t, rr)
		feedback, ok := item["feedback"].([]any)
		if !ok || len(feedback) != 1 {
			t.Fatalf("feedback = %v, want one entry", item["feedback"])
		}
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		rr := doRequest(t, h, "PATCH", statusPath, `{"status":"rejected"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
		}
		if result := decodeJSON(t, rr); result["changed"] != false {
			t.Errorf("changed = %v, want false", result["changed"])
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		rr := doRequest(t, h, "PATCH", statusPath, `{"status":"archived"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})
}

func TestReorder(t *testing.T) {
	h := newTestServer(t).Handler()
	clientID := createClient(t, h, "Acme", 5)
	a := createItem(t, h, clientID, `{"title":"A"}`)
	b := createItem(t, h, clientID, `{"title":"B"}`)

	body := fmt.Sprintf(`{"item_ids":[%q,%q]}`, b, a)
	rr := doRequest(t, h, "POST", "/api/clients/"+clientID+"/reorder", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, h, "GET", "/api/clients/"+clientID+"/items", "")
	var items []map[string]any
	json.Unmarshal(rr.Body.Bytes(), &items)
	if items[0]["id"] != b {
		t.Errorf("first item = %v, want %s", items[0]["id"], b)
	}
}

func TestSchedule(t *testing.T) {
	h := newTestServer(t).Handler()
	clientID := createClient(t, h, "Acme", 5) // dailyLimit 1

	createItem(t, h, clientID, `{"title":"First"}`)
	createItem(t, h, clientID, `{"title":"Second"}`)
	createItem(t, h, clientID, `{"title":"Pinned","kind":"pinned","pinned_date":"2024-03-05"}`)

	// Anchor on a Monday for a predictable layout.
	rr := doRequest(t, h, "GET", "/api/clients/"+clientID+"/schedule?anchor=2024-03-04", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	result := decodeJSON(t, rr)

	if result["daily_limit"] != float64(1) {
		t.Errorf("daily_limit = %v, want 1", result["daily_limit"])
	}
	weeks, ok := result["weeks"].([]any)
	if !ok || len(weeks) != 1 {
		t.Fatalf("weeks = %v, want one bucket", result["weeks"])
	}

	week := weeks[0].(map[string]any)
	if week["week_start"] != "2024-03-04" || week["week_end"] != "2024-03-10" {
		t.Errorf("week span = %v..%v, want 2024-03-04..2024-03-10", week["week_start"], week["week_end"])
	}
	slots := week["slots"].([]any)
	if len(slots) != 3 {
		t.Fatalf("slots = %d, want 3", len(slots))
	}

	// Pinned item booked Tuesday; flow items fill Wednesday and Thursday.
	gotDates := make(map[string]string)
	for _, raw := range slots {
		slot := raw.(map[string]any)
		gotDates[slot["title"].(string)] = slot["visual_date"].(string)
		if slot["is_overloaded"] == true {
			t.Errorf("slot %v overloaded, want none", slot["title"])
		}
	}
	want := map[string]string{"Pinned": "2024-03-05", "First": "2024-03-06", "Second": "2024-03-07"}
	for title, date := range want {
		if gotDates[title] != date {
			t.Errorf("%s on %s, want %s", title, gotDates[title], date)
		}
	}
}

func TestSchedule_BadAnchor(t *testing.T) {
	h := newTestServer(t).Handler()
	clientID := createClient(t, h, "Acme", 5)

	rr := doRequest(t, h, "GET", "/api/clients/"+clientID+"/schedule?anchor=March-4", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSchedule_UnknownClient(t *testing.T) {
	h := newTestServer(t).Handler()
	rr := doRequest(t, h, "GET", "/api/clients/nope/schedule", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestUpdateItem(t *testing.T) {
	h := newTestServer(t).Handler()
	clientID := createClient(t, h, "Acme", 5)
	itemID := createItem(t, h, clientID, `{"title":"Post"}`)

	// Convert to pinned with a date.
	rr := doRequest(t, h, "PATCH", "/api/items/"+itemID, `{"kind":"pinned","pinned_date":"2024-03-08"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	result := decodeJSON(t, rr)
	if result["kind"] != "pinned" || result["pinned_date"] != "2024-03-08" {
		t.Errorf("item = %v/%v, want pinned/2024-03-08", result["kind"], result["pinned_date"])
	}

	// Dropping the kind back to flow must also drop the date.
	rr = doRequest(t, h, "PATCH", "/api/items/"+itemID, `{"kind":"flow","pinned_date":""}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteItem(t *testing.T) {
	h := newTestServer(t).Handler()
	clientID := createClient(t, h, "Acme", 5)
	itemID := createItem(t, h, clientID, `{"title":"Post"}`)

	rr := doRequest(t, h, "DELETE", "/api/items/"+itemID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	rr = doRequest(t, h, "GET", "/api/items/"+itemID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
