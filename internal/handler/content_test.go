package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/olegiv/clubportal-go/internal/cache"
	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/store"
)

// contentRouter mounts a content handler the way the application router
// does, so URL parameters resolve.
func contentRouter(h *ContentHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/reorder", h.Reorder)
	return r
}

func createPerson(t *testing.T, db *sql.DB, group, name string, sortOrder int64) model.Person {
	t.Helper()

	now := time.Now()
	person, err := store.New(db).CreatePerson(context.Background(), store.CreatePersonParams{
		ID:        uuid.NewString(),
		GroupSlug: group,
		Name:      name,
		SortOrder: sortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	return person
}

func TestPersonCreate(t *testing.T) {
	db := testDB(t)
	spy := &spyInvalidator{}
	h := contentRouter(NewPeopleHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/", map[string]any{
		"group_slug": "board",
		"name":       "Dana Whitfield",
		"title":      "President",
		"sort_order": 2,
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var person model.Person
	decodeSuccess(t, rec, &person)
	if person.ID == "" {
		t.Error("created person has no id")
	}
	if person.GroupSlug != "board" || person.Name != "Dana Whitfield" || person.SortOrder != 2 {
		t.Errorf("person = %+v", person)
	}

	want := cache.GroupOfKind(model.KindPerson, "board")
	if len(spy.scopes) != 1 || spy.scopes[0] != want {
		t.Errorf("scopes = %v, want [%v]", spy.scopes, want)
	}
}

func TestPersonCreate_MissingRequired(t *testing.T) {
	db := testDB(t)
	spy := &spyInvalidator{}
	h := contentRouter(NewPeopleHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/", map[string]any{
		"group_slug": "board",
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); !strings.Contains(msg, "name is required") {
		t.Errorf("error = %q", msg)
	}
	if len(spy.scopes) != 0 {
		t.Errorf("rejected create must not invalidate, got %v", spy.scopes)
	}
}

func TestPersonCreate_FieldTypeMismatch(t *testing.T) {
	db := testDB(t)
	h := contentRouter(NewPeopleHandler(db, &spyInvalidator{}, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/", map[string]any{
		"group_slug": "board",
		"name":       "Dana Whitfield",
		"sort_order": "first",
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); !strings.Contains(msg, "sort_order must be a number") {
		t.Errorf("error = %q", msg)
	}
}

func TestPersonCreate_UnknownFieldsDropped(t *testing.T) {
	db := testDB(t)
	h := contentRouter(NewPeopleHandler(db, &spyInvalidator{}, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/", map[string]any{
		"group_slug": "board",
		"name":       "Dana Whitfield",
		"role":       "admin",
		"id":         "attacker-chosen",
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var person model.Person
	decodeSuccess(t, rec, &person)
	if person.ID == "attacker-chosen" {
		t.Error("payload id must not be persisted")
	}
}

func TestPersonCreate_GroupSlugNormalized(t *testing.T) {
	db := testDB(t)
	spy := &spyInvalidator{}
	h := contentRouter(NewPeopleHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/", map[string]any{
		"group_slug": "Board Members",
		"name":       "Dana Whitfield",
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var person model.Person
	decodeSuccess(t, rec, &person)
	if person.GroupSlug != "board-members" {
		t.Errorf("group_slug = %q, want board-members", person.GroupSlug)
	}

	want := cache.GroupOfKind(model.KindPerson, "board-members")
	if len(spy.scopes) != 1 || spy.scopes[0] != want {
		t.Errorf("scopes = %v, want [%v]", spy.scopes, want)
	}
}

func TestPersonUpdate_SameGroup(t *testing.T) {
	db := testDB(t)
	person := createPerson(t, db, "board", "Dana Whitfield", 1)

	spy := &spyInvalidator{}
	h := contentRouter(NewPeopleHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPut, "/"+person.ID, map[string]any{
		"title": "Chief Investment Officer",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var updated model.Person
	decodeSuccess(t, rec, &updated)
	if updated.Title != "Chief Investment Officer" {
		t.Errorf("title = %q", updated.Title)
	}
	if updated.Name != "Dana Whitfield" {
		t.Errorf("untouched field changed: name = %q", updated.Name)
	}

	want := cache.GroupOfKind(model.KindPerson, "board")
	if len(spy.scopes) != 1 || spy.scopes[0] != want {
		t.Errorf("scopes = %v, want [%v]", spy.scopes, want)
	}
}

func TestPersonUpdate_GroupChangeWidensScope(t *testing.T) {
	db := testDB(t)
	person := createPerson(t, db, "board", "Dana Whitfield", 1)

	spy := &spyInvalidator{}
	h := contentRouter(NewPeopleHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPut, "/"+person.ID, map[string]any{
		"group_slug": "alumni",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	want := cache.AllOfKind(model.KindPerson)
	if len(spy.scopes) != 1 || spy.scopes[0] != want {
		t.Errorf("scopes = %v, want [%v]", spy.scopes, want)
	}
}

func TestPersonUpdate_NoValidFields(t *testing.T) {
	db := testDB(t)
	person := createPerson(t, db, "board", "Dana Whitfield", 1)

	spy := &spyInvalidator{}
	h := contentRouter(NewPeopleHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPut, "/"+person.ID, map[string]any{
		"favorite_color": "green",
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "No valid fields to update" {
		t.Errorf("error = %q", msg)
	}
	if len(spy.scopes) != 0 {
		t.Errorf("no-op update must not invalidate, got %v", spy.scopes)
	}
}

func TestPersonUpdate_NotFound(t *testing.T) {
	db := testDB(t)
	h := contentRouter(NewPeopleHandler(db, &spyInvalidator{}, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPut, "/"+uuid.NewString(), map[string]any{
		"name": "Nobody",
	}))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Person not found" {
		t.Errorf("error = %q", msg)
	}
}

func TestPersonDelete_Idempotent(t *testing.T) {
	db := testDB(t)
	person := createPerson(t, db, "board", "Dana Whitfield", 1)

	spy := &spyInvalidator{}
	h := contentRouter(NewPeopleHandler(db, spy, nil))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/"+person.ID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("delete %d status = %d, want 200", i+1, rec.Code)
		}
	}

	if _, err := store.New(db).GetPersonByID(context.Background(), person.ID); err == nil {
		t.Error("person still present after delete")
	}

	want := cache.AllOfKind(model.KindPerson)
	for i, scope := range spy.scopes {
		if scope != want {
			t.Errorf("scope %d = %v, want %v", i, scope, want)
		}
	}
}

func TestPersonReorder(t *testing.T) {
	db := testDB(t)
	first := createPerson(t, db, "board", "First", 0)
	second := createPerson(t, db, "board", "Second", 1)

	spy := &spyInvalidator{}
	h := contentRouter(NewPeopleHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/reorder", map[string]any{
		"items": []map[string]any{
			{"id": first.ID, "sort_order": 1},
			{"id": second.ID, "sortOrder": 0},
		},
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Updated int `json:"updated"`
	}
	decodeSuccess(t, rec, &result)
	if result.Updated != 2 {
		t.Errorf("updated = %d, want 2", result.Updated)
	}

	people, err := store.New(db).ListPeopleByGroup(context.Background(), "board")
	if err != nil {
		t.Fatalf("ListPeopleByGroup: %v", err)
	}
	if len(people) != 2 || people[0].ID != second.ID || people[1].ID != first.ID {
		t.Errorf("order after reorder = %v", people)
	}

	want := cache.AllOfKind(model.KindPerson)
	if len(spy.scopes) != 1 || spy.scopes[0] != want {
		t.Errorf("scopes = %v, want [%v]", spy.scopes, want)
	}
}

func TestPersonReorder_UnknownIDRollsBack(t *testing.T) {
	db := testDB(t)
	person := createPerson(t, db, "board", "Dana Whitfield", 5)

	spy := &spyInvalidator{}
	h := contentRouter(NewPeopleHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/reorder", map[string]any{
		"items": []map[string]any{
			{"id": person.ID, "sort_order": 0},
			{"id": uuid.NewString(), "sort_order": 1},
		},
	}))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	// The batch failed, so the first item's write must have rolled back.
	got, err := store.New(db).GetPersonByID(context.Background(), person.ID)
	if err != nil {
		t.Fatalf("GetPersonByID: %v", err)
	}
	if got.SortOrder != 5 {
		t.Errorf("sort_order = %d, want 5 (rolled back)", got.SortOrder)
	}
	if len(spy.scopes) != 0 {
		t.Errorf("failed reorder must not invalidate, got %v", spy.scopes)
	}
}

func TestPersonReorder_MalformedItem(t *testing.T) {
	db := testDB(t)
	h := contentRouter(NewPeopleHandler(db, &spyInvalidator{}, nil))

	tests := []struct {
		name    string
		payload map[string]any
		wantMsg string
	}{
		{
			name:    "empty list",
			payload: map[string]any{"items": []map[string]any{}},
			wantMsg: "items must be a non-empty list",
		},
		{
			name: "missing id",
			payload: map[string]any{"items": []map[string]any{
				{"sort_order": 1},
			}},
			wantMsg: "item 0: id must be a non-empty string",
		},
		{
			name: "missing sort order",
			payload: map[string]any{"items": []map[string]any{
				{"id": "abc"},
			}},
			wantMsg: "item 0: sort_order must be a number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/reorder", tt.payload))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if msg := decodeError(t, rec); msg != tt.wantMsg {
				t.Errorf("error = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestSponsorCreate_TypeScopesInvalidation(t *testing.T) {
	db := testDB(t)
	spy := &spyInvalidator{}
	h := contentRouter(NewSponsorsHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/", map[string]any{
		"type":         model.SponsorTypePartner,
		"name":         "acme",
		"display_name": "Acme Capital",
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	want := cache.GroupOfKind(model.KindSponsor, model.SponsorTypePartner)
	if len(spy.scopes) != 1 || spy.scopes[0] != want {
		t.Errorf("scopes = %v, want [%v]", spy.scopes, want)
	}
}

func TestSponsorCreate_RejectsUnknownType(t *testing.T) {
	db := testDB(t)
	spy := &spyInvalidator{}
	h := contentRouter(NewSponsorsHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/", map[string]any{
		"type":         "sponser",
		"name":         "acme",
		"display_name": "Acme Capital",
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if msg := decodeError(t, rec); !strings.Contains(msg, `must be "sponsor" or "partner"`) {
		t.Errorf("error = %q", msg)
	}
	if len(spy.scopes) != 0 {
		t.Errorf("rejected create must not invalidate, got %v", spy.scopes)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sponsors").Scan(&count); err != nil {
		t.Fatalf("counting sponsors: %v", err)
	}
	if count != 0 {
		t.Errorf("sponsor row was created despite the invalid type")
	}
}

func TestSponsorUpdate_RejectsUnknownType(t *testing.T) {
	db := testDB(t)
	sponsor := createSponsor(t, db, model.SponsorTypeSponsor, "acme", "")
	spy := &spyInvalidator{}
	h := contentRouter(NewSponsorsHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPut, "/"+sponsor.ID, map[string]any{
		"type": "gold",
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if len(spy.scopes) != 0 {
		t.Errorf("rejected update must not invalidate, got %v", spy.scopes)
	}

	got, err := store.New(db).GetSponsorByID(context.Background(), sponsor.ID)
	if err != nil {
		t.Fatalf("GetSponsorByID: %v", err)
	}
	if got.Type != model.SponsorTypeSponsor {
		t.Errorf("sponsor type changed to %q", got.Type)
	}
}

func TestContentList_EmptyTable(t *testing.T) {
	db := testDB(t)
	h := contentRouter(NewPeopleHandler(db, &spyInvalidator{}, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// An empty kind lists as [], never null
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("body = %s, want empty data array", rec.Body.String())
	}
}

func TestTimelineUpdate_WholeKindScope(t *testing.T) {
	db := testDB(t)

	now := time.Now()
	event, err := store.New(db).CreateTimelineEvent(context.Background(), store.CreateTimelineEventParams{
		ID:        uuid.NewString(),
		Title:     "Founded",
		EventDate: "2010-09-01",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateTimelineEvent: %v", err)
	}

	spy := &spyInvalidator{}
	h := contentRouter(NewTimelineHandler(db, spy, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(t, http.MethodPut, "/"+event.ID, map[string]any{
		"description": "The club held its first meeting.",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	want := cache.AllOfKind(model.KindTimeline)
	if len(spy.scopes) != 1 || spy.scopes[0] != want {
		t.Errorf("scopes = %v, want [%v]", spy.scopes, want)
	}
}

func TestContentCreate_InvalidJSON(t *testing.T) {
	db := testDB(t)
	h := contentRouter(NewPeopleHandler(db, &spyInvalidator{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
