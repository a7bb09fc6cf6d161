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

func publicRouter(h *PublicHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/people/{groupSlug}", h.People)
	r.Get("/sponsors", h.Sponsors)
	r.Get("/partners", h.Partners)
	r.Get("/timeline", h.Timeline)
	r.Get("/resources", h.Resources)
	return r
}

func createSponsor(t *testing.T, db *sql.DB, sponsorType, name, description string) model.Sponsor {
	t.Helper()

	now := time.Now()
	sponsor, err := store.New(db).CreateSponsor(context.Background(), store.CreateSponsorParams{
		ID:          uuid.NewString(),
		Type:        sponsorType,
		Name:        name,
		DisplayName: strings.ToUpper(name[:1]) + name[1:],
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateSponsor: %v", err)
	}
	return sponsor
}

func TestPublicPeople_CacheMissThenHit(t *testing.T) {
	db := testDB(t)
	createPerson(t, db, "board", "Dana Whitfield", 0)

	pageCache := cache.NewSimpleMemoryCache(time.Minute)
	t.Cleanup(func() { _ = pageCache.Close() })

	h := publicRouter(NewPublicHandler(db, pageCache, time.Minute))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/people/board", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("first X-Cache = %q, want MISS", got)
	}
	firstBody := rec.Body.String()

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/people/board", nil))
	if got := rec.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("second X-Cache = %q, want HIT", got)
	}
	if rec.Body.String() != firstBody {
		t.Error("cached body differs from built body")
	}

	var people []model.Person
	decodeSuccess(t, rec, &people)
	if len(people) != 1 || people[0].Name != "Dana Whitfield" {
		t.Errorf("people = %v", people)
	}
}

func TestPublicPeople_InvalidationRefreshesPage(t *testing.T) {
	db := testDB(t)
	createPerson(t, db, "board", "Dana Whitfield", 0)

	pageCache := cache.NewSimpleMemoryCache(time.Minute)
	t.Cleanup(func() { _ = pageCache.Close() })

	h := publicRouter(NewPublicHandler(db, pageCache, time.Minute))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/people/board", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// A new board member lands; the mutation path purges the group page.
	createPerson(t, db, "board", "Avery Stone", 1)
	inv := cache.NewPageInvalidator(pageCache, nil)
	inv.MarkStale(context.Background(), cache.GroupOfKind(model.KindPerson, "board"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/people/board", nil))
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache after invalidation = %q, want MISS", got)
	}

	var people []model.Person
	decodeSuccess(t, rec, &people)
	if len(people) != 2 {
		t.Errorf("len(people) = %d, want 2", len(people))
	}
}

func TestPublicPeople_EmptyGroup(t *testing.T) {
	db := testDB(t)
	h := publicRouter(NewPublicHandler(db, nil, 0))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/people/nobody", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("empty group must render as [], got %s", rec.Body.String())
	}
}

func TestPublicSponsors_MarkdownSanitized(t *testing.T) {
	db := testDB(t)
	createSponsor(t, db, model.SponsorTypeSponsor, "acme",
		"We back **student investors**.<script>alert(1)</script>")

	h := publicRouter(NewPublicHandler(db, nil, 0))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sponsors", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var sponsors []struct {
		model.Sponsor
		DescriptionHTML string `json:"description_html"`
	}
	decodeSuccess(t, rec, &sponsors)
	if len(sponsors) != 1 {
		t.Fatalf("len(sponsors) = %d, want 1", len(sponsors))
	}
	html := sponsors[0].DescriptionHTML
	if !strings.Contains(html, "<strong>student investors</strong>") {
		t.Errorf("markdown not rendered: %q", html)
	}
	if strings.Contains(html, "<script") {
		t.Errorf("script tag survived sanitization: %q", html)
	}
}

func TestPublicSponsorsAndPartnersAreSeparate(t *testing.T) {
	db := testDB(t)
	createSponsor(t, db, model.SponsorTypeSponsor, "acme", "")
	createSponsor(t, db, model.SponsorTypePartner, "globex", "")

	h := publicRouter(NewPublicHandler(db, nil, 0))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sponsors", nil))
	var sponsors []model.Sponsor
	decodeSuccess(t, rec, &sponsors)
	if len(sponsors) != 1 || sponsors[0].Name != "acme" {
		t.Errorf("sponsors = %v", sponsors)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/partners", nil))
	var partners []model.Sponsor
	decodeSuccess(t, rec, &partners)
	if len(partners) != 1 || partners[0].Name != "globex" {
		t.Errorf("partners = %v", partners)
	}
}

func TestPublicTimeline(t *testing.T) {
	db := testDB(t)

	now := time.Now()
	if _, err := store.New(db).CreateTimelineEvent(context.Background(), store.CreateTimelineEventParams{
		ID:          uuid.NewString(),
		Title:       "Founded",
		Description: "The club held its *first* meeting.",
		EventDate:   "2010-09-01",
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("CreateTimelineEvent: %v", err)
	}

	h := publicRouter(NewPublicHandler(db, nil, 0))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/timeline", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var events []struct {
		model.TimelineEvent
		DescriptionHTML string `json:"description_html"`
	}
	decodeSuccess(t, rec, &events)
	if len(events) != 1 || events[0].Title != "Founded" {
		t.Fatalf("events = %v", events)
	}
	if !strings.Contains(events[0].DescriptionHTML, "<em>first</em>") {
		t.Errorf("description_html = %q", events[0].DescriptionHTML)
	}
}
