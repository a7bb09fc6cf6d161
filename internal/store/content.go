// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/olegiv/clubportal-go/internal/model"
)

// tableFor maps a content kind to its table. The UPDATE builder only ever
// interpolates column names taken from the kind's schema, so user input
// never reaches SQL text.
func tableFor(kind model.Kind) (string, error) {
	switch kind {
	case model.KindPerson:
		return "people", nil
	case model.KindSponsor:
		return "sponsors", nil
	case model.KindTimeline:
		return "timeline_events", nil
	case model.KindResource:
		return "resources", nil
	default:
		return "", fmt.Errorf("unknown content kind %q", kind)
	}
}

const personColumns = `id, group_slug, name, title, school, company, linkedin, headshot_url, sort_order, created_at, updated_at`

func scanPerson(row interface{ Scan(...any) error }) (model.Person, error) {
	var p model.Person
	err := row.Scan(&p.ID, &p.GroupSlug, &p.Name, &p.Title, &p.School,
		&p.Company, &p.Linkedin, &p.HeadshotURL, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListPeople returns all people grouped by slug, then by sort order.
// Ties keep insertion order (rowid).
func (q *Queries) ListPeople(ctx context.Context) ([]model.Person, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+personColumns+` FROM people ORDER BY group_slug, sort_order, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// ListPeopleByGroup returns the people of one group ordered by sort order.
func (q *Queries) ListPeopleByGroup(ctx context.Context, groupSlug string) ([]model.Person, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+personColumns+` FROM people WHERE group_slug = ? ORDER BY sort_order, rowid`,
		groupSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// GetPersonByID returns one person.
func (q *Queries) GetPersonByID(ctx context.Context, id string) (model.Person, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE id = ?`, id)
	return scanPerson(row)
}

// CreatePersonParams holds the fields for CreatePerson.
type CreatePersonParams struct {
	ID          string
	GroupSlug   string
	Name        string
	Title       string
	School      string
	Company     string
	Linkedin    string
	HeadshotURL string
	SortOrder   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreatePerson inserts a person and returns the stored row.
func (q *Queries) CreatePerson(ctx context.Context, arg CreatePersonParams) (model.Person, error) {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO people (id, group_slug, name, title, school, company, linkedin, headshot_url, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.GroupSlug, arg.Name, arg.Title, arg.School, arg.Company,
		arg.Linkedin, arg.HeadshotURL, arg.SortOrder, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return model.Person{}, err
	}
	return q.GetPersonByID(ctx, arg.ID)
}

const sponsorColumns = `id, type, name, display_name, website, image_path, description, sort_order, created_at, updated_at`

func scanSponsor(row interface{ Scan(...any) error }) (model.Sponsor, error) {
	var s model.Sponsor
	err := row.Scan(&s.ID, &s.Type, &s.Name, &s.DisplayName, &s.Website,
		&s.ImagePath, &s.Description, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// ListSponsors returns all sponsors and partners ordered by sort order.
func (q *Queries) ListSponsors(ctx context.Context) ([]model.Sponsor, error) {
	return q.listSponsors(ctx, `SELECT `+sponsorColumns+` FROM sponsors ORDER BY type, sort_order, rowid`)
}

// ListSponsorsByType returns sponsors of one type (sponsor or partner).
func (q *Queries) ListSponsorsByType(ctx context.Context, sponsorType string) ([]model.Sponsor, error) {
	return q.listSponsors(ctx,
		`SELECT `+sponsorColumns+` FROM sponsors WHERE type = ? ORDER BY sort_order, rowid`, sponsorType)
}

func (q *Queries) listSponsors(ctx context.Context, query string, args ...any) ([]model.Sponsor, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sponsors []model.Sponsor
	for rows.Next() {
		s, err := scanSponsor(rows)
		if err != nil {
			return nil, err
		}
		sponsors = append(sponsors, s)
	}
	return sponsors, rows.Err()
}

// GetSponsorByID returns one sponsor.
func (q *Queries) GetSponsorByID(ctx context.Context, id string) (model.Sponsor, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+sponsorColumns+` FROM sponsors WHERE id = ?`, id)
	return scanSponsor(row)
}

// CreateSponsorParams holds the fields for CreateSponsor.
type CreateSponsorParams struct {
	ID          string
	Type        string
	Name        string
	DisplayName string
	Website     string
	ImagePath   string
	Description string
	SortOrder   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateSponsor inserts a sponsor and returns the stored row.
func (q *Queries) CreateSponsor(ctx context.Context, arg CreateSponsorParams) (model.Sponsor, error) {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO sponsors (id, type, name, display_name, website, image_path, description, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Type, arg.Name, arg.DisplayName, arg.Website, arg.ImagePath,
		arg.Description, arg.SortOrder, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return model.Sponsor{}, err
	}
	return q.GetSponsorByID(ctx, arg.ID)
}

const timelineColumns = `id, title, description, event_date, sort_order, created_at, updated_at`

func scanTimelineEvent(row interface{ Scan(...any) error }) (model.TimelineEvent, error) {
	var e model.TimelineEvent
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.EventDate,
		&e.SortOrder, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// ListTimelineEvents returns all timeline events ordered by sort order.
func (q *Queries) ListTimelineEvents(ctx context.Context) ([]model.TimelineEvent, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+timelineColumns+` FROM timeline_events ORDER BY sort_order, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.TimelineEvent
	for rows.Next() {
		e, err := scanTimelineEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetTimelineEventByID returns one timeline event.
func (q *Queries) GetTimelineEventByID(ctx context.Context, id string) (model.TimelineEvent, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+timelineColumns+` FROM timeline_events WHERE id = ?`, id)
	return scanTimelineEvent(row)
}

// CreateTimelineEventParams holds the fields for CreateTimelineEvent.
type CreateTimelineEventParams struct {
	ID          string
	Title       string
	Description string
	EventDate   string
	SortOrder   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateTimelineEvent inserts a timeline event and returns the stored row.
func (q *Queries) CreateTimelineEvent(ctx context.Context, arg CreateTimelineEventParams) (model.TimelineEvent, error) {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO timeline_events (id, title, description, event_date, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Title, arg.Description, arg.EventDate, arg.SortOrder, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return model.TimelineEvent{}, err
	}
	return q.GetTimelineEventByID(ctx, arg.ID)
}

const resourceColumns = `id, title, description, url, link_url, type, tab_id, section, sort_order, created_at, updated_at`

func scanResource(row interface{ Scan(...any) error }) (model.Resource, error) {
	var r model.Resource
	err := row.Scan(&r.ID, &r.Title, &r.Description, &r.URL, &r.LinkURL,
		&r.Type, &r.TabID, &r.Section, &r.SortOrder, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// ListResources returns all resources ordered by tab, section, then sort
// order. Ties keep insertion order (rowid).
func (q *Queries) ListResources(ctx context.Context) ([]model.Resource, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources ORDER BY tab_id, section, sort_order, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []model.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

// GetResourceByID returns one resource.
func (q *Queries) GetResourceByID(ctx context.Context, id string) (model.Resource, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	return scanResource(row)
}

// CreateResourceParams holds the fields for CreateResource.
type CreateResourceParams struct {
	ID          string
	Title       string
	Description string
	URL         string
	LinkURL     string
	Type        string
	TabID       string
	Section     string
	SortOrder   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateResource inserts a resource and returns the stored row.
func (q *Queries) CreateResource(ctx context.Context, arg CreateResourceParams) (model.Resource, error) {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO resources (id, title, description, url, link_url, type, tab_id, section, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Title, arg.Description, arg.URL, arg.LinkURL, arg.Type,
		arg.TabID, arg.Section, arg.SortOrder, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return model.Resource{}, err
	}
	return q.GetResourceByID(ctx, arg.ID)
}

// UpdateContent applies an allow-list-masked field set to one row of the
// kind's table, scoped by id. Field keys must come out of the kind's
// schema; anything else is rejected. Returns the number of rows matched
// (0 means the id does not exist).
func (q *Queries) UpdateContent(ctx context.Context, kind model.Kind, id string, fields map[string]any) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, fmt.Errorf("no fields to update")
	}

	schema := model.SchemaFor(kind)

	// Deterministic column order keeps the generated SQL stable.
	keys := make([]string, 0, len(fields))
	for key := range fields {
		if _, ok := schema[key]; !ok {
			return 0, fmt.Errorf("field %q is not updatable for kind %q", key, kind)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	args := make([]any, 0, len(keys)+2)
	sb.WriteString("UPDATE " + table + " SET ")
	for i, key := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(key + " = ?")
		args = append(args, fields[key])
	}
	sb.WriteString(", updated_at = ? WHERE id = ?")
	args = append(args, time.Now(), id)

	res, err := q.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteContent removes one row of the kind's table by id. Deleting a
// missing id is not an error; the returned count is 0.
func (q *Queries) DeleteContent(ctx context.Context, kind model.Kind, id string) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateSortOrder sets the sort order of one row. Used by the reorder
// operation inside a transaction.
func (q *Queries) UpdateSortOrder(ctx context.Context, kind model.Kind, id string, sortOrder int64) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE `+table+` SET sort_order = ?, updated_at = ? WHERE id = ?`,
		sortOrder, time.Now(), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
