package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"audittrail-backend/internal/models"
)

const dateOnly = "2006-01-02"

func parseSearchQuery(r *http.Request) (models.AuditLogFilter, models.Page, error) {
	q := r.URL.Query()

	page, err := queryInt(q.Get("page"), "page")
	if err != nil {
		return models.AuditLogFilter{}, models.Page{}, err
	}
	perPage, err := queryInt(q.Get("per_page"), "per_page")
	if err != nil {
		return models.AuditLogFilter{}, models.Page{}, err
	}
	p, err := models.NewPage(page, perPage)
	if err != nil {
		return models.AuditLogFilter{}, models.Page{}, err
	}

	filter := models.AuditLogFilter{
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
	}

	// user_id hits a uuid column; anything else would fail the cast server-side
	// instead of matching nothing.
	if userID := q.Get("user_id"); userID != "" {
		if uuid.Validate(userID) != nil {
			return models.AuditLogFilter{}, models.Page{}, &models.ValidationError{Field: "user_id", Message: "must be a UUID"}
		}
		filter.UserID = userID
	}

	if filter.Start, err = parseBound(q.Get("start_date"), "start_date", false); err != nil {
		return models.AuditLogFilter{}, models.Page{}, err
	}
	if filter.End, err = parseBound(q.Get("end_date"), "end_date", true); err != nil {
		return models.AuditLogFilter{}, models.Page{}, err
	}
	if err := filter.Validate(); err != nil {
		return models.AuditLogFilter{}, models.Page{}, err
	}

	return filter, p, nil
}

func queryInt(value, field string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &models.ValidationError{Field: field, Message: "must be an integer"}
	}
	return n, nil
}

// parseBound accepts a date or a full timestamp. A date-only upper bound is
// widened to the end of that day so the range stays inclusive.
func parseBound(value, field string, upper bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateOnly, value); err == nil {
		if upper {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	return nil, &models.ValidationError{Field: field, Message: "must be an ISO-8601 date or timestamp"}
}
