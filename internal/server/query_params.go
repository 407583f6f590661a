package server

import (
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

// parseOptionalDate reads a YYYY-MM-DD value. Empty input yields the zero time.
func parseOptionalDate(field, value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(dateOnlyLayout, trimmed)
	if err != nil {
		return time.Time{}, newValidationError(field, "invalid_"+field, field+" must be a date in YYYY-MM-DD format")
	}
	return parsed, nil
}

type listDocumentsQuery struct {
	Query   string `form:"q"`
	Status  string `form:"status"`
	SortBy  string `form:"sort_by"`
	OrderBy string `form:"order_by"`
}

func (q listDocumentsQuery) normalized() listDocumentsQuery {
	return listDocumentsQuery{
		Query:   strings.TrimSpace(q.Query),
		Status:  strings.ToLower(strings.TrimSpace(q.Status)),
		SortBy:  strings.TrimSpace(q.SortBy),
		OrderBy: strings.ToLower(strings.TrimSpace(q.OrderBy)),
	}
}
