package domain

import "strings"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusConverted Status = "converted"
)

// manual lists the transitions a user may request. Converted is reached only
// through conversion, so it never appears as a target here.
var manual = map[Status][]Status{
	StatusDraft: {StatusSent, StatusAccepted, StatusRejected},
	StatusSent:  {StatusAccepted, StatusRejected},
}

// ParseStatus normalizes s and reports whether it names a known status.
func ParseStatus(s string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusConverted:
		return status, true
	}
	return "", false
}

// CanTransitionTo reports whether a manual status change from s to next is legal.
// Keeping the current status is always allowed except once converted.
func (s Status) CanTransitionTo(next Status) bool {
	if s == StatusConverted {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range manual[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanEdit reports whether the document fields may still change.
func (s Status) CanEdit() bool {
	return s != StatusConverted
}

// CanConvert reports whether an invoice may be materialized from the quotation.
func (s Status) CanConvert() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted:
		return true
	}
	return false
}

// Terminal reports whether no further manual transition exists.
func (s Status) Terminal() bool {
	return len(manual[s]) == 0
}
