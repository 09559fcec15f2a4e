package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MinReasonLength applies to both the visit reason and the cancellation reason.
const MinReasonLength = 5

type Status string

const (
	StatusRequested  Status = "requested"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Appointment struct {
	ID                 string    `json:"id"`
	SubjectID          string    `json:"subject_id"`
	PractitionerID     string    `json:"practitioner_id"`
	ServiceID          string    `json:"service_id"`
	OwnerID            string    `json:"owner_id,omitempty"`
	Date               Date      `json:"date"`
	Time               TimeOfDay `json:"time"`
	DurationMinutes    int       `json:"duration_minutes"`
	Status             Status    `json:"status"`
	Reason             string    `json:"reason"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	IsEmergency        bool      `json:"is_emergency"`
	RequestedBy        string    `json:"requested_by"`
	IdempotencyKey     string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// EndTime is the first second after the appointment.
func (a Appointment) EndTime() TimeOfDay { return a.Time.AddMinutes(a.DurationMinutes) }

func (a Appointment) StartsAt(loc *time.Location) time.Time { return a.Time.On(a.Date, loc) }

func (a Appointment) EndsAt(loc *time.Location) time.Time { return a.EndTime().On(a.Date, loc) }

// Overlaps reports whether a occupies any part of [start, end) on the same date.
func (a Appointment) Overlaps(start, end TimeOfDay) bool {
	return a.Time < end && start < a.EndTime()
}

// ReasonLength counts characters, not bytes, ignoring surrounding blanks.
func ReasonLength(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
