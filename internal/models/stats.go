package models

import "time"

// UserStats is the single global aggregate record. TotalStudySets and
// TotalCards are recomputed from the full collection on every change;
// TotalStudyTime and StreakDays only ever move forward through
// RecordStudySession.
type UserStats struct {
	TotalStudySets int        `json:"totalStudySets"`
	TotalCards     int        `json:"totalCards"`
	TotalStudyTime int        `json:"totalStudyTime"` // cumulative seconds
	StreakDays     int        `json:"streakDays"`
	LastStudyDate  *time.Time `json:"lastStudyDate"`
}

// SaveStatus reports the health of the last persistence write. A failed
// write leaves in-memory state authoritative for the session but means it
// will not survive a restart.
type SaveStatus struct {
	Healthy     bool       `json:"healthy"`
	LastError   string     `json:"last_error,omitempty"`
	LastSavedAt *time.Time `json:"last_saved_at,omitempty"`
}
