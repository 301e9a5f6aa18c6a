package models

import "time"

// ProgressStatus is the mark a learner gives a card during flashcard review.
type ProgressStatus string

const (
	StatusKnown   ProgressStatus = "known"
	StatusUnknown ProgressStatus = "unknown"
)

func (s ProgressStatus) Valid() bool {
	return s == StatusKnown || s == StatusUnknown
}

type Card struct {
	ID         string `json:"id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type StudySet struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Cards        []Card     `json:"cards"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastStudied  *time.Time `json:"lastStudied,omitempty"`
	StudyCount   int        `json:"studyCount"`
	AverageScore float64    `json:"averageScore"`
	BestScore    float64    `json:"bestScore"`
}

// ProgressMap holds the review marks for one study set, keyed by card ID.
type ProgressMap map[string]ProgressStatus

type ProgressSummary struct {
	TotalCards           int     `json:"total_cards"`
	Marked               int     `json:"marked"`
	Known                int     `json:"known"`
	Unknown              int     `json:"unknown"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

type CreateStudySetRequest struct {
	Title string `json:"title"`
	Cards []Card `json:"cards"`
}

// StudySetUpdate carries a partial update; nil fields are left untouched.
type StudySetUpdate struct {
	Title *string `json:"title"`
	Cards []Card  `json:"cards"`
}

type RecordSessionRequest struct {
	Score           *float64 `json:"score"`
	DurationSeconds int      `json:"duration_seconds"`
}

type UpdateProgressRequest struct {
	CardID string         `json:"card_id"`
	Status ProgressStatus `json:"status"`
}
