package models

import "time"

const SnapshotVersion = "1.0"

// Snapshot is the backup envelope used for export and cross-instance
// migration. On import, a nil top-level field means "leave the existing
// collection untouched"; a present field replaces it wholesale.
type Snapshot struct {
	StudySets     []StudySet             `json:"studySets"`
	UserStats     *UserStats             `json:"userStats"`
	StudyProgress map[string]ProgressMap `json:"studyProgress"`
	ExportDate    time.Time              `json:"exportDate"`
	Version       string                 `json:"version"`
}

type ImportResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
