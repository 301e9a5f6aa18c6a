package store

import (
	"encoding/json"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"quizcraft-backend/internal/models"
)

// Blob keys. Each collection lives in its own independently-keyed blob so
// a corrupt one never takes the others down with it.
const (
	blobStudySets     = "study-sets"
	blobUserStats     = "user-stats"
	blobStudyProgress = "study-progress"
)

var (
	ErrNotReady     = errors.New("store has not finished loading")
	ErrEmptyTitle   = errors.New("title must not be empty")
	ErrNoValidCards = errors.New("at least one card with a term and a definition is required")
	ErrBadStatus    = errors.New("status must be known or unknown")
)

// BlobStorage is the persistence backend for the store's keyed blobs.
// Read returns nil for a key that has never been written.
type BlobStorage interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
}

// Store is the single authority for study sets, per-set review progress
// and the global user stats. All reads are served from memory; every
// mutation persists synchronously before returning. There is exactly one
// logical writer, but the HTTP surface serves requests concurrently, so
// access is guarded by a mutex.
//
// A Store starts in a loading state and rejects mutations until Load has
// run; this keeps a freshly constructed store from writing empty blobs
// over data it has not read yet.
type Store struct {
	mu      sync.RWMutex
	storage BlobStorage
	now     func() time.Time

	ready    bool
	sets     []models.StudySet
	stats    models.UserStats
	progress map[string]models.ProgressMap

	lastSaveErr error
	lastSavedAt *time.Time
}

func New(storage BlobStorage) *Store {
	return &Store{
		storage:  storage,
		now:      time.Now,
		progress: make(map[string]models.ProgressMap),
	}
}

// Load reads the three persisted blobs into memory and marks the store
// ready. A blob that is missing or does not parse is treated as empty:
// the condition is logged but never blocks startup.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b := s.readBlob(blobStudySets); b != nil {
		var sets []models.StudySet
		if err := json.Unmarshal(b, &sets); err != nil {
			log.Printf("⚠ study sets blob is corrupt, starting empty: %v", err)
		} else {
			s.sets = sets
		}
	}

	if b := s.readBlob(blobUserStats); b != nil {
		var stats models.UserStats
		if err := json.Unmarshal(b, &stats); err != nil {
			log.Printf("⚠ user stats blob is corrupt, starting empty: %v", err)
		} else {
			s.stats = stats
		}
	}

	if b := s.readBlob(blobStudyProgress); b != nil {
		var progress map[string]models.ProgressMap
		if err := json.Unmarshal(b, &progress); err != nil {
			log.Printf("⚠ study progress blob is corrupt, starting empty: %v", err)
		} else if progress != nil {
			s.progress = progress
		}
	}

	s.ready = true
	return nil
}

func (s *Store) readBlob(key string) []byte {
	b, err := s.storage.Read(key)
	if err != nil {
		log.Printf("⚠ failed to read blob %s, treating as empty: %v", key, err)
		return nil
	}
	return b
}

// AddStudySet validates, filters and inserts a new set. Cards missing a
// term or a definition are dropped; if none survive the set is rejected.
// Every surviving card receives a stable ID so progress records stay
// attached to the right card across reorders and deletions.
func (s *Store) AddStudySet(title string, cards []models.Card) (*models.StudySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil, ErrNotReady
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	valid := filterCards(cards)
	if len(valid) == 0 {
		return nil, ErrNoValidCards
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	set := models.StudySet{
		ID:        id,
		Title:     title,
		Cards:     valid,
		CreatedAt: s.now(),
	}
	s.sets = append(s.sets, set)

	s.recomputeTotals()
	s.persist(blobStudySets)
	s.persist(blobUserStats)

	out := copySet(&set)
	return &out, nil
}

// UpdateStudySet shallow-merges the given fields into the matching set.
// An unknown id is a no-op, not an error.
func (s *Store) UpdateStudySet(id string, upd models.StudySetUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotReady
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}

	if upd.Title != nil {
		if t := strings.TrimSpace(*upd.Title); t != "" {
			s.sets[idx].Title = t
		}
	}
	if upd.Cards != nil {
		valid := filterCards(upd.Cards)
		if len(valid) == 0 {
			return ErrNoValidCards
		}
		s.sets[idx].Cards = valid
	}

	s.recomputeTotals()
	s.persist(blobStudySets)
	s.persist(blobUserStats)
	return nil
}

// DeleteStudySet removes the set and its progress map in one step, so a
// deleted set leaves no orphaned progress behind.
func (s *Store) DeleteStudySet(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotReady
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}

	s.sets = append(s.sets[:idx], s.sets[idx+1:]...)
	delete(s.progress, id)

	s.recomputeTotals()
	s.persist(blobStudySets)
	s.persist(blobUserStats)
	s.persist(blobStudyProgress)
	return nil
}

func (s *Store) GetStudySetByID(id string) (*models.StudySet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, false
	}
	out := copySet(&s.sets[idx])
	return &out, true
}

func (s *Store) ListStudySets() []models.StudySet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.StudySet, len(s.sets))
	for i := range s.sets {
		out[i] = copySet(&s.sets[i])
	}
	return out
}

// RecentStudySets returns up to limit sets, most recently studied first;
// never-studied sets rank by creation time.
func (s *Store) RecentStudySets(limit int) []models.StudySet {
	out := s.ListStudySets()
	sort.SliceStable(out, func(i, j int) bool {
		return lastActivity(&out[i]).After(lastActivity(&out[j]))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func lastActivity(set *models.StudySet) time.Time {
	if set.LastStudied != nil {
		return *set.LastStudied
	}
	return set.CreatedAt
}

// RecordStudySession closes out a study or test session. The per-set
// stats update is skipped silently when the id is unknown, but the global
// user stats always move: study time accumulates and the streak rule runs
// exactly once per call, system-wide.
//
// The running average weights the previous mean by the old study count.
// Unscored sessions raise the count without moving the mean, so the
// average only equals the arithmetic mean of scores when every session
// carried one.
func (s *Store) RecordStudySession(id string, score *float64, durationSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotReady
	}

	now := s.now()

	if idx := s.indexOf(id); idx >= 0 {
		set := &s.sets[idx]
		oldCount := set.StudyCount
		set.StudyCount = oldCount + 1
		if score != nil {
			if *score > set.BestScore {
				set.BestScore = *score
			}
			set.AverageScore = (set.AverageScore*float64(oldCount) + *score) / float64(set.StudyCount)
		}
		t := now
		set.LastStudied = &t
	}

	s.stats.TotalStudyTime += durationSeconds

	// Streak rule, evaluated against the previous global lastStudyDate
	// before it is overwritten. Studying twice on the same day must not
	// double-increment the streak.
	today := dayOf(now)
	yesterday := dayOf(now.Add(-24 * time.Hour))
	lastDay := ""
	if s.stats.LastStudyDate != nil {
		lastDay = dayOf(*s.stats.LastStudyDate)
	}
	switch lastDay {
	case today:
		// already studied today, streak unchanged
	case yesterday:
		s.stats.StreakDays++
	default:
		s.stats.StreakDays = 1
	}
	t := now
	s.stats.LastStudyDate = &t

	s.persist(blobStudySets)
	s.persist(blobUserStats)
	return nil
}

func dayOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// UpdateProgress upserts one card's review mark for a set. Remarking the
// same card overwrites the previous status.
func (s *Store) UpdateProgress(setID, cardID string, status models.ProgressStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotReady
	}
	if !status.Valid() {
		return ErrBadStatus
	}

	m, ok := s.progress[setID]
	if !ok {
		m = make(models.ProgressMap)
		s.progress[setID] = m
	}
	m[cardID] = status

	s.persist(blobStudyProgress)
	return nil
}

// GetProgress returns a copy of the set's progress map, empty when
// nothing has been marked.
func (s *Store) GetProgress(setID string) models.ProgressMap {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(models.ProgressMap, len(s.progress[setID]))
	for k, v := range s.progress[setID] {
		out[k] = v
	}
	return out
}

// ClearProgress drops the set's whole progress map, returning every card
// to unseen.
func (s *Store) ClearProgress(setID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotReady
	}

	delete(s.progress, setID)
	s.persist(blobStudyProgress)
	return nil
}

func (s *Store) ProgressSummary(setID string) models.ProgressSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum models.ProgressSummary
	if idx := s.indexOf(setID); idx >= 0 {
		sum.TotalCards = len(s.sets[idx].Cards)
	}
	for _, status := range s.progress[setID] {
		sum.Marked++
		if status == models.StatusKnown {
			sum.Known++
		} else {
			sum.Unknown++
		}
	}
	if sum.TotalCards > 0 {
		sum.CompletionPercentage = float64(sum.Marked) / float64(sum.TotalCards) * 100
	}
	return sum
}

func (s *Store) UserStats() models.UserStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Store) SaveStatus() models.SaveStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := models.SaveStatus{Healthy: s.lastSaveErr == nil, LastSavedAt: s.lastSavedAt}
	if s.lastSaveErr != nil {
		st.LastError = s.lastSaveErr.Error()
	}
	return st
}

// ExportSnapshot produces the full backup envelope. It is a pure read:
// nothing is persisted and the returned copies share no memory with the
// store.
func (s *Store) ExportSnapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.Snapshot{
		StudySets:     make([]models.StudySet, len(s.sets)),
		StudyProgress: make(map[string]models.ProgressMap, len(s.progress)),
		ExportDate:    s.now(),
		Version:       models.SnapshotVersion,
	}
	for i := range s.sets {
		snap.StudySets[i] = copySet(&s.sets[i])
	}
	stats := s.stats
	snap.UserStats = &stats
	for setID, m := range s.progress {
		pm := make(models.ProgressMap, len(m))
		for k, v := range m {
			pm[k] = v
		}
		snap.StudyProgress[setID] = pm
	}
	return snap
}

// ImportSnapshot parses a backup envelope and replaces each collection
// that is present in it wholesale. Absent fields leave the existing
// collection untouched. A parse failure applies nothing and is reported
// through the result, never a panic or error return.
func (s *Store) ImportSnapshot(data []byte) models.ImportResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return models.ImportResult{Success: false, Message: "Store is still loading. Try again."}
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.ImportResult{Success: false, Message: "Invalid data format. Please check your file."}
	}

	if snap.StudySets != nil {
		s.sets = snap.StudySets
		s.persist(blobStudySets)
	}
	if snap.UserStats != nil {
		s.stats = *snap.UserStats
		s.persist(blobUserStats)
	}
	if snap.StudyProgress != nil {
		s.progress = snap.StudyProgress
		s.persist(blobStudyProgress)
	}

	// Set and card totals always derive from the live collection, even
	// when the envelope carried stale values.
	if snap.StudySets != nil {
		s.recomputeTotals()
		s.persist(blobUserStats)
	}

	return models.ImportResult{Success: true, Message: "Data imported successfully!"}
}

// ---- internals, caller must hold the lock ----

func (s *Store) indexOf(id string) int {
	for i := range s.sets {
		if s.sets[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) recomputeTotals() {
	total := 0
	for i := range s.sets {
		total += len(s.sets[i].Cards)
	}
	s.stats.TotalStudySets = len(s.sets)
	s.stats.TotalCards = total
}

// persist writes one blob synchronously. A write failure is surfaced as a
// non-blocking warning through SaveStatus: in-memory state stays correct
// for the session, it just will not survive a restart.
func (s *Store) persist(key string) {
	var payload any
	switch key {
	case blobStudySets:
		payload = s.sets
	case blobUserStats:
		payload = s.stats
	case blobStudyProgress:
		payload = s.progress
	}

	data, err := json.Marshal(payload)
	if err == nil {
		err = s.storage.Write(key, data)
	}
	if err != nil {
		log.Printf("⚠ failed to save blob %s: %v", key, err)
		s.lastSaveErr = err
		return
	}
	s.lastSaveErr = nil
	t := s.now()
	s.lastSavedAt = &t
}

func filterCards(cards []models.Card) []models.Card {
	valid := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		term := strings.TrimSpace(c.Term)
		def := strings.TrimSpace(c.Definition)
		if term == "" || def == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		valid = append(valid, models.Card{ID: id, Term: term, Definition: def})
	}
	return valid
}

func copySet(set *models.StudySet) models.StudySet {
	out := *set
	out.Cards = make([]models.Card, len(set.Cards))
	copy(out.Cards, set.Cards)
	if set.LastStudied != nil {
		t := *set.LastStudied
		out.LastStudied = &t
	}
	return out
}
