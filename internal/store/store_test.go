package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizcraft-backend/internal/models"
)

// memBlobs is an in-memory BlobStorage for tests.
type memBlobs struct {
	data       map[string][]byte
	failWrites bool
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: make(map[string][]byte)}
}

func (m *memBlobs) Read(key string) ([]byte, error) {
	return m.data[key], nil
}

func (m *memBlobs) Write(key string, data []byte) error {
	if m.failWrites {
		return errors.New("disk full")
	}
	m.data[key] = data
	return nil
}

func newReadyStore(t *testing.T) (*Store, *memBlobs) {
	t.Helper()
	blobs := newMemBlobs()
	s := New(blobs)
	require.NoError(t, s.Load())
	return s, blobs
}

func capitalsCards() []models.Card {
	return []models.Card{
		{Term: "France", Definition: "Paris"},
		{Term: "Japan", Definition: "Tokyo"},
		{Term: "Italy", Definition: "Rome"},
		{Term: "Spain", Definition: "Madrid"},
	}
}

func score(v float64) *float64 { return &v }

func TestAddStudySet(t *testing.T) {
	s, _ := newReadyStore(t)

	set, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)

	assert.NotEmpty(t, set.ID)
	assert.Equal(t, "Capitals", set.Title)
	assert.Len(t, set.Cards, 4)
	assert.Equal(t, 0, set.StudyCount)
	assert.Equal(t, 0.0, set.AverageScore)
	assert.Equal(t, 0.0, set.BestScore)
	assert.Nil(t, set.LastStudied)
	assert.False(t, set.CreatedAt.IsZero())

	for _, c := range set.Cards {
		assert.NotEmpty(t, c.ID)
	}

	stats := s.UserStats()
	assert.Equal(t, 1, stats.TotalStudySets)
	assert.Equal(t, 4, stats.TotalCards)
}

func TestAddStudySet_UniqueIDs(t *testing.T) {
	s, _ := newReadyStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		set, err := s.AddStudySet("Set", capitalsCards())
		require.NoError(t, err)
		assert.False(t, seen[set.ID], "duplicate id %s", set.ID)
		seen[set.ID] = true
	}
}

func TestAddStudySet_Validation(t *testing.T) {
	s, _ := newReadyStore(t)

	_, err := s.AddStudySet("   ", capitalsCards())
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = s.AddStudySet("Empty", nil)
	assert.ErrorIs(t, err, ErrNoValidCards)

	_, err = s.AddStudySet("Blank", []models.Card{
		{Term: "  ", Definition: "x"},
		{Term: "x", Definition: ""},
	})
	assert.ErrorIs(t, err, ErrNoValidCards)

	// Incomplete pairs are dropped, valid ones survive.
	set, err := s.AddStudySet("Mixed", []models.Card{
		{Term: "keep", Definition: "this"},
		{Term: "drop", Definition: "  "},
	})
	require.NoError(t, err)
	assert.Len(t, set.Cards, 1)
	assert.Equal(t, "keep", set.Cards[0].Term)
}

func TestMutationsRejectedBeforeLoad(t *testing.T) {
	s := New(newMemBlobs())

	_, err := s.AddStudySet("Capitals", capitalsCards())
	assert.ErrorIs(t, err, ErrNotReady)

	assert.ErrorIs(t, s.RecordStudySession("x", nil, 10), ErrNotReady)
	assert.ErrorIs(t, s.UpdateProgress("x", "c", models.StatusKnown), ErrNotReady)
	assert.ErrorIs(t, s.DeleteStudySet("x"), ErrNotReady)
}

func TestRecordStudySession_Scores(t *testing.T) {
	s, _ := newReadyStore(t)
	set, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)

	require.NoError(t, s.RecordStudySession(set.ID, score(75), 60))
	require.NoError(t, s.RecordStudySession(set.ID, score(95), 40))

	got, ok := s.GetStudySetByID(set.ID)
	require.True(t, ok)
	assert.Equal(t, 2, got.StudyCount)
	assert.Equal(t, 85.0, got.AverageScore)
	assert.Equal(t, 95.0, got.BestScore)
	assert.NotNil(t, got.LastStudied)

	assert.Equal(t, 100, s.UserStats().TotalStudyTime)
}

func TestRecordStudySession_AverageIsMeanOfScores(t *testing.T) {
	s, _ := newReadyStore(t)
	set, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)

	scores := []float64{50, 60, 70, 100}
	for _, v := range scores {
		require.NoError(t, s.RecordStudySession(set.ID, score(v), 0))
	}

	got, _ := s.GetStudySetByID(set.ID)
	assert.InDelta(t, 70.0, got.AverageScore, 1e-9)
	assert.Equal(t, 100.0, got.BestScore)
	assert.Equal(t, 4, got.StudyCount)
}

func TestRecordStudySession_NoScore(t *testing.T) {
	s, _ := newReadyStore(t)
	set, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)

	require.NoError(t, s.RecordStudySession(set.ID, nil, 30))

	got, _ := s.GetStudySetByID(set.ID)
	assert.Equal(t, 1, got.StudyCount)
	assert.Equal(t, 0.0, got.AverageScore)
	assert.Equal(t, 0.0, got.BestScore)
	assert.Equal(t, 30, s.UserStats().TotalStudyTime)
}

func TestRecordStudySession_UnknownSetStillUpdatesStats(t *testing.T) {
	s, _ := newReadyStore(t)

	require.NoError(t, s.RecordStudySession("missing", score(80), 120))

	stats := s.UserStats()
	assert.Equal(t, 120, stats.TotalStudyTime)
	assert.Equal(t, 1, stats.StreakDays)
	assert.NotNil(t, stats.LastStudyDate)
}

func TestStreakRule(t *testing.T) {
	s, _ := newReadyStore(t)
	set, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)

	day1 := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day1 }

	require.NoError(t, s.RecordStudySession(set.ID, nil, 10))
	assert.Equal(t, 1, s.UserStats().StreakDays)

	// Second session the same day must not double-increment.
	s.now = func() time.Time { return day1.Add(5 * time.Hour) }
	require.NoError(t, s.RecordStudySession(set.ID, nil, 10))
	assert.Equal(t, 1, s.UserStats().StreakDays)

	// Consecutive day extends the streak.
	s.now = func() time.Time { return day1.Add(24 * time.Hour) }
	require.NoError(t, s.RecordStudySession(set.ID, nil, 10))
	assert.Equal(t, 2, s.UserStats().StreakDays)

	// A skipped day resets to 1.
	s.now = func() time.Time { return day1.Add(3 * 24 * time.Hour) }
	require.NoError(t, s.RecordStudySession(set.ID, nil, 10))
	assert.Equal(t, 1, s.UserStats().StreakDays)
}

func TestStreakRule_IsGlobalAcrossSets(t *testing.T) {
	s, _ := newReadyStore(t)
	a, err := s.AddStudySet("A", capitalsCards())
	require.NoError(t, err)
	b, err := s.AddStudySet("B", capitalsCards())
	require.NoError(t, err)

	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day }

	require.NoError(t, s.RecordStudySession(a.ID, nil, 10))
	require.NoError(t, s.RecordStudySession(b.ID, nil, 10))

	assert.Equal(t, 1, s.UserStats().StreakDays)
}

func TestUpdateStudySet(t *testing.T) {
	s, _ := newReadyStore(t)
	set, err := s.AddStudySet("Old Title", capitalsCards())
	require.NoError(t, err)

	title := "New Title"
	require.NoError(t, s.UpdateStudySet(set.ID, models.StudySetUpdate{Title: &title}))

	got, _ := s.GetStudySetByID(set.ID)
	assert.Equal(t, "New Title", got.Title)
	assert.Len(t, got.Cards, 4)

	// Unknown id is a silent no-op.
	require.NoError(t, s.UpdateStudySet("missing", models.StudySetUpdate{Title: &title}))

	// Replacing cards recomputes totals.
	require.NoError(t, s.UpdateStudySet(set.ID, models.StudySetUpdate{
		Cards: []models.Card{{Term: "a", Definition: "b"}},
	}))
	got, _ = s.GetStudySetByID(set.ID)
	assert.Len(t, got.Cards, 1)
	assert.Equal(t, 1, s.UserStats().TotalCards)
}

func TestDeleteStudySet_CascadesProgress(t *testing.T) {
	s, _ := newReadyStore(t)
	set, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)

	require.NoError(t, s.UpdateProgress(set.ID, set.Cards[0].ID, models.StatusKnown))
	require.NotEmpty(t, s.GetProgress(set.ID))

	require.NoError(t, s.DeleteStudySet(set.ID))

	_, ok := s.GetStudySetByID(set.ID)
	assert.False(t, ok)
	assert.Empty(t, s.GetProgress(set.ID))
	assert.Equal(t, 0, s.UserStats().TotalStudySets)
}

func TestProgressTracking(t *testing.T) {
	s, _ := newReadyStore(t)
	set, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)

	require.NoError(t, s.UpdateProgress(set.ID, set.Cards[0].ID, models.StatusKnown))
	require.NoError(t, s.UpdateProgress(set.ID, set.Cards[1].ID, models.StatusUnknown))

	sum := s.ProgressSummary(set.ID)
	assert.Equal(t, 4, sum.TotalCards)
	assert.Equal(t, 2, sum.Marked)
	assert.Equal(t, 1, sum.Known)
	assert.Equal(t, 1, sum.Unknown)
	assert.Equal(t, 50.0, sum.CompletionPercentage)

	// Remarking overwrites, never appends.
	require.NoError(t, s.UpdateProgress(set.ID, set.Cards[1].ID, models.StatusKnown))
	sum = s.ProgressSummary(set.ID)
	assert.Equal(t, 2, sum.Marked)
	assert.Equal(t, 2, sum.Known)
	assert.Equal(t, 0, sum.Unknown)

	// Marking every card reaches 100%.
	for _, c := range set.Cards {
		require.NoError(t, s.UpdateProgress(set.ID, c.ID, models.StatusUnknown))
	}
	sum = s.ProgressSummary(set.ID)
	assert.Equal(t, 100.0, sum.CompletionPercentage)
	assert.Equal(t, sum.TotalCards, sum.Known+sum.Unknown)

	require.NoError(t, s.ClearProgress(set.ID))
	assert.Empty(t, s.GetProgress(set.ID))
	assert.Equal(t, 0.0, s.ProgressSummary(set.ID).CompletionPercentage)
}

func TestUpdateProgress_RejectsBadStatus(t *testing.T) {
	s, _ := newReadyStore(t)
	assert.ErrorIs(t, s.UpdateProgress("set", "card", "mastered"), ErrBadStatus)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s, _ := newReadyStore(t)
	set, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)
	require.NoError(t, s.RecordStudySession(set.ID, score(80), 45))
	require.NoError(t, s.UpdateProgress(set.ID, set.Cards[0].ID, models.StatusKnown))

	envelope, err := json.Marshal(s.ExportSnapshot())
	require.NoError(t, err)

	fresh, _ := newReadyStore(t)
	result := fresh.ImportSnapshot(envelope)
	require.True(t, result.Success, result.Message)

	wantSets, _ := json.Marshal(s.ListStudySets())
	gotSets, _ := json.Marshal(fresh.ListStudySets())
	assert.JSONEq(t, string(wantSets), string(gotSets))

	wantStats, _ := json.Marshal(s.UserStats())
	gotStats, _ := json.Marshal(fresh.UserStats())
	assert.JSONEq(t, string(wantStats), string(gotStats))

	assert.Equal(t, s.GetProgress(set.ID), fresh.GetProgress(set.ID))
}

func TestExportSnapshot_Envelope(t *testing.T) {
	s, _ := newReadyStore(t)
	_, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)

	snap := s.ExportSnapshot()
	assert.Equal(t, models.SnapshotVersion, snap.Version)
	assert.False(t, snap.ExportDate.IsZero())
	assert.Len(t, snap.StudySets, 1)
	require.NotNil(t, snap.UserStats)

	// Export is a pure read: mutating the copy must not touch the store.
	snap.StudySets[0].Title = "changed"
	snap.StudySets[0].Cards[0].Term = "changed"
	got := s.ListStudySets()[0]
	assert.Equal(t, "Capitals", got.Title)
	assert.Equal(t, "France", got.Cards[0].Term)
}

func TestImportSnapshot_InvalidJSONIsAtomic(t *testing.T) {
	s, _ := newReadyStore(t)
	set, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)

	result := s.ImportSnapshot([]byte("{not json"))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)

	// Nothing was applied.
	got, ok := s.GetStudySetByID(set.ID)
	require.True(t, ok)
	assert.Equal(t, "Capitals", got.Title)
	assert.Equal(t, 1, s.UserStats().TotalStudySets)
}

func TestImportSnapshot_AbsentFieldsLeaveStateUntouched(t *testing.T) {
	s, _ := newReadyStore(t)
	set, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)
	require.NoError(t, s.UpdateProgress(set.ID, set.Cards[0].ID, models.StatusKnown))

	result := s.ImportSnapshot([]byte(`{"userStats":{"totalStudySets":9,"totalCards":9,"totalStudyTime":777,"streakDays":3,"lastStudyDate":null}}`))
	require.True(t, result.Success)

	// Sets and progress were not in the envelope and survive intact.
	_, ok := s.GetStudySetByID(set.ID)
	assert.True(t, ok)
	assert.NotEmpty(t, s.GetProgress(set.ID))

	// Imported study time and streak are taken as-is.
	stats := s.UserStats()
	assert.Equal(t, 777, stats.TotalStudyTime)
	assert.Equal(t, 3, stats.StreakDays)
}

func TestImportSnapshot_RecomputesTotalsFromSets(t *testing.T) {
	s, _ := newReadyStore(t)

	envelope := `{
		"studySets": [{"id":"abc","title":"T","cards":[{"id":"c1","term":"a","definition":"b"}],"createdAt":"2024-01-01T00:00:00Z","studyCount":0,"averageScore":0,"bestScore":0}],
		"userStats": {"totalStudySets":99,"totalCards":99,"totalStudyTime":10,"streakDays":1,"lastStudyDate":null}
	}`
	result := s.ImportSnapshot([]byte(envelope))
	require.True(t, result.Success)

	stats := s.UserStats()
	assert.Equal(t, 1, stats.TotalStudySets)
	assert.Equal(t, 1, stats.TotalCards)
	assert.Equal(t, 10, stats.TotalStudyTime)
}

func TestLoad_CorruptBlobsStartEmpty(t *testing.T) {
	blobs := newMemBlobs()
	blobs.data[blobStudySets] = []byte("{garbage")
	blobs.data[blobUserStats] = []byte("[]")
	blobs.data[blobStudyProgress] = []byte("not json")

	s := New(blobs)
	require.NoError(t, s.Load())

	assert.Empty(t, s.ListStudySets())
	assert.Equal(t, models.UserStats{}, s.UserStats())

	// The store stays usable after a corrupt load.
	_, err := s.AddStudySet("Fresh", capitalsCards())
	assert.NoError(t, err)
}

func TestLoad_RestoresPersistedState(t *testing.T) {
	blobs := newMemBlobs()
	first := New(blobs)
	require.NoError(t, first.Load())
	set, err := first.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err)
	require.NoError(t, first.RecordStudySession(set.ID, score(90), 30))
	require.NoError(t, first.UpdateProgress(set.ID, set.Cards[2].ID, models.StatusUnknown))

	second := New(blobs)
	require.NoError(t, second.Load())

	got, ok := second.GetStudySetByID(set.ID)
	require.True(t, ok)
	assert.Equal(t, 1, got.StudyCount)
	assert.Equal(t, 90.0, got.BestScore)
	assert.Equal(t, models.StatusUnknown, second.GetProgress(set.ID)[set.Cards[2].ID])
	assert.Equal(t, 30, second.UserStats().TotalStudyTime)
}

func TestSaveStatus_SurfacesWriteFailures(t *testing.T) {
	s, blobs := newReadyStore(t)

	assert.True(t, s.SaveStatus().Healthy)

	blobs.failWrites = true
	set, err := s.AddStudySet("Capitals", capitalsCards())
	require.NoError(t, err, "a failed write must not fail the mutation")

	st := s.SaveStatus()
	assert.False(t, st.Healthy)
	assert.NotEmpty(t, st.LastError)

	// In-memory state stays authoritative for the session.
	_, ok := s.GetStudySetByID(set.ID)
	assert.True(t, ok)

	// A later successful write clears the warning.
	blobs.failWrites = false
	require.NoError(t, s.RecordStudySession(set.ID, nil, 5))
	assert.True(t, s.SaveStatus().Healthy)
}

func TestRecentStudySets(t *testing.T) {
	s, _ := newReadyStore(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	a, err := s.AddStudySet("A", capitalsCards())
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(time.Hour) }
	b, err := s.AddStudySet("B", capitalsCards())
	require.NoError(t, err)

	// Studying A makes it the most recent despite its older creation.
	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, s.RecordStudySession(a.ID, nil, 10))

	recent := s.RecentStudySets(1)
	require.Len(t, recent, 1)
	assert.Equal(t, a.ID, recent[0].ID)

	recent = s.RecentStudySets(10)
	require.Len(t, recent, 2)
	assert.Equal(t, b.ID, recent[1].ID)
}
