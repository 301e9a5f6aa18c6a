package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizcraft-backend/internal/models"
)

func TestAvailable_NilService(t *testing.T) {
	var svc *GeminiService
	assert.False(t, svc.Available())
	svc.Close() // must not panic
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", "[1,2]"},
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stripFences(tc.input))
		})
	}
}

func TestJSONWindow(t *testing.T) {
	prose := `Sure! Here are your flashcards: {"flashcards": []} Hope that helps.`
	assert.Equal(t, `{"flashcards": []}`, jsonWindow(prose, '{', '}'))

	arr := `The distractors are ["a", "b", "c"] as requested.`
	assert.Equal(t, `["a", "b", "c"]`, jsonWindow(arr, '[', ']'))

	// No window found leaves the text untouched.
	assert.Equal(t, "no json here", jsonWindow("no json here", '{', '}'))
}

func TestBuildFlashcardPrompt(t *testing.T) {
	prompt := buildFlashcardPrompt(models.GenerateFlashcardsRequest{
		Text:              "The mitochondria is the powerhouse of the cell.",
		NumCards:          5,
		Difficulty:        "hard",
		Subject:           "biology",
		IncludeStudyGuide: true,
	})

	assert.Contains(t, prompt, "Generate 5 high-quality flashcards")
	assert.Contains(t, prompt, "Difficulty level: hard")
	assert.Contains(t, prompt, "Subject area: biology")
	assert.Contains(t, prompt, "mitochondria")
	assert.Contains(t, prompt, "studyGuide")
}

func TestBuildFlashcardPrompt_Defaults(t *testing.T) {
	prompt := buildFlashcardPrompt(models.GenerateFlashcardsRequest{Text: "content"})

	assert.Contains(t, prompt, "Generate 10 high-quality flashcards")
	assert.Contains(t, prompt, "Difficulty level: medium")
	assert.Contains(t, prompt, "Subject area: general")
	assert.NotContains(t, prompt, "studyGuide")
}

func TestBuildDistractorPrompt_CapsContextCards(t *testing.T) {
	card := models.Card{Term: "France", Definition: "Paris"}
	siblings := make([]models.Card, 8)
	for i := range siblings {
		siblings[i] = models.Card{Term: "t", Definition: "d"}
	}

	prompt := buildDistractorPrompt(card, siblings)
	assert.Contains(t, prompt, "Question: France")
	assert.Contains(t, prompt, "Correct Answer: Paris")
	assert.Equal(t, 5, strings.Count(prompt, "- t: d"))
}

func TestBuildStudyGuidePrompt(t *testing.T) {
	set := &models.StudySet{
		Title: "Capitals",
		Cards: []models.Card{
			{ID: "c1", Term: "France", Definition: "Paris"},
			{ID: "c2", Term: "Japan", Definition: "Tokyo"},
			{ID: "c3", Term: "Italy", Definition: "Rome"},
		},
	}
	progress := models.ProgressMap{
		"c1": models.StatusKnown,
		"c2": models.StatusUnknown,
	}

	prompt := buildStudyGuidePrompt(set, progress)
	assert.Contains(t, prompt, `"Capitals"`)
	assert.Contains(t, prompt, "Cards marked as known: 1")
	assert.Contains(t, prompt, "Cards needing practice: 1")
	assert.Contains(t, prompt, "Unstudied cards: 1")
	assert.Contains(t, prompt, "- France: Paris (Status: known)")
	assert.Contains(t, prompt, "- Italy: Rome (Status: unstudied)")
}

// The flashcard payload shape the service parses, exercised without a
// live model call.
func TestFlashcardPayloadParsing(t *testing.T) {
	raw := stripFences("```json\n" + `{
		"flashcards": [
			{"term": "France", "definition": "Paris"},
			{"term": "", "definition": "dropped"},
			{"term": "Japan", "definition": "Tokyo"}
		],
		"studyGuide": {"summary": "Capitals overview", "keyPoints": ["p1"], "studyTips": ["t1"]}
	}` + "\n```")
	raw = jsonWindow(raw, '{', '}')

	var payload struct {
		Flashcards []struct {
			Term       string `json:"term"`
			Definition string `json:"definition"`
		} `json:"flashcards"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	assert.Len(t, payload.Flashcards, 3)
}
