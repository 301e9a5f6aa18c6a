package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"quizcraft-backend/internal/models"
)

// GeminiService wraps the hosted model behind the three generation
// capabilities the app uses: flashcards from raw text, distractors for
// test questions and study guides. Model output is best-effort JSON, so
// every response goes through fence stripping and window extraction
// before parsing.
type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

// Available reports whether the AI collaborator can be called at all.
// Safe on a nil receiver, so callers can hold a nil *GeminiService when
// no API key was configured.
func (s *GeminiService) Available() bool {
	return s != nil && s.client != nil
}

func (s *GeminiService) Close() {
	if s != nil && s.client != nil {
		s.client.Close()
	}
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// GenerateFlashcards turns free text into term/definition pairs, plus an
// optional study guide when the request asks for one. Pairs with an empty
// side are dropped; an answer with no usable pairs is an error.
func (s *GeminiService) GenerateFlashcards(ctx context.Context, req models.GenerateFlashcardsRequest) (*models.GeneratedSet, error) {
	if !s.Available() {
		return nil, &UnavailableError{Message: "AI service is not configured"}
	}
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildFlashcardPrompt(req)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := jsonWindow(stripFences(extractText(resp)), '{', '}')

	var payload struct {
		Flashcards []struct {
			Term       string `json:"term"`
			Definition string `json:"definition"`
		} `json:"flashcards"`
		StudyGuide *struct {
			Summary   string   `json:"summary"`
			KeyPoints []string `json:"keyPoints"`
			StudyTips []string `json:"studyTips"`
		} `json:"studyGuide"`
	}
	if err := json.Unmarshal([]byte(rawText), &payload); err != nil {
		return nil, fmt.Errorf("invalid response format from AI: %w", err)
	}

	out := &models.GeneratedSet{}
	for _, fc := range payload.Flashcards {
		term := strings.TrimSpace(fc.Term)
		def := strings.TrimSpace(fc.Definition)
		if term == "" || def == "" {
			continue
		}
		out.Cards = append(out.Cards, models.Card{Term: term, Definition: def})
	}
	if len(out.Cards) == 0 {
		return nil, fmt.Errorf("AI returned no usable flashcards")
	}

	if payload.StudyGuide != nil {
		out.StudyGuide = &models.StudyGuide{
			Overview:  payload.StudyGuide.Summary,
			KeyPoints: payload.StudyGuide.KeyPoints,
			StudyTips: payload.StudyGuide.StudyTips,
		}
	}

	return out, nil
}

// GenerateDistractors asks the model for three plausible wrong answers
// for one card. Implements the test builder's DistractorGenerator; the
// builder falls back to sibling sampling when this errors.
func (s *GeminiService) GenerateDistractors(ctx context.Context, card models.Card, siblings []models.Card) ([]string, error) {
	if !s.Available() {
		return nil, &UnavailableError{Message: "AI service is not configured"}
	}
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildDistractorPrompt(card, siblings)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := jsonWindow(stripFences(extractText(resp)), '[', ']')

	var distractors []string
	if err := json.Unmarshal([]byte(rawText), &distractors); err != nil {
		return nil, fmt.Errorf("invalid response format from AI: %w", err)
	}
	if len(distractors) != 3 {
		return nil, fmt.Errorf("expected 3 distractors, got %d", len(distractors))
	}

	return distractors, nil
}

// GenerateStudyGuide builds a personalized guide from a set and the
// learner's current progress marks.
func (s *GeminiService) GenerateStudyGuide(ctx context.Context, set *models.StudySet, progress models.ProgressMap) (*models.StudyGuide, error) {
	if !s.Available() {
		return nil, &UnavailableError{Message: "AI service is not configured"}
	}
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildStudyGuidePrompt(set, progress)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := jsonWindow(stripFences(extractText(resp)), '{', '}')

	var guide models.StudyGuide
	if err := json.Unmarshal([]byte(rawText), &guide); err != nil {
		return nil, fmt.Errorf("invalid response format from AI: %w", err)
	}
	if guide.Overview == "" && len(guide.KeyPoints) == 0 {
		return nil, fmt.Errorf("AI returned an empty study guide")
	}

	return &guide, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// jsonWindow trims the text to the outermost open..close span, the usual
// recovery for models that wrap JSON in prose.
func jsonWindow(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func buildFlashcardPrompt(req models.GenerateFlashcardsRequest) string {
	count := req.NumCards
	if count <= 0 {
		count = 10
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}
	subject := req.Subject
	if subject == "" {
		subject = "general"
	}

	var b strings.Builder

	b.WriteString("Generate " + strconv.Itoa(count) + " high-quality flashcards from the following text. ")
	b.WriteString("Focus on key concepts, definitions, and important facts.\n\n")
	b.WriteString("Difficulty level: " + difficulty + "\n")
	b.WriteString("Subject area: " + subject + "\n\n")
	b.WriteString("TEXT:\n" + req.Text + "\n\n")

	b.WriteString("Respond with a valid JSON object of this exact shape:\n")
	b.WriteString(`{"flashcards": [{"term": "Question or concept", "definition": "Answer or explanation"}]`)
	if req.IncludeStudyGuide {
		b.WriteString(`, "studyGuide": {"summary": "Brief summary of the main concepts", "keyPoints": ["point 1", "point 2"], "studyTips": ["tip 1", "tip 2"]}`)
	}
	b.WriteString("}\n\n")

	b.WriteString("Guidelines:\n")
	b.WriteString("- Make questions clear and concise\n")
	b.WriteString("- Provide comprehensive but digestible answers\n")
	b.WriteString("- Vary question types (definitions, concepts, applications, examples)\n")
	b.WriteString("- Ensure factual accuracy\n")
	b.WriteString("- Make flashcards suitable for spaced repetition learning\n")

	return b.String()
}

func buildDistractorPrompt(card models.Card, siblings []models.Card) string {
	var b strings.Builder

	b.WriteString("Generate 3 plausible but incorrect answers for this flashcard question. The distractors should be:\n")
	b.WriteString("1. Related to the topic but clearly wrong\n")
	b.WriteString("2. Challenging enough to test real understanding\n")
	b.WriteString("3. Not obviously incorrect\n")
	b.WriteString("4. Similar in length and style to the correct answer\n\n")

	b.WriteString("Question: " + card.Term + "\n")
	b.WriteString("Correct Answer: " + card.Definition + "\n\n")

	if len(siblings) > 0 {
		b.WriteString("Related flashcards for context:\n")
		for i, sib := range siblings {
			if i == 5 {
				break
			}
			b.WriteString("- " + sib.Term + ": " + sib.Definition + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(`Return only a JSON array of 3 distractor strings: ["distractor 1", "distractor 2", "distractor 3"]`)

	return b.String()
}

func buildStudyGuidePrompt(set *models.StudySet, progress models.ProgressMap) string {
	known, unknown := 0, 0
	for _, status := range progress {
		if status == models.StatusKnown {
			known++
		} else {
			unknown++
		}
	}
	unstudied := len(set.Cards) - len(progress)
	if unstudied < 0 {
		unstudied = 0
	}

	var b strings.Builder

	b.WriteString("Create a study guide for the flashcard set \"" + set.Title + "\".\n\n")

	b.WriteString("STUDY STATISTICS:\n")
	b.WriteString("- Total flashcards: " + strconv.Itoa(len(set.Cards)) + "\n")
	b.WriteString("- Cards marked as known: " + strconv.Itoa(known) + "\n")
	b.WriteString("- Cards needing practice: " + strconv.Itoa(unknown) + "\n")
	b.WriteString("- Unstudied cards: " + strconv.Itoa(unstudied) + "\n\n")

	b.WriteString("FLASHCARDS:\n")
	for _, c := range set.Cards {
		status := "unstudied"
		if s, ok := progress[c.ID]; ok {
			status = string(s)
		}
		b.WriteString("- " + c.Term + ": " + c.Definition + " (Status: " + status + ")\n")
	}
	b.WriteString("\n")

	b.WriteString("Respond with a valid JSON object of this exact shape:\n")
	b.WriteString(`{"overview": "Brief overview of the material", "key_points": ["point 1", "point 2"], "practice_questions": [{"question": "q", "answer": "a"}], "study_tips": ["tip 1", "tip 2"]}` + "\n\n")

	b.WriteString("Prioritize concepts the learner has marked as unknown or has not studied yet.\n")

	return b.String()
}
