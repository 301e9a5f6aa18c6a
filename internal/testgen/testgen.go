package testgen

import (
	"context"
	"math/rand"
	"strings"

	"quizcraft-backend/internal/models"
)

const maxDistractors = 3

// DistractorGenerator produces wrong answers for one card, typically
// AI-backed. A failure is recoverable: the builder falls back to sampling
// sibling definitions for that card only.
type DistractorGenerator interface {
	GenerateDistractors(ctx context.Context, card models.Card, siblings []models.Card) ([]string, error)
}

// BuildTest creates one multiple-choice question per card, in card order.
// Each question's options hold the correct definition plus up to three
// distinct distractors, shuffled. Sets smaller than four cards simply get
// shorter option lists. gen may be nil to force the sampling policy.
func BuildTest(ctx context.Context, set *models.StudySet, gen DistractorGenerator) []models.Question {
	questions := make([]models.Question, 0, len(set.Cards))

	for i, card := range set.Cards {
		siblings := make([]models.Card, 0, len(set.Cards)-1)
		for j, other := range set.Cards {
			if j != i {
				siblings = append(siblings, other)
			}
		}

		distractors := generateDistractors(ctx, card, siblings, gen)

		options := append([]string{card.Definition}, distractors...)
		rand.Shuffle(len(options), func(a, b int) {
			options[a], options[b] = options[b], options[a]
		})

		questions = append(questions, models.Question{
			Prompt:        card.Term,
			CorrectAnswer: card.Definition,
			Options:       options,
		})
	}

	return questions
}

func generateDistractors(ctx context.Context, card models.Card, siblings []models.Card, gen DistractorGenerator) []string {
	if gen != nil {
		if generated := tryGenerated(ctx, card, siblings, gen); generated != nil {
			return generated
		}
	}
	return sampleDistractors(card, siblings)
}

func tryGenerated(ctx context.Context, card models.Card, siblings []models.Card, gen DistractorGenerator) []string {
	raw, err := gen.GenerateDistractors(ctx, card, siblings)
	if err != nil {
		return nil
	}
	distractors := dedupe(raw, card.Definition)
	if len(distractors) != maxDistractors {
		return nil
	}
	return distractors
}

// sampleDistractors uniformly samples distinct sibling definitions
// without replacement.
func sampleDistractors(card models.Card, siblings []models.Card) []string {
	defs := make([]string, 0, len(siblings))
	for _, s := range siblings {
		defs = append(defs, s.Definition)
	}
	rand.Shuffle(len(defs), func(a, b int) {
		defs[a], defs[b] = defs[b], defs[a]
	})

	distractors := dedupe(defs, card.Definition)
	if len(distractors) > maxDistractors {
		distractors = distractors[:maxDistractors]
	}
	return distractors
}

// dedupe drops empty strings, duplicates and anything matching the
// correct answer.
func dedupe(candidates []string, correct string) []string {
	seen := map[string]bool{correct: true}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
