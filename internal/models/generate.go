package models

type GenerateFlashcardsRequest struct {
	Text              string `json:"text"`
	Title             string `json:"title"`
	NumCards          int    `json:"num_cards"`
	Difficulty        string `json:"difficulty"` // "easy" | "medium" | "hard"
	Subject           string `json:"subject"`
	IncludeStudyGuide bool   `json:"include_study_guide"`
}

// GeneratedSet is what the AI collaborator hands back: pre-filtered
// term/definition pairs plus an optional study guide.
type GeneratedSet struct {
	Cards      []Card      `json:"cards"`
	StudyGuide *StudyGuide `json:"study_guide,omitempty"`
}

type StudyGuide struct {
	Overview          string             `json:"overview"`
	KeyPoints         []string           `json:"key_points"`
	PracticeQuestions []PracticeQuestion `json:"practice_questions"`
	StudyTips         []string           `json:"study_tips"`
}

type PracticeQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type ImportCardsRequest struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}
