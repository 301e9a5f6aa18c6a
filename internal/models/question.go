package models

// Question is one multiple-choice entry of a generated test. Options
// contains CorrectAnswer exactly once; for sets with fewer than four
// cards the list is legitimately shorter than four.
type Question struct {
	Prompt        string   `json:"prompt"`
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options"`
}

type BuildTestRequest struct {
	UseAI bool `json:"use_ai"`
}
