package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"quizcraft-backend/internal/models"
)

// DefaultImportTitle names sets imported from pasted text, where no file
// name is available.
const DefaultImportTitle = "Imported Study Set"

// CardImportService parses CSV-like bulk card input: two-column rows of
// term,definition with no header row. Rows missing either column are
// dropped silently; the store filters again on insert.
type CardImportService struct{}

func NewCardImportService() *CardImportService {
	return &CardImportService{}
}

func (s *CardImportService) ParseCards(r io.Reader) ([]models.Card, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var cards []models.Card
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse card data: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		term := strings.TrimSpace(row[0])
		def := strings.TrimSpace(row[1])
		if term == "" || def == "" {
			continue
		}
		cards = append(cards, models.Card{Term: term, Definition: def})
	}

	return cards, nil
}

// TitleFromFilename derives a set title from the source file name with
// its extension stripped, falling back to the pasted-text placeholder.
func TitleFromFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return DefaultImportTitle
	}
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" {
		return DefaultImportTitle
	}
	return title
}
