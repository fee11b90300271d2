package models

import "time"

// Session is the API view of a capture and translate session
type Session struct {
	ID           string    `json:"id"`
	State        string    `json:"state"`
	Language     string    `json:"language"`
	CanTranslate bool      `json:"can_translate"`
	Images       []Image   `json:"images"`
	CreatedAt    time.Time `json:"created_at"`
}

// Image is one staged image
type Image struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Reference   string `json:"reference"`
	URL         string `json:"url"`
	MIMEType    string `json:"mime_type"`
}

// TranslateResponse mirrors the translation service: data is null when
// there was nothing to translate
type TranslateResponse struct {
	Data *string `json:"data"`
}

// BrailleEntry is one row of a braille reference table
type BrailleEntry struct {
	PK      int      `json:"pk"`
	Text    string   `json:"text"`
	Braille string   `json:"braille"`
	Unicode string   `json:"unicode"`
	Grid    []string `json:"grid"`
}
