// Package brailledb reads the braille reference tables served by the
// translation service.
package brailledb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/transbraille/transbraille/internal/braille"
)

// Kind selects which table to read.
type Kind string

const (
	Letter Kind = "letter"
	Number Kind = "number"
	Word   Kind = "word"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Letter, Number, Word:
		return k, nil
	default:
		return "", fmt.Errorf("unknown braille table %q (letter, number, word)", s)
	}
}

// Entry is one row of a braille table.
type Entry struct {
	PK   int          `json:"pk" yaml:"pk"`
	Text string       `json:"text" yaml:"text"`
	Cell braille.Cell `json:"-" yaml:"-"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type queryResponse struct {
	Data *[]struct {
		PK     int `json:"pk"`
		Fields struct {
			Text    string `json:"text"`
			Braille string `json:"braille"`
		} `json:"fields"`
	} `json:"data"`
}

// Query fetches every entry of kind for the language code (eng or fil).
func (c *Client) Query(ctx context.Context, kind Kind, lang string) ([]Entry, error) {
	q := url.Values{}
	q.Set("q", string(kind))
	q.Set("lang", lang)
	endpoint := c.BaseURL + "/transbraille?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query braille database: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("braille database returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode braille database response: %w", err)
	}
	if parsed.Data == nil {
		return []Entry{}, nil
	}

	entries := make([]Entry, 0, len(*parsed.Data))
	for _, row := range *parsed.Data {
		cell, err := braille.ParseCell(row.Fields.Braille)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%q): %w", row.PK, row.Fields.Text, err)
		}
		entries = append(entries, Entry{PK: row.PK, Text: row.Fields.Text, Cell: cell})
	}

	slog.Debug("Queried braille database", "kind", kind, "lang", lang, "entries", len(entries))
	return entries, nil
}
