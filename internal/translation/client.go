package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Request is one aggregate translation: the staged image URLs in staging
// order and the target language.
type Request struct {
	URLs     []string
	Language Language
}

// Result is the service's answer. Empty is set when the response had no
// data field, which means there was nothing to translate.
type Result struct {
	Text  string
	Empty bool
}

// TranslationError reports a transport failure or an unusable response.
type TranslationError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TranslationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("translation service returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("translation request failed: %v", e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// Translator performs one translation request.
type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// Client talks to the remote translation service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a bounded request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

type translateBody struct {
	Braille []string `json:"braille"`
}

// Translate posts the URLs to /translate-<tag>/.
func (c *Client) Translate(ctx context.Context, req Request) (Result, error) {
	tag := req.Language.Tag()
	if tag == "" {
		return Result{}, fmt.Errorf("unsupported language: %v", req.Language)
	}

	payload, err := json.Marshal(translateBody{Braille: req.URLs})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal translate request: %w", err)
	}

	url := fmt.Sprintf("%s/translate-%s/", c.BaseURL, tag)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create translate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	slog.Debug("Requesting translation", "url", url, "images", len(req.URLs))

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return Result{}, &TranslationError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return Result{}, &TranslationError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &TranslationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return parseResult(body)
}

func parseResult(body []byte) (Result, error) {
	var response map[string]json.RawMessage
	if len(bytes.TrimSpace(body)) == 0 {
		return Result{Empty: true}, nil
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return Result{}, &TranslationError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	data, ok := response["data"]
	if !ok {
		return Result{Empty: true}, nil
	}

	text, err := stringify(data)
	if err != nil {
		return Result{}, &TranslationError{Err: fmt.Errorf("failed to read data field: %w", err)}
	}
	return Result{Text: text}, nil
}

// stringify renders a JSON value the way a JavaScript toString() would:
// strings verbatim, arrays joined by commas, null as empty text.
func stringify(raw json.RawMessage) (string, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	return stringifyValue(v)
}

func stringifyValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case json.Number:
		return x.String(), nil
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			s, err := stringifyValue(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ","), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
