package translation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientTranslate(t *testing.T) {
	tests := []struct {
		name      string
		lang      Language
		status    int
		response  string
		wantPath  string
		wantText  string
		wantEmpty bool
		wantErr   bool
	}{
		{
			name:     "string data",
			lang:     English,
			status:   http.StatusOK,
			response: `{"data":"hello world"}`,
			wantPath: "/translate-english/",
			wantText: "hello world",
		},
		{
			name:     "filipino path",
			lang:     Filipino,
			status:   http.StatusOK,
			response: `{"data":"kamusta"}`,
			wantPath: "/translate-filipino/",
			wantText: "kamusta",
		},
		{
			name:     "array data joined",
			lang:     English,
			status:   http.StatusOK,
			response: `{"data":["hello","world"]}`,
			wantPath: "/translate-english/",
			wantText: "hello,world",
		},
		{
			name:     "number data",
			lang:     English,
			status:   http.StatusOK,
			response: `{"data":42}`,
			wantPath: "/translate-english/",
			wantText: "42",
		},
		{
			name:     "null data",
			lang:     English,
			status:   http.StatusOK,
			response: `{"data":null}`,
			wantPath: "/translate-english/",
			wantText: "",
		},
		{
			name:      "missing data",
			lang:      English,
			status:    http.StatusOK,
			response:  `{}`,
			wantPath:  "/translate-english/",
			wantEmpty: true,
		},
		{
			name:     "server error",
			lang:     English,
			status:   http.StatusInternalServerError,
			response: `boom`,
			wantPath: "/translate-english/",
			wantErr:  true,
		},
		{
			name:     "malformed body",
			lang:     English,
			status:   http.StatusOK,
			response: `not json`,
			wantPath: "/translate-english/",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotMethod, gotContentType string
			var gotBody translateBody
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotMethod = r.Method
				gotContentType = r.Header.Get("Content-Type")
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &gotBody)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := NewClient(server.URL)
			result, err := client.Translate(context.Background(), Request{URLs: []string{"url1", "url2"}, Language: tt.lang})

			if gotPath != tt.wantPath {
				t.Errorf("path = %s, want %s", gotPath, tt.wantPath)
			}
			if gotMethod != http.MethodPost {
				t.Errorf("method = %s, want POST", gotMethod)
			}
			if gotContentType != "application/json" {
				t.Errorf("Content-Type = %s, want application/json", gotContentType)
			}
			if len(gotBody.Braille) != 2 || gotBody.Braille[0] != "url1" || gotBody.Braille[1] != "url2" {
				t.Errorf("braille = %v, want [url1 url2]", gotBody.Braille)
			}

			if tt.wantErr {
				var tErr *TranslationError
				if !errors.As(err, &tErr) {
					t.Fatalf("Translate() error = %v, want *TranslationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Translate() unexpected error: %v", err)
			}
			if result.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", result.Text, tt.wantText)
			}
			if result.Empty != tt.wantEmpty {
				t.Errorf("Empty = %v, want %v", result.Empty, tt.wantEmpty)
			}
		})
	}
}

func TestClientStatusCarriedInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL+"/").Translate(context.Background(), Request{URLs: []string{"u"}, Language: English})
	var tErr *TranslationError
	if !errors.As(err, &tErr) {
		t.Fatalf("Translate() error = %v, want *TranslationError", err)
	}
	if tErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want %d", tErr.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).Translate(context.Background(), Request{URLs: []string{"u"}, Language: English})
	var tErr *TranslationError
	if !errors.As(err, &tErr) {
		t.Fatalf("Translate() error = %v, want *TranslationError", err)
	}
	if tErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", tErr.StatusCode)
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		input   string
		want    Language
		wantErr bool
	}{
		{input: "english", want: English},
		{input: "English", want: English},
		{input: "eng", want: English},
		{input: " filipino ", want: Filipino},
		{input: "fil", want: Filipino},
		{input: "klingon", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLanguage(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLanguage(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLanguage(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLanguage(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLanguageCodes(t *testing.T) {
	if English.Tag() != "english" || English.DBCode() != "eng" {
		t.Errorf("English = %s/%s, want english/eng", English.Tag(), English.DBCode())
	}
	if Filipino.Tag() != "filipino" || Filipino.DBCode() != "fil" {
		t.Errorf("Filipino = %s/%s, want filipino/fil", Filipino.Tag(), Filipino.DBCode())
	}
	if Language(9).Tag() != "" {
		t.Errorf("unknown language has tag %q", Language(9).Tag())
	}
}
