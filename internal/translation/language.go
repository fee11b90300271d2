package translation

import (
	"fmt"
	"strings"
)

// Language is a target language offered by the translation service.
type Language int

const (
	English Language = iota
	Filipino
)

var languages = []struct {
	lang    Language
	tag     string
	dbCode  string
	display string
}{
	{English, "english", "eng", "English"},
	{Filipino, "filipino", "fil", "Filipino"},
}

// Languages lists every supported language in selector order.
func Languages() []Language {
	out := make([]Language, len(languages))
	for i, l := range languages {
		out[i] = l.lang
	}
	return out
}

// Tag is the path component of the translate endpoint, e.g. "english".
func (l Language) Tag() string {
	for _, x := range languages {
		if x.lang == l {
			return x.tag
		}
	}
	return ""
}

// DBCode is the lang parameter of the braille database, e.g. "eng".
func (l Language) DBCode() string {
	for _, x := range languages {
		if x.lang == l {
			return x.dbCode
		}
	}
	return ""
}

func (l Language) String() string {
	for _, x := range languages {
		if x.lang == l {
			return x.display
		}
	}
	return fmt.Sprintf("Language(%d)", int(l))
}

// ParseLanguage accepts a tag, a database code or a display name in any case.
func ParseLanguage(s string) (Language, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, x := range languages {
		if s == x.tag || s == x.dbCode || s == strings.ToLower(x.display) {
			return x.lang, nil
		}
	}
	return 0, fmt.Errorf("unsupported language: %q (supported: english, filipino)", s)
}

// MarshalText lets a Language appear as its tag in JSON and YAML.
func (l Language) MarshalText() ([]byte, error) {
	tag := l.Tag()
	if tag == "" {
		return nil, fmt.Errorf("unknown language %d", int(l))
	}
	return []byte(tag), nil
}

func (l *Language) UnmarshalText(text []byte) error {
	parsed, err := ParseLanguage(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
