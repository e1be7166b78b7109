// Package languages holds the registry of target languages the bot accepts.
// A Registry is built once at startup and never mutated afterwards, so it is
// safe to share between concurrently handled messages.
package languages

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language describes one supported target language.
type Language struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Emoji       string `yaml:"emoji"`
}

// Registry is an ordered, read-only set of languages keyed by code.
type Registry struct {
	ordered []Language
	byCode  map[string]Language
}

// New builds a registry. Codes are normalized to lower case and must be unique.
func New(langs ...Language) (*Registry, error) {
	if len(langs) == 0 {
		return nil, fmt.Errorf("at least one language is required")
	}
	r := &Registry{
		ordered: make([]Language, 0, len(langs)),
		byCode:  make(map[string]Language, len(langs)),
	}
	for i, lang := range langs {
		code := normalize(lang.Code)
		if code == "" {
			return nil, fmt.Errorf("languages[%d]: code is required", i)
		}
		if strings.ContainsAny(code, " \t\n") {
			return nil, fmt.Errorf("languages[%d]: code %q must not contain whitespace", i, lang.Code)
		}
		if _, dup := r.byCode[code]; dup {
			return nil, fmt.Errorf("languages[%d]: duplicate code %q", i, code)
		}
		lang.Code = code
		if strings.TrimSpace(lang.Name) == "" {
			lang.Name = displayName(code)
		}
		if strings.TrimSpace(lang.Description) == "" {
			lang.Description = "Translate to " + lang.Name
		}
		r.ordered = append(r.ordered, lang)
		r.byCode[code] = lang
	}
	return r, nil
}

// Default returns the built-in English/Japanese registry.
func Default() *Registry {
	r, err := New(DefaultLanguages()...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultLanguages lists the built-in languages in display order.
func DefaultLanguages() []Language {
	return []Language{
		{Code: "en", Name: "English", Description: "Translate to English", Emoji: "🇺🇸"},
		{Code: "jp", Name: "Japanese", Description: "Translate to Japanese", Emoji: "🇯🇵"},
	}
}

// Lookup returns the language registered under code.
func (r *Registry) Lookup(code string) (Language, bool) {
	if r == nil {
		return Language{}, false
	}
	lang, ok := r.byCode[normalize(code)]
	return lang, ok
}

// All returns a copy of the registered languages in registration order.
func (r *Registry) All() []Language {
	if r == nil {
		return nil
	}
	return append([]Language(nil), r.ordered...)
}

// Codes returns every registered code in registration order.
func (r *Registry) Codes() []string {
	if r == nil {
		return nil
	}
	codes := make([]string, 0, len(r.ordered))
	for _, lang := range r.ordered {
		codes = append(codes, lang.Code)
	}
	return codes
}

// Summary renders every language as "'code' (Name)", comma separated.
func (r *Registry) Summary() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.ordered))
	for _, lang := range r.ordered {
		parts = append(parts, fmt.Sprintf("'%s' (%s)", lang.Code, lang.Name))
	}
	return strings.Join(parts, ", ")
}

// displayName returns the English name of a BCP 47 code, or the upper-cased
// code when it is not a known language.
func displayName(code string) string {
	tag, err := language.Parse(code)
	if err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
