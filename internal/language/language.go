package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a transcription language accepted by the streaming service.
type Language struct {
	Code string // BCP-47 tag (e.g., "en", "pt-BR")
	Name string
}

// Multi enables code-switching between languages within one session.
var Multi = Language{Code: "multi", Name: "Multilingual"}

// Default leaves the choice to the service.
var Default = Language{Code: "", Name: "Service default"}

var languages = []Language{
	{Code: "bg", Name: "Bulgarian"},
	{Code: "ca", Name: "Catalan"},
	{Code: "cs", Name: "Czech"},
	{Code: "da", Name: "Danish"},
	{Code: "de", Name: "German"},
	{Code: "de-CH", Name: "German (Switzerland)"},
	{Code: "el", Name: "Greek"},
	{Code: "en", Name: "English"},
	{Code: "en-AU", Name: "English (Australia)"},
	{Code: "en-GB", Name: "English (United Kingdom)"},
	{Code: "en-IN", Name: "English (India)"},
	{Code: "en-NZ", Name: "English (New Zealand)"},
	{Code: "en-US", Name: "English (United States)"},
	{Code: "es", Name: "Spanish"},
	{Code: "es-419", Name: "Spanish (Latin America)"},
	{Code: "et", Name: "Estonian"},
	{Code: "fi", Name: "Finnish"},
	{Code: "fr", Name: "French"},
	{Code: "fr-CA", Name: "French (Canada)"},
	{Code: "hi", Name: "Hindi"},
	{Code: "hu", Name: "Hungarian"},
	{Code: "id", Name: "Indonesian"},
	{Code: "it", Name: "Italian"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
	{Code: "lt", Name: "Lithuanian"},
	{Code: "lv", Name: "Latvian"},
	{Code: "ms", Name: "Malay"},
	{Code: "nl", Name: "Dutch"},
	{Code: "nl-BE", Name: "Flemish"},
	{Code: "no", Name: "Norwegian"},
	{Code: "pl", Name: "Polish"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "pt-BR", Name: "Portuguese (Brazil)"},
	{Code: "pt-PT", Name: "Portuguese (Portugal)"},
	{Code: "ro", Name: "Romanian"},
	{Code: "ru", Name: "Russian"},
	{Code: "sk", Name: "Slovak"},
	{Code: "sv", Name: "Swedish"},
	{Code: "th", Name: "Thai"},
	{Code: "tr", Name: "Turkish"},
	{Code: "uk", Name: "Ukrainian"},
	{Code: "vi", Name: "Vietnamese"},
	{Code: "zh", Name: "Chinese"},
	{Code: "zh-TW", Name: "Chinese (Traditional)"},
}

var codeIndex map[string]Language

func init() {
	codeIndex = make(map[string]Language, len(languages)+2)
	codeIndex[Default.Code] = Default
	codeIndex[Multi.Code] = Multi
	for _, lang := range languages {
		codeIndex[strings.ToLower(lang.Code)] = lang
	}
}

// FromCode looks up code case-insensitively. A regional tag without its own
// entry resolves to its base language; anything else resolves to Default.
func FromCode(code string) Language {
	code = strings.ToLower(strings.TrimSpace(code))
	if lang, ok := codeIndex[code]; ok {
		return lang
	}
	if base, _, found := strings.Cut(code, "-"); found {
		if lang, ok := codeIndex[base]; ok {
			return lang
		}
	}
	return Default
}

// IsValidCode reports whether code is accepted, including empty for the service default.
func IsValidCode(code string) bool {
	if strings.TrimSpace(code) == "" {
		return true
	}
	return FromCode(code) != Default
}

// List returns the selectable languages, Multi first.
func List() []Language {
	result := make([]Language, 0, len(languages)+1)
	result = append(result, Multi)
	return append(result, languages...)
}

// Label returns a human-readable label for any BCP-47 tag.
// Example: "es" -> "Spanish (es)", "en-IE" -> "Irish English (en-IE)".
func Label(code string) string {
	if code == "" {
		return Default.Name
	}

	normalized := strings.ReplaceAll(code, "_", "-")
	tag, err := language.Parse(normalized)
	if err != nil {
		return fmt.Sprintf("language '%s'", code)
	}

	name := display.English.Tags().Name(tag)
	if name == "" || strings.EqualFold(name, code) {
		return fmt.Sprintf("language '%s'", code)
	}
	return fmt.Sprintf("%s (%s)", name, code)
}
