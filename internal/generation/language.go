package generation

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var supportedLanguages = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
	language.Portuguese,
	language.Italian,
	language.Dutch,
	language.Arabic,
	language.Hindi,
	language.Chinese,
	language.Japanese,
	language.Korean,
	language.Swahili,
	language.Turkish,
	language.Russian,
	language.Polish,
}

var languagesByName = func() map[string]language.Tag {
	names := display.English.Languages()
	out := make(map[string]language.Tag, len(supportedLanguages))
	for _, tag := range supportedLanguages {
		out[strings.ToLower(names.Name(tag))] = tag
	}
	return out
}()

// NormalizeLanguage accepts a BCP 47 tag ("es", "pt-BR") or an English
// language name ("Spanish") and returns the matching tag. Empty or
// unrecognized input yields English.
func NormalizeLanguage(raw string) language.Tag {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return language.English
	}
	if tag, ok := languagesByName[strings.ToLower(raw)]; ok {
		return tag
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return language.English
	}
	return tag
}

// IsEnglish reports whether tag is any English variant.
func IsEnglish(tag language.Tag) bool {
	base, _ := tag.Base()
	enBase, _ := language.English.Base()
	return base == enBase
}

// LanguageName is the English display name used in prompts.
func LanguageName(tag language.Tag) string {
	base, _ := tag.Base()
	if name := display.English.Languages().Name(base); name != "" {
		return name
	}
	return tag.String()
}
