package entity

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const MaxTextLength = 50000

var (
	scriptBlockRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script\s*>`)
	iframeBlockRe  = regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe\s*>`)
	jsSchemeRe     = regexp.MustCompile(`(?i)javascript\s*:`)
	eventHandlerRe = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	htmlTagRe      = regexp.MustCompile(`<[^>]*>`)
)

// SanitizeText strips markup that could execute in a browser and all remaining tags.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\x00", "")
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = iframeBlockRe.ReplaceAllString(s, "")
	s = jsSchemeRe.ReplaceAllString(s, "")
	s = eventHandlerRe.ReplaceAllString(s, "")
	s = htmlTagRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > MaxTextLength {
		s = string([]rune(s)[:MaxTextLength])
	}
	return s
}

func sanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := SanitizeText(*s)
	return &v
}
