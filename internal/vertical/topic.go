package vertical

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultTopic is used when neither the stripped nor the raw hostname yields any text.
const DefaultTopic = "Community"

const leadingWord = "the"

// Each group is tried in turn; within a group the longer word goes first.
var trailingWords = [][]string{
	{"surveys", "survey"},
	{"polls", "poll"},
}

// ExtractTopic derives a human-readable topic from a hostname. A trailing
// "survey(s)" and then "poll(s)" are removed, then a leading "the", hyphens
// become spaces and the first character is upper-cased.
//
// If stripping leaves nothing (e.g. "survey.com"), the normalized hostname itself
// is used, so the result is never empty.
func ExtractTopic(hostname string) string {
	clean := Normalize(hostname)

	topic := clean
	for _, group := range trailingWords {
		topic = trimSuffixFold(topic, group)
	}
	if len(topic) >= len(leadingWord) && strings.EqualFold(topic[:len(leadingWord)], leadingWord) {
		topic = topic[len(leadingWord):]
	}

	if t := tidy(topic); t != "" {
		return t
	}
	if t := tidy(clean); t != "" {
		return t
	}
	return DefaultTopic
}

// trimSuffixFold removes the first matching word from the end of s, ignoring case.
func trimSuffixFold(s string, words []string) string {
	for _, w := range words {
		if len(s) >= len(w) && strings.EqualFold(s[len(s)-len(w):], w) {
			return s[:len(s)-len(w)]
		}
	}
	return s
}

func tidy(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "-", " "))
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
