package practice

import "strings"

// punctuation stripped before comparing a guess with the expected word.
var punctReplacer = strings.NewReplacer(
	".", "", ",", "", ";", "", ":", "", "!", "", "?", "", "'", "", `"`, "", "-", "",
)

// NormalizeWord lowercases the word and strips sentence punctuation so
// "loved," matches "Loved".
func NormalizeWord(s string) string {
	return punctReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// NormalizeText lowercases and strips punctuation from a full attempt text.
func NormalizeText(s string) string {
	return punctReplacer.Replace(strings.ToLower(s))
}

// SplitWords breaks verse text into its guessable words.
func SplitWords(text string) []string {
	return strings.Fields(text)
}
