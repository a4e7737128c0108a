package common

import (
	"regexp"
	"strings"
	"sync"
)

var wordPatterns sync.Map // map[string]*regexp.Regexp

// ContainsWord reports whether word occurs in text as a whole word or phrase.
// Letter boundaries are Unicode aware so "ăn" does not match inside "bận".
func ContainsWord(text, word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return false
	}

	var re *regexp.Regexp
	if cached, ok := wordPatterns.Load(word); ok {
		re = cached.(*regexp.Regexp)
	} else {
		re = regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(word) + `([^\p{L}\p{N}]|$)`)
		wordPatterns.Store(word, re)
	}

	return re.MatchString(text)
}

// ContainsAnyWord reports whether any of words occurs in text as a whole word.
func ContainsAnyWord(text string, words []string) bool {
	for _, w := range words {
		if ContainsWord(text, w) {
			return true
		}
	}
	return false
}
