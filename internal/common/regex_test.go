package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		word string
		want bool
	}{
		{name: "exact", text: "ăn sáng", word: "ăn sáng", want: true},
		{name: "prefix word", text: "ăn trưa với bạn", word: "ăn", want: true},
		{name: "inside another word", text: "bận rộn", word: "ăn", want: false},
		{name: "case insensitive", text: "Grab về nhà", word: "grab", want: true},
		{name: "punctuation boundary", text: "taxi, xe ôm", word: "taxi", want: true},
		{name: "empty word", text: "taxi", word: "  ", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsWord(tt.text, tt.word))
		})
	}
}

func TestContainsAnyWord(t *testing.T) {
	assert.True(t, ContainsAnyWord("nhận lương tháng 5", []string{"thưởng", "lương"}))
	assert.False(t, ContainsAnyWord("cà phê", []string{"thưởng", "lương"}))
}
