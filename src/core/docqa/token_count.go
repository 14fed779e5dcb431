package docqa

import (
	"strings"
	"unicode"
)

// EstimateBertTokenCount approximates the WordPiece token count of text,
// including the [CLS] and [SEP] markers. It is a character heuristic, not a tokenizer.
func EstimateBertTokenCount(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	return 2 + estimateTokens(text)
}

// estimateTokens is the marker-free count used to measure chunks and context budgets
func estimateTokens(text string) int {
	count := 0
	for _, word := range strings.Fields(text) {
		count += estimateWordTokens(word)
	}
	return count
}

func estimateWordTokens(word string) int {
	if len(word) == 1 && unicode.IsPunct(rune(word[0])) {
		return 1
	}

	// digits tend to split one by one
	if isNumber(word) {
		return len(word)
	}

	if len(word) <= 4 {
		return 1
	}
	return (len(word) + 3) / 4
}

func isNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}
