package tfidf

import (
	"strings"
	"unicode"
)

// minTokenLength is the shortest token kept by the tokenizer. Single-rune
// tokens carry almost no signal and bloat the vocabulary.
const minTokenLength = 2

// TokenizerOptions controls tokenization and term extraction.
type TokenizerOptions struct {
	// Stopwords drops tokens in the built-in English stop-word list.
	Stopwords bool
	// Bigrams appends adjacent-token pairs ("wool sweater") to the unigram stream.
	Bigrams bool
}

// Tokenize splits text into lowercase terms. Tokens are maximal runs of
// letters and digits; everything else is a separator. Tokens shorter than two
// runes are dropped, and stop words are removed when enabled. The split rules
// are part of the similarity contract: changing them changes rankings.
func Tokenize(text string, opts TokenizerOptions) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTokenLength {
			continue
		}
		if opts.Stopwords && stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	if opts.Bigrams && len(tokens) > 1 {
		terms := make([]string, 0, 2*len(tokens)-1)
		terms = append(terms, tokens...)
		for i := 0; i+1 < len(tokens); i++ {
			terms = append(terms, tokens[i]+" "+tokens[i+1])
		}
		return terms
	}
	return tokens
}
