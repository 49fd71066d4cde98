// Package tfidf provides a TF-IDF vectorizer with cosine similarity over
// L2-normalized feature rows. Vocabulary order and weighting are a pure
// function of the fitted corpus, so refitting identical input yields
// identical vectors.
package tfidf

import (
	"math"
	"sort"

	"github.com/hyperjump/osusume/pkg/utils"
)

// Options controls vocabulary construction.
type Options struct {
	// MaxFeatures caps the vocabulary size; 0 means unlimited. When trimming,
	// terms with the highest document frequency win, ties broken lexicographically.
	MaxFeatures int
	Tokenizer   TokenizerOptions
}

// Vectorizer holds a fitted vocabulary and IDF weights. It is immutable after
// Fit and safe for concurrent Transform calls.
type Vectorizer struct {
	opts       Options
	vocab      []string
	vocabIndex map[string]int
	idf        []float64
	numDocs    int
}

// Fit builds a vectorizer from the corpus. Vocabulary columns are ordered
// lexicographically. idf(t) = log(N / df(t)), so terms present in every
// document weigh zero, matching the natural behavior of the formula.
func Fit(docs []string, opts Options) *Vectorizer {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range Tokenize(doc, opts.Tokenizer) {
			if !seen[term] {
				df[term]++
				seen[term] = true
			}
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	if opts.MaxFeatures > 0 && len(terms) > opts.MaxFeatures {
		// Stable sort on a lexicographically sorted slice keeps the
		// tie-break deterministic.
		sort.SliceStable(terms, func(i, j int) bool {
			return df[terms[i]] > df[terms[j]]
		})
		terms = terms[:opts.MaxFeatures]
		sort.Strings(terms)
	}

	v := &Vectorizer{
		opts:       opts,
		vocab:      terms,
		vocabIndex: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
		numDocs:    len(docs),
	}
	for i, t := range terms {
		v.vocabIndex[t] = i
		v.idf[i] = math.Log(float64(len(docs)) / float64(df[t]))
	}
	return v
}

// Transform converts a document into an L2-normalized TF-IDF row over the
// fitted vocabulary. Out-of-vocabulary terms are ignored. A document with no
// vocabulary terms yields an all-zero row.
func (v *Vectorizer) Transform(doc string) []float32 {
	row := make([]float32, len(v.vocab))
	if v.numDocs == 0 {
		return row
	}
	counts := make(map[int]int)
	for _, term := range Tokenize(doc, v.opts.Tokenizer) {
		if idx, ok := v.vocabIndex[term]; ok {
			counts[idx]++
		}
	}
	for idx, count := range counts {
		row[idx] = float32(float64(count) * v.idf[idx])
	}
	utils.NormalizeL2(row)
	return row
}

// TransformAll transforms each document into a feature row.
func (v *Vectorizer) TransformAll(docs []string) [][]float32 {
	rows := make([][]float32, len(docs))
	for i, doc := range docs {
		rows[i] = v.Transform(doc)
	}
	return rows
}

// VocabularySize returns the number of feature columns.
func (v *Vectorizer) VocabularySize() int {
	return len(v.vocab)
}

// Similarity returns the cosine similarity of two normalized rows, clamped to
// [0, 1]. Rows of mismatched length or zero magnitude score 0.
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return utils.Clamp01(dot)
}
