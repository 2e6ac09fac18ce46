// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// termWeight is one vocabulary term's weight within a document vector.
type termWeight struct {
	term   int
	weight float64
}

// sparseVector is a document vector sorted by ascending term index.
// Vectors produced by the vectorizer are l2-normalized, so the dot product
// of two vectors is their cosine similarity.
type sparseVector []termWeight

// dot returns the dot product of two sparse vectors.
func (a sparseVector) dot(b sparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].term < b[j].term:
			i++
		case a[i].term > b[j].term:
			j++
		default:
			sum += a[i].weight * b[j].weight
			i++
			j++
		}
	}
	return sum
}

// tfidfVectorizer converts a corpus of documents into l2-normalized TF-IDF
// vectors. Tokens are lowercased runs of at least two word characters,
// English stop words are dropped, and IDF uses smoothing:
//
//	idf(t) = ln((1 + n) / (1 + df(t))) + 1
//
// When maxFeatures is positive the vocabulary is capped to the most
// frequent terms across the corpus, ties broken alphabetically.
type tfidfVectorizer struct {
	maxFeatures int
	vocab       map[string]int
	idf         []float64
}

func newTFIDFVectorizer(maxFeatures int) *tfidfVectorizer {
	return &tfidfVectorizer{maxFeatures: maxFeatures}
}

// tokenize splits text into lowercase word tokens of length two or more,
// excluding stop words.
func tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	start := -1
	for i, r := range text {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
		if isWord {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tok := text[start:i]
			if len(tok) >= 2 && !stopWords[tok] {
				tokens = append(tokens, tok)
			}
			start = -1
		}
	}
	if start >= 0 {
		tok := text[start:]
		if len(tok) >= 2 && !stopWords[tok] {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// FitTransform learns the vocabulary and IDF weights from the corpus and
// returns one l2-normalized vector per document, in input order.
func (v *tfidfVectorizer) FitTransform(docs []string) []sparseVector {
	tokenized := make([][]string, len(docs))
	termTotal := make(map[string]int)
	docFreq := make(map[string]int)

	for i, doc := range docs {
		toks := tokenize(doc)
		tokenized[i] = toks

		seen := make(map[string]bool, len(toks))
		for _, t := range toks {
			termTotal[t]++
			if !seen[t] {
				seen[t] = true
				docFreq[t]++
			}
		}
	}

	terms := make([]string, 0, len(termTotal))
	for t := range termTotal {
		terms = append(terms, t)
	}
	if v.maxFeatures > 0 && len(terms) > v.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if termTotal[terms[i]] != termTotal[terms[j]] {
				return termTotal[terms[i]] > termTotal[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.maxFeatures]
	}
	sort.Strings(terms)

	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	n := float64(len(docs))
	for i, t := range terms {
		v.vocab[t] = i
		v.idf[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}

	vectors := make([]sparseVector, len(docs))
	for i, toks := range tokenized {
		vectors[i] = v.transform(toks)
	}
	return vectors
}

// transform builds the l2-normalized TF-IDF vector for one tokenized
// document using the fitted vocabulary.
func (v *tfidfVectorizer) transform(tokens []string) sparseVector {
	counts := make(map[int]int)
	for _, t := range tokens {
		if idx, ok := v.vocab[t]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	vec := make(sparseVector, 0, len(counts))
	var norm float64
	for idx, c := range counts {
		w := float64(c) * v.idf[idx]
		norm += w * w
		vec = append(vec, termWeight{term: idx, weight: w})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].term < vec[j].term })

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i].weight /= norm
		}
	}
	return vec
}

// VocabularySize returns the number of fitted terms.
func (v *tfidfVectorizer) VocabularySize() int {
	return len(v.vocab)
}
