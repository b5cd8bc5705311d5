// Package lexical provides the per-space keyword index used by hybrid
// retrieval: an Okapi BM25 Index over an ordered document list, and a Store
// that owns one Index per space.
package lexical

import (
	"math"
	"slices"
)

// BM25 parameters.
const (
	K1 = 1.5
	B  = 0.75
)

// Hit is one scored document.
type Hit struct {
	// Position is the document's index in the list the Index was built from.
	Position int
	Text     string
	Score    float64
}

// Index is an immutable BM25 index over an ordered list of documents.
// It is safe for concurrent reads.
type Index struct {
	docs      []string
	tf        []map[string]int
	docLen    []int
	docFreq   map[string]int
	avgDocLen float64
}

// NewIndex builds an index over docs. The slice is copied.
func NewIndex(docs []string) *Index {
	ix := &Index{
		docs:    slices.Clone(docs),
		tf:      make([]map[string]int, len(docs)),
		docLen:  make([]int, len(docs)),
		docFreq: make(map[string]int, 512),
	}

	total := 0
	for i, doc := range ix.docs {
		tokens := Tokenize(doc)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			if tf[tok] == 0 {
				ix.docFreq[tok]++
			}
			tf[tok]++
		}
		ix.tf[i] = tf
		ix.docLen[i] = len(tokens)
		total += len(tokens)
	}
	if len(docs) > 0 {
		ix.avgDocLen = float64(total) / float64(len(docs))
	}
	return ix
}

// Len returns the number of documents.
func (ix *Index) Len() int {
	return len(ix.docs)
}

// Documents returns a copy of the document list in order.
func (ix *Index) Documents() []string {
	return slices.Clone(ix.docs)
}

// Score returns the BM25 score of document i for the query tokens.
func (ix *Index) Score(queryTokens []string, i int) float64 {
	if len(queryTokens) == 0 || ix.docLen[i] == 0 || ix.avgDocLen <= 0 {
		return 0
	}
	n := float64(len(ix.docs))
	norm := K1 * (1 - B + B*float64(ix.docLen[i])/ix.avgDocLen)

	score := 0.0
	seen := make(map[string]struct{}, len(queryTokens))
	for _, term := range queryTokens {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}

		freq := float64(ix.tf[i][term])
		if freq == 0 {
			continue
		}
		df := float64(ix.docFreq[term])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		score += idf * freq * (K1 + 1) / (freq + norm)
	}
	return score
}

// Search returns up to k documents with a positive score, best first.
// Ties keep document order.
func (ix *Index) Search(query string, k int) []Hit {
	tokens := Tokenize(query)
	if len(tokens) == 0 || k <= 0 {
		return nil
	}

	var hits []Hit
	for i := range ix.docs {
		if score := ix.Score(tokens, i); score > 0 {
			hits = append(hits, Hit{Position: i, Text: ix.docs[i], Score: score})
		}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
