// Package ranker scores term matches with BM25.
package ranker

import "math"

const (
	k1 = 1.2
	b  = 0.75
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// FieldStats are the collection statistics of one field.
type FieldStats struct {
	TotalDocs int
	AvgLength float64
}

// Score is the BM25 contribution of a term that occurs termFreq times in a
// field of docLength terms and in docFreq documents overall.
func Score(termFreq, docFreq, docLength int, stats FieldStats) float64 {
	if termFreq <= 0 || docFreq <= 0 {
		return 0
	}
	idf := computeIDF(int64(stats.TotalDocs), int64(docFreq))
	return idf * computeTFNorm(float64(termFreq), float64(docLength), stats.AvgLength)
}

// Round trims a score to four decimals so equal matches tie exactly.
func Round(score float64) float64 {
	return math.Round(score*10000) / 10000
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
