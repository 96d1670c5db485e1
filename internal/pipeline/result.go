package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/ocr"
)

// DocumentResult is the aggregated outcome of one document.
type DocumentResult struct {
	ID                string           `json:"id"`
	SourcePath        string           `json:"source_path"`
	IsScanned         bool             `json:"is_scanned"`
	ProcessingMethod  string           `json:"processing_method"`
	PageCount         int              `json:"page_count"`
	TotalCharacters   int              `json:"total_characters"`
	TotalWords        int              `json:"total_words"`
	AverageConfidence float64          `json:"average_confidence"`
	Text              string           `json:"text"`
	Pages             []ocr.PageResult `json:"pages"`
	Engine            string           `json:"engine,omitempty"`
	Language          string           `json:"language,omitempty"`
	Preset            string           `json:"preset,omitempty"`
	Duration          time.Duration    `json:"duration_ns"`
	CreatedAt         time.Time        `json:"created_at"`
}

// FailedPages counts pages carrying an error marker.
func (d *DocumentResult) FailedPages() int {
	n := 0
	for _, p := range d.Pages {
		if p.Failed() {
			n++
		}
	}
	return n
}

// BatchResult summarizes documents processed independently in one call.
type BatchResult struct {
	ID                string            `json:"id"`
	BatchSize         int               `json:"batch_size"`
	TotalPages        int               `json:"total_pages"`
	TotalCharacters   int               `json:"total_characters"`
	AverageConfidence float64           `json:"average_confidence"`
	Merged            bool              `json:"merged"`
	Documents         []*DocumentResult `json:"documents"`
}

// Aggregate is the pure combination of page results into document totals.
type Aggregate struct {
	Text              string
	PageCount         int
	TotalCharacters   int
	TotalWords        int
	AverageConfidence float64
	Engine            string
	Language          string
}

// AggregatePages joins page texts with "--- Page N ---" markers, sums the
// counts and takes the unweighted mean of page confidences. Failed pages
// count as pages with confidence 0; pages without text add no marker.
// Engine and language come from the first page.
func AggregatePages(pages []ocr.PageResult) Aggregate {
	agg := Aggregate{PageCount: len(pages)}
	if len(pages) == 0 {
		return agg
	}
	var parts []string
	var confSum float64
	for i, p := range pages {
		if p.Text != "" {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i+1, p.Text))
		}
		agg.TotalCharacters += p.CharacterCount
		agg.TotalWords += p.WordCount
		confSum += p.Confidence
	}
	agg.Text = strings.Join(parts, "\n\n")
	agg.AverageConfidence = ocr.Round2(confSum / float64(len(pages)))
	agg.Engine = pages[0].Engine
	agg.Language = pages[0].Language
	return agg
}

// WeightedConfidence is the character-weighted mean of page confidences.
// Aggregation does not use it; it is reported alongside for comparison.
func WeightedConfidence(pages []ocr.PageResult) float64 {
	var sum float64
	var chars int
	for _, p := range pages {
		sum += p.Confidence * float64(p.CharacterCount)
		chars += p.CharacterCount
	}
	if chars == 0 {
		return 0
	}
	return ocr.Round2(sum / float64(chars))
}

// SummarizeBatch totals independently processed documents. The confidence is
// the mean of the per-document averages.
func SummarizeBatch(docs []*DocumentResult) BatchResult {
	res := BatchResult{BatchSize: len(docs), Documents: docs}
	if len(docs) == 0 {
		return res
	}
	var conf float64
	for _, d := range docs {
		res.TotalPages += d.PageCount
		res.TotalCharacters += d.TotalCharacters
		conf += d.AverageConfidence
	}
	res.AverageConfidence = ocr.Round2(conf / float64(len(docs)))
	return res
}
