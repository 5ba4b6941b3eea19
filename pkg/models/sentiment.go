package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SentimentRecord is one company's sentiment result for a refresh cycle.
// Missing numeric fields decode to zero.
type SentimentRecord struct {
	Ticker                 string  `json:"ticker"`
	SentimentScore         float64 `json:"sentiment_score"`
	ArticlesAnalyzed       int     `json:"articles_analyzed"`
	TotalArticlesAvailable int     `json:"total_articles_available"`
}

// SentimentDocument is the batch served at /api/sentiment.
type SentimentDocument struct {
	AnalysisTimestamp      string            `json:"analysis_timestamp,omitempty"`
	EarningsWeek           string            `json:"earnings_week,omitempty"`
	TotalCompaniesAnalyzed int               `json:"total_companies_analyzed"`
	Results                []SentimentRecord `json:"sentiment_results"`
}

// Rejection describes a single input record that was dropped.
type Rejection struct {
	Index  int    `json:"index"`
	Ticker string `json:"ticker,omitempty"`
	Reason string `json:"reason"`
}

// ErrMalformedDocument is returned when the document itself has the wrong
// shape. Per-record problems never produce it.
var ErrMalformedDocument = errors.New("malformed sentiment document")

// DecodeSentimentDocument decodes a sentiment document, decoding each record
// on its own so a single bad record is rejected instead of failing the batch.
func DecodeSentimentDocument(data []byte) (*SentimentDocument, []Rejection, error) {
	var raw struct {
		AnalysisTimestamp      string             `json:"analysis_timestamp"`
		AnalysisDate           string             `json:"analysis_date"`
		EarningsWeek           string             `json:"earnings_week"`
		TotalCompaniesAnalyzed int                `json:"total_companies_analyzed"`
		Results                *[]json.RawMessage `json:"sentiment_results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if raw.Results == nil {
		return nil, nil, fmt.Errorf("%w: missing sentiment_results", ErrMalformedDocument)
	}

	doc := &SentimentDocument{
		AnalysisTimestamp:      raw.AnalysisTimestamp,
		EarningsWeek:           raw.EarningsWeek,
		TotalCompaniesAnalyzed: raw.TotalCompaniesAnalyzed,
		Results:                make([]SentimentRecord, 0, len(*raw.Results)),
	}
	if doc.AnalysisTimestamp == "" {
		doc.AnalysisTimestamp = raw.AnalysisDate
	}

	var rejected []Rejection
	for i, msg := range *raw.Results {
		var rec SentimentRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			rejected = append(rejected, Rejection{Index: i, Reason: "undecodable record: " + err.Error()})
			continue
		}
		doc.Results = append(doc.Results, rec)
	}
	return doc, rejected, nil
}
