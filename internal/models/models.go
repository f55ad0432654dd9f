package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Analysis status values reported by the backend. A record's status is
// monotonic: once completed or failed it never reverts to an earlier state.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// IsTerminal reports whether a record status ends the polling loop.
func IsTerminal(status string) bool {
	s := strings.ToLower(status)
	return s == StatusCompleted || s == StatusFailed
}

// Record represents one backend-generated analysis run for a product on a
// given date. The raw analytics payload is kept opaque here; the analytics
// package normalizes it into a canonical Payload.
type Record struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Date        string          `json:"date"`
	Status      string          `json:"status"`
	Analytics   json.RawMessage `json:"analytics"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// AnalyticsResponse is the envelope returned by the product analytics
// endpoint. Records are ordered most recent first.
type AnalyticsResponse struct {
	Analytics []Record `json:"analytics"`
	Count     int      `json:"count"`
	Limit     int      `json:"limit"`
	ProductID string   `json:"product_id"`
}

// Product is created by the create-with-keywords call and is immutable from
// the client's perspective; re-analysis goes through the regenerate flow.
type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Website        string    `json:"website"`
	BusinessDomain string    `json:"business_domain"`
	ApplicationID  string    `json:"application_id"`
	SearchKeywords []Keyword `json:"search_keywords"`
}

// Keyword is one tracked search keyword, optionally carrying its backend id.
type Keyword struct {
	ID      string `json:"id,omitempty"`
	Keyword string `json:"keyword"`
}

// Metric is a numeric value the backend wraps inconsistently across payload
// versions: bare numbers, {"Value": n}, {"value": n} and numeric strings all
// appear. UnmarshalJSON accepts every observed encoding and defaults to zero
// rather than failing the surrounding record.
type Metric struct {
	Value float64
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		m.Value = 0
		return nil
	}
	if data[0] == '{' {
		var wrapped struct {
			V1 *float64 `json:"Value"`
			V2 *float64 `json:"value"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			m.Value = 0
			return nil
		}
		switch {
		case wrapped.V1 != nil:
			m.Value = *wrapped.V1
		case wrapped.V2 != nil:
			m.Value = *wrapped.V2
		}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				m.Value = f
			}
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		m.Value = f
	}
	return nil
}

func (m Metric) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Value)
}

// Table is a header-plus-rows structure shared by the competitor and
// content-impact sections. Row cells are heterogeneous: strings, numbers and
// string lists all occur.
type Table struct {
	Header []string `json:"header"`
	Rows   [][]any  `json:"rows"`
}

// Payload is the canonical analytics schema every backend payload version is
// normalized into.
type Payload struct {
	Brand           BrandInfo        `json:"brand"`
	Insights        OverallInsights  `json:"overall_insights"`
	Competitors     CompetitorTables `json:"competitor_analysis"`
	ContentImpact   ContentImpact    `json:"content_impact"`
	Recommendations []Recommendation `json:"recommendations"`

	InsightCards       []InsightCard       `json:"insight_cards,omitempty"`
	RecommendedActions []RecommendedAction `json:"recommended_actions,omitempty"`
	Drilldowns         Drilldowns          `json:"drilldowns,omitempty"`

	ReasonMissing string `json:"reason_missing,omitempty"`
}

// BrandInfo identifies the analyzed brand and the model that produced the run.
type BrandInfo struct {
	Name    string `json:"brand_name"`
	Website string `json:"website"`
	Model   string `json:"model"`
}

// OverallInsights carries the headline visibility, mention and sentiment
// metrics of a run.
type OverallInsights struct {
	AIVisibility      AIVisibility      `json:"ai_visibility"`
	BrandMentions     BrandMentions     `json:"brand_mentions"`
	DominantSentiment DominantSentiment `json:"dominant_sentiment"`
	Summary           string            `json:"summary"`
}

type AIVisibility struct {
	Tier                  string `json:"tier"`
	Score                 Metric `json:"ai_visibility_score"`
	GeoScore              Metric `json:"geo_score"`
	WeightedMentionsTotal Metric `json:"weighted_mentions_total"`
	DistinctQueriesCount  Metric `json:"distinct_queries_count"`
}

type BrandMentions struct {
	Level               string `json:"level"`
	MentionsCount       Metric `json:"mentions_count"`
	TotalSourcesChecked Metric `json:"total_sources_checked"`
}

type DominantSentiment struct {
	Sentiment string `json:"sentiment"`
	Statement string `json:"statement"`
}

// CompetitorTables holds the two competitor sections. In both, the analyzed
// brand appears as one row alongside its competitors.
type CompetitorTables struct {
	VisibilityTable Table `json:"competitor_visibility_table"`
	SentimentTable  Table `json:"competitor_sentiment_table"`
}

// ContentImpact is the source/content-impact table: one row per source
// category, three columns (name/mentions/score) per brand after a leading
// label column. The analyzed brand is always the last brand-column group.
type ContentImpact struct {
	Header     []string                        `json:"header"`
	Rows       [][]any                         `json:"rows"`
	DepthNotes map[string]map[string]DepthNote `json:"depth_notes,omitempty"`
}

// DepthNote is per-brand, per-source supporting detail for a content-impact
// row.
type DepthNote struct {
	Insight   string   `json:"insight"`
	PagesUsed []string `json:"pages_used"`
}

// Recommendation is one actionable item from the recommendations section.
type Recommendation struct {
	OverallInsight  string `json:"overall_insight"`
	SuggestedAction string `json:"suggested_action"`
	OverallEffort   string `json:"overall_effort"`
	Impact          string `json:"impact"`
}

// InsightCard is a headline card from the newer payload shape.
type InsightCard struct {
	Title       string `json:"title"`
	Value       string `json:"value"`
	Trend       string `json:"trend,omitempty"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// RecommendedAction is the newer shape's counterpart of Recommendation.
type RecommendedAction struct {
	Category string `json:"category"`
	Priority string `json:"priority,omitempty"`
	Action   string `json:"action,omitempty"`
	Impact   string `json:"impact,omitempty"`
	Effort   string `json:"effort,omitempty"`
}

// Drilldowns groups the exploratory tables of the newer payload shape.
type Drilldowns struct {
	QueryExplorer    []QueryResult     `json:"query_explorer,omitempty"`
	SourcesList      []SourceEntry     `json:"sources_list,omitempty"`
	AttributesMatrix []AttributeResult `json:"attributes_matrix,omitempty"`
}

type QueryResult struct {
	Query            string `json:"query"`
	PerformanceScore Metric `json:"performance_score"`
	SearchVolume     string `json:"search_volume,omitempty"`
	Competition      string `json:"competition,omitempty"`
}

type SourceEntry struct {
	Source         string `json:"source"`
	Frequency      Metric `json:"frequency"`
	RelevanceScore Metric `json:"relevance_score"`
	URL            string `json:"url,omitempty"`
}

type AttributeResult struct {
	Attribute  string `json:"attribute"`
	Value      string `json:"value"`
	Frequency  Metric `json:"frequency"`
	Importance string `json:"importance,omitempty"`
}

// ChatMessage is one entry in a product's chat history.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ChatbotResponse is the answer to a chat question, with follow-up prompts.
type ChatbotResponse struct {
	Answer             string   `json:"answer"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
	Timestamp          string   `json:"timestamp,omitempty"`
}
