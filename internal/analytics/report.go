package analytics

import (
	"time"

	"github.com/georankers/visibility-agent/internal/models"
)

// Report is the display-ready view-model derived from one analytics record.
// It is what the HTTP report endpoint serves and what notifications render.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	ProductID   string    `json:"product_id"`
	BrandName   string    `json:"brand_name"`
	Domain      string    `json:"domain"`
	Model       string    `json:"model,omitempty"`
	Status      string    `json:"status"`
	Date        string    `json:"date,omitempty"`

	Overview        Overview                   `json:"overview"`
	Sentiment       models.DominantSentiment   `json:"sentiment"`
	Summary         string                     `json:"summary,omitempty"`
	Sources         []SourceRow                `json:"sources"`
	Competitors     models.CompetitorTables    `json:"competitors"`
	Recommendations []models.Recommendation    `json:"recommendations"`
	TopSources      []SourceRef                `json:"top_sources,omitempty"`

	InsightCards       []models.InsightCard       `json:"insight_cards,omitempty"`
	RecommendedActions []models.RecommendedAction `json:"recommended_actions,omitempty"`
}

// Overview carries the headline numbers with their derived tiers.
type Overview struct {
	VisibilityScore  float64 `json:"visibility_score"`
	VisibilityTier   Tier    `json:"visibility_tier"`
	WeightedMentions float64 `json:"weighted_mentions"`
	DistinctQueries  float64 `json:"distinct_queries"`

	BrandMentions    float64 `json:"brand_mentions"`
	TopBrand         string  `json:"top_brand"`
	TopBrandMentions float64 `json:"top_brand_mentions"`
	MentionRatio     float64 `json:"mention_ratio"`
	MentionTier      Tier    `json:"mention_tier"`
}

// SourceRow is one source category with the analyzed brand's standing in it.
type SourceRow struct {
	Category  string   `json:"category"`
	Mentions  float64  `json:"mentions"`
	Ratio     float64  `json:"ratio"`
	Tier      Tier     `json:"tier"`
	Insight   string   `json:"insight,omitempty"`
	PagesUsed []string `json:"pages_used,omitempty"`
}

// SourceRef is a cited source from the drilldowns, with its domain cleaned
// for display.
type SourceRef struct {
	Domain    string  `json:"domain"`
	URL       string  `json:"url,omitempty"`
	Frequency float64 `json:"frequency"`
}

// BuildReport derives the full view-model from a record and its normalized
// payload. Missing sections come out as empty slices and N/A tiers; the
// function never fails.
func BuildReport(rec *models.Record, payload *models.Payload) *Report {
	if payload == nil {
		payload = &models.Payload{}
	}

	report := &Report{
		GeneratedAt:        time.Now().UTC(),
		Sentiment:          payload.Insights.DominantSentiment,
		Summary:            payload.Insights.Summary,
		Competitors:        payload.Competitors,
		Recommendations:    payload.Recommendations,
		InsightCards:       payload.InsightCards,
		RecommendedActions: payload.RecommendedActions,
		Model:              payload.Brand.Model,
	}

	if rec != nil {
		report.ProductID = rec.ProductID
		report.Status = rec.Status
		report.Date = rec.Date
		report.BrandName = rec.ProductName
	}
	if payload.Brand.Name != "" {
		report.BrandName = payload.Brand.Name
	}
	website := payload.Brand.Website
	if website == "" {
		website = report.BrandName
	}
	report.Domain = CleanDomain(website)

	report.Overview = buildOverview(payload)
	report.Sources = buildSourceRows(payload, report.BrandName)
	report.TopSources = buildTopSources(payload)

	return report
}

func buildOverview(payload *models.Payload) Overview {
	visibility := payload.Insights.AIVisibility

	overview := Overview{
		VisibilityScore:  visibility.Score.Value,
		VisibilityTier:   TierFromScore(visibility.Score.Value),
		WeightedMentions: visibility.WeightedMentionsTotal.Value,
		DistinctQueries:  visibility.DistinctQueriesCount.Value,
		MentionTier:      TierNA,
	}

	brands := ExtractBrandNames(payload.ContentImpact.Header)
	if len(brands) == 0 {
		return overview
	}

	totals := SumMentionsPerBrand(payload.ContentImpact.Rows, brands)
	yourBrand := brands[len(brands)-1]
	top := TopBrand(brands, totals)

	overview.BrandMentions = totals[yourBrand]
	overview.TopBrand = top
	overview.TopBrandMentions = totals[top]
	overview.MentionRatio, overview.MentionTier = MentionRatioTier(totals[yourBrand], totals[top])

	return overview
}

func buildSourceRows(payload *models.Payload, brandName string) []SourceRow {
	impact := payload.ContentImpact
	brands := ExtractBrandNames(impact.Header)
	if len(brands) == 0 {
		return nil
	}

	// The analyzed brand is the last brand-column group; competitors precede
	// it in encounter order.
	yourIdx := len(brands) - 1
	yourCol := 1 + yourIdx*3 + 1

	rows := make([]SourceRow, 0, len(impact.Rows))
	for _, row := range impact.Rows {
		if len(row) == 0 {
			continue
		}
		category := cellString(row[0])

		var mentions float64
		if yourCol < len(row) {
			mentions = cellNumber(row[yourCol])
		}

		var max float64
		for i := range brands {
			col := 1 + i*3 + 1
			if col < len(row) {
				if v := cellNumber(row[col]); v > max {
					max = v
				}
			}
		}

		ratio, tier := MentionRatioTier(mentions, max)

		sourceRow := SourceRow{
			Category: category,
			Mentions: mentions,
			Ratio:    ratio,
			Tier:     tier,
		}

		// Pages cited for this row ride along as a trailing string-list
		// cell, with depth notes as the fallback.
		if pages := cellStrings(row[len(row)-1]); len(pages) > 0 {
			sourceRow.PagesUsed = pages
		}
		if note, ok := impact.DepthNotes[brandName][category]; ok {
			sourceRow.Insight = note.Insight
			if len(sourceRow.PagesUsed) == 0 {
				sourceRow.PagesUsed = note.PagesUsed
			}
		}

		rows = append(rows, sourceRow)
	}
	return rows
}

func buildTopSources(payload *models.Payload) []SourceRef {
	entries := payload.Drilldowns.SourcesList
	if len(entries) == 0 {
		return nil
	}
	refs := make([]SourceRef, 0, len(entries))
	for _, entry := range entries {
		url := CleanMarkdownURL(entry.URL)
		if url == "" {
			url = CleanMarkdownURL(entry.Source)
		}
		refs = append(refs, SourceRef{
			Domain:    CleanDomain(CleanMarkdownURL(entry.Source)),
			URL:       url,
			Frequency: entry.Frequency.Value,
		})
	}
	return refs
}
