package analytics

import (
	"encoding/json"
	"testing"

	"github.com/georankers/visibility-agent/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() *models.Payload {
	return &models.Payload{
		Brand: models.BrandInfo{
			Name:    "Acme",
			Website: "https://www.Acme.com/products",
			Model:   "gpt-4o",
		},
		Insights: models.OverallInsights{
			AIVisibility: models.AIVisibility{
				Score:                 models.Metric{Value: 142},
				WeightedMentionsTotal: models.Metric{Value: 37},
				DistinctQueriesCount:  models.Metric{Value: 18},
			},
			DominantSentiment: models.DominantSentiment{Sentiment: "Positive"},
			Summary:           "Solid review coverage.",
		},
		ContentImpact: models.ContentImpact{
			Header: []string{"Source", "CompA", "M", "S", "CompB", "M", "S", "Acme", "M", "S"},
			Rows: [][]any{
				{"Review sites", "CompA", float64(14), "Positive", "CompB", float64(9), "Neutral", "Acme", float64(11), "Positive"},
				{"Forums", "CompA", float64(6), "Neutral", "CompB", float64(12), "Positive", "Acme", float64(8), "Neutral"},
			},
		},
		Recommendations: []models.Recommendation{
			{SuggestedAction: "Pitch reviews", OverallEffort: "Medium", Impact: "High"},
		},
		Drilldowns: models.Drilldowns{
			SourcesList: []models.SourceEntry{
				{Source: "[gearlab](https://www.gearlab.com/best)", Frequency: models.Metric{Value: 5}},
				{Source: "https://reddit.com/r/hiking", Frequency: models.Metric{Value: 3}},
			},
		},
	}
}

func TestBuildReport_Overview(t *testing.T) {
	rec := &models.Record{ProductID: "p1", ProductName: "fallback", Status: "completed", Date: "2026-08-29"}

	report := BuildReport(rec, samplePayload())
	require.NotNil(t, report)

	assert.Equal(t, "p1", report.ProductID)
	// Payload brand name wins over the record's product name.
	assert.Equal(t, "Acme", report.BrandName)
	assert.Equal(t, "acme.com", report.Domain)
	assert.Equal(t, "gpt-4o", report.Model)

	assert.Equal(t, float64(142), report.Overview.VisibilityScore)
	assert.Equal(t, TierMedium, report.Overview.VisibilityTier)

	// Acme: 11+8=19, CompA: 14+6=20, CompB: 9+12=21. Top brand is CompB.
	assert.Equal(t, float64(19), report.Overview.BrandMentions)
	assert.Equal(t, "CompB", report.Overview.TopBrand)
	assert.Equal(t, float64(21), report.Overview.TopBrandMentions)
	assert.InDelta(t, 19.0/21.0*100, report.Overview.MentionRatio, 0.001)
	assert.Equal(t, TierHigh, report.Overview.MentionTier)
}

func TestBuildReport_SourceRows(t *testing.T) {
	report := BuildReport(nil, samplePayload())

	require.Len(t, report.Sources, 2)

	review := report.Sources[0]
	assert.Equal(t, "Review sites", review.Category)
	assert.Equal(t, float64(11), review.Mentions)
	// Category leader in review sites is CompA with 14.
	assert.InDelta(t, 11.0/14.0*100, review.Ratio, 0.001)
	assert.Equal(t, TierHigh, review.Tier)

	forums := report.Sources[1]
	assert.Equal(t, float64(8), forums.Mentions)
	assert.InDelta(t, 8.0/12.0*100, forums.Ratio, 0.001)
	assert.Equal(t, TierMedium, forums.Tier)
}

func TestBuildReport_DepthNotes(t *testing.T) {
	payload := samplePayload()
	payload.ContentImpact.DepthNotes = map[string]map[string]models.DepthNote{
		"Acme": {
			"Forums": {Insight: "Thin forum presence", PagesUsed: []string{"acme.com/community"}},
		},
	}

	report := BuildReport(nil, payload)

	require.Len(t, report.Sources, 2)
	assert.Equal(t, "Thin forum presence", report.Sources[1].Insight)
	assert.Equal(t, []string{"acme.com/community"}, report.Sources[1].PagesUsed)
}

func TestBuildReport_TopSources(t *testing.T) {
	report := BuildReport(nil, samplePayload())

	require.Len(t, report.TopSources, 2)
	assert.Equal(t, "gearlab.com", report.TopSources[0].Domain)
	assert.Equal(t, "https://www.gearlab.com/best", report.TopSources[0].URL)
	assert.Equal(t, float64(5), report.TopSources[0].Frequency)
	assert.Equal(t, "reddit.com", report.TopSources[1].Domain)
}

func TestBuildReport_EmptyPayload(t *testing.T) {
	rec := &models.Record{ProductID: "p1", ProductName: "Acme", Status: "completed"}

	report := BuildReport(rec, &models.Payload{})
	require.NotNil(t, report)

	// Falls back to the record's product name when the payload has none.
	assert.Equal(t, "Acme", report.BrandName)
	assert.Equal(t, TierNA, report.Overview.VisibilityTier)
	assert.Equal(t, TierNA, report.Overview.MentionTier)
	assert.Empty(t, report.Sources)
	assert.Empty(t, report.TopSources)
}

func TestBuildReport_NilInputs(t *testing.T) {
	report := BuildReport(nil, nil)
	require.NotNil(t, report)
	assert.Equal(t, TierNA, report.Overview.VisibilityTier)
}

func TestBuildReport_EndToEndFromRawRecord(t *testing.T) {
	raw := `{
		"brand_name": "Acme",
		"website": "https://acme.com/",
		"overall_insights": {"ai_visibility": {"ai_visibility_score": {"Value": 300}}},
		"content_impact": {
			"header": ["Source", "CompA", "M", "S", "Acme", "M", "S"],
			"rows": [["Blogs", "CompA", 4, "Neutral", "Acme", 10, "Positive"]]
		}
	}`
	rec := &models.Record{ProductID: "p1", Status: "completed", Analytics: json.RawMessage(raw)}

	report := BuildReport(rec, NormalizeRecord(rec))

	assert.Equal(t, TierHigh, report.Overview.VisibilityTier)
	assert.Equal(t, "Acme", report.Overview.TopBrand)
	assert.InDelta(t, 100, report.Overview.MentionRatio, 0.001)
}
