package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/georankers/visibility-agent/internal/analytics"
	"github.com/georankers/visibility-agent/internal/models"
	"github.com/georankers/visibility-agent/internal/storage"
)

// samplePayload mirrors a completed backend analysis for a small brand.
const samplePayload = `{
  "brand_name": "Acme Outdoor",
  "website": "https://www.acmeoutdoor.com/",
  "model": "gpt-4o",
  "overall_insights": {
    "ai_visibility": {
      "tier": "Medium",
      "ai_visibility_score": {"Value": 142},
      "geo_score": {"Value": 61},
      "weighted_mentions_total": {"Value": 37},
      "distinct_queries_count": {"Value": 18}
    },
    "brand_mentions": {"level": "Moderate", "mentions_count": {"Value": 37}, "total_sources_checked": {"Value": 120}},
    "dominant_sentiment": {"sentiment": "Positive", "statement": "Reviews praise durability and value."},
    "summary": "Acme Outdoor shows solid review-site coverage but trails TrailCo in forums."
  },
  "content_impact": {
    "header": ["Source Category", "TrailCo", "Mentions", "Sentiment", "PeakGear", "Mentions", "Sentiment", "Acme Outdoor", "Mentions", "Sentiment", "Depth", "Pages"],
    "rows": [
      ["Review sites", "TrailCo", 14, "Positive", "PeakGear", 9, "Neutral", "Acme Outdoor", 11, "Positive", "Deep", ["acmeoutdoor.com/reviews"]],
      ["Forums", "TrailCo", 6, "Neutral", "PeakGear", 12, "Positive", "Acme Outdoor", 8, "Neutral", "Shallow", []]
    ]
  },
  "recommendations": [
    {"overall_insight": "Review coverage trails TrailCo", "suggested_action": "Pitch comparison reviews to top outdoor blogs", "overall_effort": "Medium", "impact": "High"}
  ],
  "drilldowns": {
    "sources_list": [
      {"source": "[Best hiking packs 2026](https://www.gearlab.com/best-packs)", "frequency": {"Value": 5}},
      {"source": "https://reddit.com/r/hiking/comments/abc", "frequency": {"Value": 3}}
    ]
  }
}`

func main() {
	fmt.Println("🤖 GeoRankers Visibility Agent - Test Report Generator")
	fmt.Println("=====================================================")

	rec := &models.Record{
		ID:          "test_record_1",
		ProductID:   "test_product_1",
		ProductName: "Acme Outdoor",
		Date:        "2026-08-29",
		Status:      "completed",
		Analytics:   json.RawMessage(samplePayload),
		UpdatedAt:   "2026-08-29T09:00:00Z",
	}

	payload := analytics.NormalizeRecord(rec)
	report := analytics.BuildReport(rec, payload)

	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("📊 AI VISIBILITY REPORT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("🏷️  Brand: %s (%s)\n", report.BrandName, report.Domain)
	fmt.Printf("🕒 Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("📈 Visibility Score: %.0f (%s)\n", report.Overview.VisibilityScore, report.Overview.VisibilityTier)
	fmt.Printf("🔎 Distinct Queries: %.0f | Weighted Mentions: %.0f\n",
		report.Overview.DistinctQueries, report.Overview.WeightedMentions)
	fmt.Printf("🥇 Top Brand: %s (%.0f mentions) | Your share: %.1f%% (%s)\n",
		report.Overview.TopBrand, report.Overview.TopBrandMentions,
		report.Overview.MentionRatio, report.Overview.MentionTier)
	fmt.Printf("💭 Sentiment: %s\n", report.Sentiment.Sentiment)

	fmt.Println("\n📍 Source Categories:")
	for _, row := range report.Sources {
		fmt.Printf("   • %-15s %.0f mentions, %.1f%% of category leader (%s)\n",
			row.Category+":", row.Mentions, row.Ratio, row.Tier)
	}

	fmt.Println("\n📝 Recommended Actions:")
	for i, item := range report.Recommendations {
		fmt.Printf("   %d. %s (effort: %s, impact: %s)\n", i+1, item.SuggestedAction, item.OverallEffort, item.Impact)
	}

	fmt.Println("\n🔗 Top Sources:")
	for _, src := range report.TopSources {
		fmt.Printf("   • %-20s %.0f citations\n", src.Domain, src.Frequency)
	}

	// Save to the local archive so the output matches a real agent run.
	archive, err := storage.NewLocalArchive("test_output")
	if err != nil {
		fmt.Printf("❌ Error creating archive: %v\n", err)
		os.Exit(1)
	}
	data, _ := json.MarshalIndent(report, "", "  ")
	filename := fmt.Sprintf("visibility_report_%s.json", report.GeneratedAt.Format("2006-01-02_15-04-05"))
	if err := archive.Store(filename, data); err != nil {
		fmt.Printf("❌ Error saving report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n💾 Report saved to: test_output/%s\n", filename)

	fmt.Println("\n✅ Test report generation completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Check the 'test_output' directory for the saved JSON report")
	fmt.Println("   • Run 'go test ./internal/analytics -v' for the derivation tests")
	fmt.Println("   • Configure ACCOUNT_EMAIL/ACCOUNT_PASSWORD and run 'go run cmd/agent/main.go'")
}
