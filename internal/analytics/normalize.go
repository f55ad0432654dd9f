package analytics

import (
	"encoding/json"

	"github.com/georankers/visibility-agent/internal/models"
	"github.com/sirupsen/logrus"
)

// rawPayload is the superset of every payload shape the backend has shipped:
// the tables shape (brand fields, overall insights, competitor and
// content-impact tables, recommendations) and the insight-cards shape
// (cards, actions, drilldowns). Fields missing from a given version simply
// stay zero.
type rawPayload struct {
	BrandName string `json:"brand_name"`
	Website   string `json:"website"`
	Model     string `json:"model"`

	Brand *models.BrandInfo `json:"brand"`

	Insights        models.OverallInsights  `json:"overall_insights"`
	Competitors     models.CompetitorTables `json:"competitor_analysis"`
	ContentImpact   models.ContentImpact    `json:"content_impact"`
	Recommendations []models.Recommendation `json:"recommendations"`

	InsightCards       []models.InsightCard       `json:"insight_cards"`
	RecommendedActions []models.RecommendedAction `json:"recommended_actions"`
	Drilldowns         models.Drilldowns          `json:"drilldowns"`

	ReasonMissing string `json:"reason_missing"`
}

// Normalize adapts a raw analytics payload into the canonical schema. It is
// the single place payload-version differences are absorbed; consumers never
// see the backend's ad hoc shapes. A nil or undecodable payload yields an
// empty Payload, never an error.
func Normalize(raw json.RawMessage) *models.Payload {
	payload := &models.Payload{}
	if len(raw) == 0 {
		return payload
	}

	var parsed rawPayload
	if err := json.Unmarshal(raw, &parsed); err != nil {
		logrus.Debugf("Analytics payload did not decode, using empty payload: %v", err)
		return payload
	}

	payload.Brand = models.BrandInfo{
		Name:    parsed.BrandName,
		Website: parsed.Website,
		Model:   parsed.Model,
	}
	if parsed.Brand != nil {
		if parsed.Brand.Name != "" {
			payload.Brand.Name = parsed.Brand.Name
		}
		if parsed.Brand.Website != "" {
			payload.Brand.Website = parsed.Brand.Website
		}
		if parsed.Brand.Model != "" {
			payload.Brand.Model = parsed.Brand.Model
		}
	}

	payload.Insights = parsed.Insights
	payload.Competitors = parsed.Competitors
	payload.ContentImpact = parsed.ContentImpact
	payload.Recommendations = parsed.Recommendations
	payload.InsightCards = parsed.InsightCards
	payload.RecommendedActions = parsed.RecommendedActions
	payload.Drilldowns = parsed.Drilldowns
	payload.ReasonMissing = parsed.ReasonMissing

	return payload
}

// NormalizeRecord decodes a record's payload. Nil-safe.
func NormalizeRecord(rec *models.Record) *models.Payload {
	if rec == nil {
		return &models.Payload{}
	}
	return Normalize(rec.Analytics)
}
