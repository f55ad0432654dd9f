package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/georankers/visibility-agent/internal/analytics"
	"github.com/georankers/visibility-agent/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service handles sending analysis reports via various channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements Interface
var _ Interface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendReport sends a derived analysis report via configured channels
func (s *Service) SendReport(report *analytics.Report) error {
	var errors []string

	// Send to Teams if configured
	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(report); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent report to Teams")
		}
	}

	// Send via email if configured
	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(report *analytics.Report) error {
	message := s.buildTeamsMessage(report)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(report *analytics.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("AI Visibility Report - %s", report.BrandName),
		Text: fmt.Sprintf("Fresh analysis for %s: visibility score %.0f (%s)",
			report.Domain, report.Overview.VisibilityScore, report.Overview.VisibilityTier),
	}

	facts := []TeamsFact{
		{Name: "Brand", Value: report.BrandName},
		{Name: "Visibility Score", Value: fmt.Sprintf("%.0f (%s)", report.Overview.VisibilityScore, report.Overview.VisibilityTier)},
		{Name: "Mention Ratio", Value: fmt.Sprintf("%.1f%% of %s (%s)", report.Overview.MentionRatio, report.Overview.TopBrand, report.Overview.MentionTier)},
		{Name: "Sentiment", Value: report.Sentiment.Sentiment},
		{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	// Add top recommendations section
	if len(report.Recommendations) > 0 {
		var items []string
		limit := 5
		if len(report.Recommendations) < limit {
			limit = len(report.Recommendations)
		}

		for i := 0; i < limit; i++ {
			rec := report.Recommendations[i]
			items = append(items, fmt.Sprintf("**%s** (effort: %s, impact: %s)",
				rec.SuggestedAction, rec.OverallEffort, rec.Impact))
		}

		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Recommended Actions",
			ActivityText:  strings.Join(items, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(report *analytics.Report) error {
	subject := fmt.Sprintf("AI Visibility Report - %s (score %.0f, %s)",
		report.BrandName, report.Overview.VisibilityScore, report.Overview.VisibilityTier)

	htmlBody, err := s.buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	textBody := s.buildEmailText(report)

	// Create message
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	// Send email
	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) buildEmailHTML(report *analytics.Report) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>AI Visibility Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .row { border-left: 4px solid #0078d4; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .row-title { font-weight: bold; margin-bottom: 5px; }
        .row-meta { color: #666; font-size: 0.9em; }
        .high { border-left-color: #107c10; }
        .low { border-left-color: #d13438; }
        .medium { border-left-color: #605e5c; }
    </style>
</head>
<body>
    <div class="header">
        <h1>AI Visibility Report - {{.BrandName}}</h1>
        <p>Generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Domain:</strong> {{.Domain}}</p>
        <p><strong>Visibility Score:</strong> {{printf "%.0f" .Overview.VisibilityScore}} ({{.Overview.VisibilityTier}})</p>
        <p><strong>Brand Mentions:</strong> {{printf "%.0f" .Overview.BrandMentions}} ({{printf "%.1f" .Overview.MentionRatio}}% of {{.Overview.TopBrand}}, {{.Overview.MentionTier}})</p>
        {{if .Sentiment.Sentiment}}<p><strong>Sentiment:</strong> {{.Sentiment.Sentiment}}</p>{{end}}
        {{if .Summary}}<p>{{.Summary | truncate 400}}</p>{{end}}
    </div>

    {{if .Sources}}
    <h2>Source Performance</h2>
    {{range $index, $source := .Sources}}
        {{if lt $index 10}}
        <div class="row {{lower (printf "%s" $source.Tier)}}">
            <div class="row-title">{{$source.Category}}</div>
            <div class="row-meta">
                Mentions: {{printf "%.0f" $source.Mentions}} | Ratio: {{printf "%.1f" $source.Ratio}}% | Tier: {{$source.Tier}}
            </div>
            {{if $source.Insight}}<p>{{$source.Insight | truncate 200}}</p>{{end}}
        </div>
        {{end}}
    {{end}}
    {{end}}

    {{if .Recommendations}}
    <h2>Recommended Actions</h2>
    {{range $index, $rec := .Recommendations}}
        {{if lt $index 5}}
        <div class="row">
            <div class="row-title">{{$rec.SuggestedAction}}</div>
            <div class="row-meta">Effort: {{$rec.OverallEffort}} | Impact: {{$rec.Impact}}</div>
            {{if $rec.OverallInsight}}<p>{{$rec.OverallInsight | truncate 200}}</p>{{end}}
        </div>
        {{end}}
    {{end}}
    {{end}}

    <hr>
    <p><small>This report was generated automatically by the visibility agent.</small></p>
</body>
</html>
`

	// Create template with custom functions
	t := template.New("email").Funcs(template.FuncMap{
		"lower": strings.ToLower,
		"truncate": func(length int, s string) string {
			if len(s) <= length {
				return s
			}
			return s[:length] + "..."
		},
	})

	t, err := t.Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(report *analytics.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("AI Visibility Report - %s\n", report.BrandName))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Domain: %s\n", report.Domain))
	text.WriteString(fmt.Sprintf("Visibility Score: %.0f (%s)\n", report.Overview.VisibilityScore, report.Overview.VisibilityTier))
	text.WriteString(fmt.Sprintf("Brand Mentions: %.0f (%.1f%% of %s, %s)\n",
		report.Overview.BrandMentions, report.Overview.MentionRatio, report.Overview.TopBrand, report.Overview.MentionTier))
	if report.Sentiment.Sentiment != "" {
		text.WriteString(fmt.Sprintf("Sentiment: %s\n", report.Sentiment.Sentiment))
	}

	if len(report.Sources) > 0 {
		text.WriteString("\nSOURCE PERFORMANCE\n")
		text.WriteString("==================\n")
		for i, source := range report.Sources {
			if i >= 10 {
				break
			}
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, source.Category))
			text.WriteString(fmt.Sprintf("   Mentions: %.0f | Ratio: %.1f%% | Tier: %s\n",
				source.Mentions, source.Ratio, source.Tier))
		}
	}

	if len(report.Recommendations) > 0 {
		text.WriteString("\nRECOMMENDED ACTIONS\n")
		text.WriteString("===================\n")
		for i, rec := range report.Recommendations {
			if i >= 5 {
				break
			}
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, rec.SuggestedAction))
			text.WriteString(fmt.Sprintf("   Effort: %s | Impact: %s\n", rec.OverallEffort, rec.Impact))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by the visibility agent.\n")

	return text.String()
}
