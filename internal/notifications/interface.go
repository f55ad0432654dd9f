package notifications

import "github.com/georankers/visibility-agent/internal/analytics"

// Interface defines the contract for notification delivery
type Interface interface {
	SendReport(report *analytics.Report) error
}
