// Package clips holds the candidate clip model and the ordered collection the
// preview screen selects from.
package clips

import "fmt"

// Clip is one candidate segment of the source media.
type Clip struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Duration     int     `json:"duration"`
	ThumbnailURL string  `json:"thumbnail"`
	StartTime    int     `json:"start_time"`
	EndTime      int     `json:"end_time"`
	Confidence   float64 `json:"confidence"`
	Selected     bool    `json:"selected"`
}

// Tier is the display bucket for a confidence score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// TierOf classifies a confidence score: >= 0.90 high, >= 0.80 medium, else low.
func TierOf(confidence float64) Tier {
	switch {
	case confidence >= 0.9:
		return TierHigh
	case confidence >= 0.8:
		return TierMedium
	default:
		return TierLow
	}
}

// Tier returns the clip's confidence tier.
func (c Clip) Tier() Tier {
	return TierOf(c.Confidence)
}

// Validate checks the invariants an analysis result must satisfy.
func (c Clip) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("clip id is required")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("clip %s: duration must be positive", c.ID)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("clip %s: confidence %.2f out of range", c.ID, c.Confidence)
	}
	if c.EndTime-c.StartTime != c.Duration {
		return fmt.Errorf("clip %s: end_time - start_time must equal duration", c.ID)
	}
	return nil
}

// FormatTime renders seconds as m:ss, e.g. 93 -> "1:33".
func FormatTime(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
