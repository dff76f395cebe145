// Package classifier defines the canonical result of one image analysis
// and the client interface the rest of the pipeline consumes.
package classifier

import (
	"context"
	"time"

	"github.com/example/ai-detect/internal/admission"
)

// RiskLevel buckets classifier confidence into three tiers.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Static descriptor of the remote model. Not server-sourced.
const ModelName = "DeepfakeViT (vit_tiny_patch16_224)"

var techniques = []string{
	"Vision Transformer patch embedding",
	"Facial artifact analysis",
	"Frequency domain inspection",
	"Compression fingerprint analysis",
}

// Techniques returns the fixed list of technique labels attached to
// every result.
func Techniques() []string {
	out := make([]string, len(techniques))
	copy(out, techniques)
	return out
}

// RiskFromConfidence derives the risk tier. Thresholds are strict:
// exactly 0.85 or 0.6 falls to the lower tier.
func RiskFromConfidence(c float64) RiskLevel {
	switch {
	case c > 0.85:
		return RiskLow
	case c > 0.6:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Probabilities is the per-class probability pair. Real + Fake always
// sums to 1; the client derives missing halves itself.
type Probabilities struct {
	Real float64 `json:"real"`
	Fake float64 `json:"fake"`
}

// Result is the canonical outcome of one successful analysis, whether
// it came from the single or the batch flow. Immutable once created.
// Preview is display-only and never serialized.
type Result struct {
	IsReal         bool          `json:"isReal"`
	Confidence     float64       `json:"confidence"`
	Probabilities  Probabilities `json:"probabilities"`
	RiskLevel      RiskLevel     `json:"riskLevel"`
	ModelName      string        `json:"modelName"`
	Techniques     []string      `json:"techniques"`
	ProcessingTime float64       `json:"processingTime"`
	Timestamp      time.Time     `json:"timestamp"`
	FileName       string        `json:"fileName"`
	Preview        string        `json:"-"`
}

// Health reports the remote service's self-description.
type Health struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
}

// Client exposes the subset of remote functionality used by the
// analysis flows.
type Client interface {
	Detect(ctx context.Context, item admission.Item) (*Result, error)
}
