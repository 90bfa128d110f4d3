package detection

import "context"

// Profile is the provider's thinking/latency knob. It is passed through
// untouched; each adapter maps it to its own parameter.
type Profile string

const (
	ProfileFast    Profile = "fast"
	ProfilePrecise Profile = "precise"
)

func (p Profile) Valid() bool {
	return p == ProfileFast || p == ProfilePrecise
}

// Provider port (external multimodal model)
type Provider interface {
	Analyze(ctx context.Context, req AnalysisRequest, profile Profile) (Verdict, error)
	Name() string
	Model() string
}
