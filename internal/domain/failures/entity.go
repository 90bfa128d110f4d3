package failures

import "time"

// Phase enum: where in the request the provider call broke.
type Phase string

const (
	PhaseInvoke Phase = "invoke"
	PhaseParse  Phase = "parse"
	PhaseQuota  Phase = "quota"
)

// ProviderFailure is a persisted diagnostic for one failed provider call.
// It never carries audio bytes or the model's verdict.
type ProviderFailure struct {
	ID          int64     `json:"id"`
	RequestID   string    `json:"request_id"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model,omitempty"`
	Language    string    `json:"language,omitempty"`
	Phase       Phase     `json:"phase"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
