package models

import "fmt"

// RecommendRequest is the body of a recommendation request. Exactly one of
// SeedID or Preferences/Context must be set: SeedID ranks by similarity to an
// existing product, free text ranks by similarity to the query itself.
type RecommendRequest struct {
	UserID             string `json:"user_id"`
	SeedID             string `json:"seed_id,omitempty"`
	NumRecommendations int    `json:"num_recommendations,omitempty"`
	Preferences        string `json:"preferences,omitempty"`
	Context            string `json:"context,omitempty"`
	// AIEnabled requests AI reranking for this call. It is only honored when
	// the server has an AI provider configured; nil means "use server default".
	AIEnabled *bool `json:"ai_enabled,omitempty"`
}

// Validate checks required fields and normalizes the recommendation count.
// maxLimit caps NumRecommendations; defaultLimit is applied when unset.
func (r *RecommendRequest) Validate(defaultLimit, maxLimit int) error {
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.SeedID == "" && r.Preferences == "" && r.Context == "" {
		return fmt.Errorf("seed_id or preferences is required")
	}
	if r.NumRecommendations <= 0 {
		r.NumRecommendations = defaultLimit
	}
	if r.NumRecommendations > maxLimit {
		r.NumRecommendations = maxLimit
	}
	return nil
}
