package models

// Recommendation is a single recommended product with its similarity score.
type Recommendation struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
}

// RecommendResponse is the response for a recommendation request.
// Recommendations are ordered by non-increasing score (or by the AI-adopted
// order when AIUsed is true).
type RecommendResponse struct {
	UserID          string           `json:"user_id"`
	RequestID       string           `json:"request_id,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
	// Explanation is a short AI-generated note about why the top products were
	// chosen. Only present when AI augmentation ran and explanation succeeded.
	Explanation string `json:"explanation,omitempty"`
	AIUsed      bool   `json:"ai_used"`
	QueryTime   int64  `json:"query_time_ms"`
}
