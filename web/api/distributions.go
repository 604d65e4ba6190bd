package api

// DistributionsRequest represents the query parameters for GET /distributions
type DistributionsRequest struct {
	Page    uint64 `query:"page"`     // Page number for pagination (default: 1)
	PerPage uint64 `query:"per_page"` // Number of items per page (default: 50, max: 100)
}

// Distribution represents a completed distribution in the API response
type Distribution struct {
	DistributionID int64  `json:"distributionId"`
	CompletedAt    string `json:"completedAt"`
}

// DistributionsResponse represents the API response format for GET /distributions
type DistributionsResponse struct {
	Data []Distribution `json:"data"`
}
