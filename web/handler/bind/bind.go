package bind

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/screwyprof/distributor/web/api"
	"github.com/screwyprof/distributor/web/status"
)

// Sentinel errors for request binding
var (
	ErrInvalidID      = errors.New("invalid id parameter")
	ErrInvalidPage    = errors.New("invalid page parameter")
	ErrInvalidPerPage = errors.New("invalid per_page parameter")

	// Specific id validation errors
	ErrIDNotNumeric  = errors.New("id must be numeric")
	ErrIDNotPositive = errors.New("id must be positive")

	// Specific page validation errors
	ErrPageNotNumeric  = errors.New("page must be numeric")
	ErrPageNotPositive = errors.New("page must be positive")

	// Specific per_page validation errors
	ErrPerPageNotNumeric  = errors.New("per_page must be numeric")
	ErrPerPageNotPositive = errors.New("per_page must be positive")
	ErrPerPageTooLarge    = errors.New("per_page must be between 1 and 100")
)

// GetDistributionsRequest binds HTTP request to DistributionsRequest with defaults
func GetDistributionsRequest(r *http.Request) (api.DistributionsRequest, error) {
	req := api.DistributionsRequest{
		Page:    status.DefaultPage,
		PerPage: status.DefaultPerPage,
	}

	query := r.URL.Query()

	if pageParam := query.Get("page"); pageParam != "" {
		page, err := parsePageNumber(pageParam)
		if err != nil {
			return req, fmt.Errorf("%w: %w", ErrInvalidPage, err)
		}
		req.Page = page
	}

	if perPageParam := query.Get("per_page"); perPageParam != "" {
		perPage, err := parsePerPageLimit(perPageParam)
		if err != nil {
			return req, fmt.Errorf("%w: %w", ErrInvalidPerPage, err)
		}
		req.PerPage = perPage
	}

	return req, nil
}

// GetDistributionID binds the {id} path segment
func GetDistributionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidID, ErrIDNotNumeric)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %w", ErrInvalidID, ErrIDNotPositive)
	}
	return id, nil
}

// parsePageNumber validates that the page parameter is a positive integer
func parsePageNumber(pageParam string) (uint64, error) {
	page, err := strconv.ParseUint(pageParam, 10, 64)
	if err != nil {
		return 0, ErrPageNotNumeric
	}

	if page == 0 {
		return 0, ErrPageNotPositive
	}

	return page, nil
}

// parsePerPageLimit validates that the per_page parameter is within acceptable limits
func parsePerPageLimit(perPageParam string) (uint64, error) {
	perPage, err := strconv.ParseUint(perPageParam, 10, 64)
	if err != nil {
		return 0, ErrPerPageNotNumeric
	}

	if perPage == 0 {
		return 0, ErrPerPageNotPositive
	}

	if perPage > status.MaxPerPage {
		return 0, ErrPerPageTooLarge
	}

	return perPage, nil
}

// GetDistributionsResponse binds domain distributions to API response format
func GetDistributionsResponse(distributions []status.Distribution) api.DistributionsResponse {
	data := make([]api.Distribution, len(distributions))
	for i, d := range distributions {
		data[i] = GetDistributionResponse(d)
	}

	return api.DistributionsResponse{
		Data: data,
	}
}

// GetDistributionResponse binds a single distribution to its API format
func GetDistributionResponse(d status.Distribution) api.Distribution {
	return api.Distribution{
		DistributionID: d.ID,
		CompletedAt:    d.CompletedAt.UTC().Format(time.RFC3339),
	}
}
