package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/screwyprof/distributor/pkg/httpkit"
	"github.com/screwyprof/distributor/web/api"
	"github.com/screwyprof/distributor/web/handler/bind"
	"github.com/screwyprof/distributor/web/status"
)

const (
	GetDistributionsRoute = http.MethodGet + " " + "/distributions"
	GetDistributionRoute  = http.MethodGet + " " + "/distributions/{id}"
)

// Sentinel errors
var (
	ErrQueryFailed = errors.New("failed to query distributions")
)

type LedgerGetDistributions struct {
	finder status.DistributionsFinder
}

func NewLedgerGetDistributions(finder status.DistributionsFinder) *LedgerGetDistributions {
	return &LedgerGetDistributions{
		finder: finder,
	}
}

func (h *LedgerGetDistributions) AddRoutes(m *http.ServeMux) {
	m.Handle(GetDistributionsRoute, httpkit.HandlerFunc(h.GetDistributions))
	m.Handle(GetDistributionRoute, httpkit.HandlerFunc(h.GetDistribution))
}

func (h *LedgerGetDistributions) GetDistributions(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	req, err := bind.GetDistributionsRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	criteria, err := status.NewDistributionsCriteria(req.Page, req.PerPage)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	page, err := h.finder.FindDistributions(r.Context(), criteria)
	if err != nil {
		return httpkit.JsonError(api.InternalServerError(fmt.Errorf("%w: %w", ErrQueryFailed, err)))
	}

	if linkHeader := buildPaginationLinks(page, r.URL); linkHeader != "" {
		w.Header().Set("Link", linkHeader)
	}

	return httpkit.JSON(bind.GetDistributionsResponse(page.Distributions))
}

func (h *LedgerGetDistributions) GetDistribution(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	id, err := bind.GetDistributionID(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	d, err := h.finder.FindDistribution(r.Context(), id)
	if errors.Is(err, status.ErrNotFound) {
		return httpkit.JsonError(api.NotFound(fmt.Errorf("%w: %d", status.ErrNotFound, id)))
	}
	if err != nil {
		return httpkit.JsonError(api.InternalServerError(fmt.Errorf("%w: %w", ErrQueryFailed, err)))
	}

	return httpkit.JSON(bind.GetDistributionResponse(d))
}

// buildPaginationLinks creates GitHub-style Link header for pagination navigation
func buildPaginationLinks(page *status.DistributionsPage, baseURL *url.URL) string {
	var links []string

	u := *baseURL
	query := u.Query()

	if page.HasPrevious() {
		query.Set("page", fmt.Sprintf("%d", page.Number-1))
		query.Set("per_page", fmt.Sprintf("%d", page.Size))
		u.RawQuery = query.Encode()
		links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, u.String()))
	}

	// Only when the LIMIT n+1 probe found another row; no count(*) for rel="last"
	if page.HasNext() {
		query.Set("page", fmt.Sprintf("%d", page.Number+1))
		query.Set("per_page", fmt.Sprintf("%d", page.Size))
		u.RawQuery = query.Encode()
		links = append(links, fmt.Sprintf(`<%s>; rel="next"`, u.String()))
	}

	return strings.Join(links, ", ")
}
