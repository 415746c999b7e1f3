package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/terra-clan/build-directory/internal/metrics"
	"github.com/terra-clan/build-directory/internal/models"
	"github.com/terra-clan/build-directory/internal/query"
)

// DefaultPageSize is the number of professionals per page when none is configured
const DefaultPageSize = 12

// DefaultMaxResultWindow matches the index.max_result_window default; from+size
// beyond it is rejected by Elasticsearch
const DefaultMaxResultWindow = 10000

// ESConfig configures the Elasticsearch listing backend
type ESConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	PageSize  int
	// MaxResultWindow is the index's max_result_window
	MaxResultWindow int
}

// ESFetcher reads listings from an Elasticsearch index of professionals
type ESFetcher struct {
	es       *elasticsearch.Client
	index    string
	pageSize int
	maxPages int
	log      *zap.Logger
}

// NewESFetcher creates an Elasticsearch client from cfg
func NewESFetcher(cfg ESConfig, log *zap.Logger) (*ESFetcher, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return NewESFetcherFromClient(es, cfg, log), nil
}

// NewESFetcherFromClient wraps an existing client; the connection fields of
// cfg are ignored
func NewESFetcherFromClient(es *elasticsearch.Client, cfg ESConfig, log *zap.Logger) *ESFetcher {
	if log == nil {
		log = zap.NewNop()
	}
	index := cfg.Index
	if index == "" {
		index = "professionals"
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	window := cfg.MaxResultWindow
	if window <= 0 {
		window = DefaultMaxResultWindow
	}
	return &ESFetcher{
		es:       es,
		index:    index,
		pageSize: pageSize,
		maxPages: max(1, window/pageSize),
		log:      log.Named("listing.elasticsearch"),
	}
}

// Name returns the service name
func (f *ESFetcher) Name() string {
	return "elasticsearch"
}

// HealthCheck pings the cluster
func (f *ESFetcher) HealthCheck(ctx context.Context) error {
	res, err := f.es.Ping(f.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.Professional `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FetchListings runs one search request for filters. Only the pages inside
// the result window are reachable, so TotalPages never exceeds it. A page
// past the window is answered by a count-only search with no items, which
// lets the caller clamp to TotalPages.
func (f *ESFetcher) FetchListings(ctx context.Context, filters models.FilterState) (*models.ResultPage, error) {
	page := filters.Page
	if page < 1 {
		page = 1
	}

	body, err := json.Marshal(BuildSearchBody(filters))
	if err != nil {
		return nil, &FetchFailedError{Filters: filters, Err: err}
	}

	from, size := 0, 0
	if page <= f.maxPages {
		from = (page - 1) * f.pageSize
		size = f.pageSize
	}
	req := esapi.SearchRequest{
		Index:          []string{f.index},
		Body:           bytes.NewReader(body),
		From:           &from,
		Size:           &size,
		TrackTotalHits: true,
	}

	start := time.Now()
	res, err := req.Do(ctx, f.es)
	metrics.ListingFetchDuration.WithLabelValues("elasticsearch").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, f.fail(filters, 0, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, f.fail(filters, res.StatusCode, fmt.Errorf("search error: %s", strings.TrimSpace(string(raw))))
	}

	var decoded esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, f.fail(filters, res.StatusCode, fmt.Errorf("failed to decode search response: %w", err))
	}

	result := &models.ResultPage{
		Items:      make([]models.Professional, 0, len(decoded.Hits.Hits)),
		TotalCount: decoded.Hits.Total.Value,
		TotalPages: min(f.maxPages, (decoded.Hits.Total.Value+f.pageSize-1)/f.pageSize),
	}
	for _, hit := range decoded.Hits.Hits {
		result.Items = append(result.Items, hit.Source)
	}
	result.Normalize()

	outcome := "ok"
	if len(result.Items) == 0 {
		outcome = "empty"
	}
	metrics.ListingFetches.WithLabelValues("elasticsearch", outcome).Inc()
	return result, nil
}

func (f *ESFetcher) fail(filters models.FilterState, status int, err error) error {
	metrics.ListingFetches.WithLabelValues("elasticsearch", "error").Inc()
	f.log.Warn("listing search failed",
		zap.Int("page", filters.Page),
		zap.Int("status", status),
		zap.Error(err),
	)
	return &FetchFailedError{Filters: filters, StatusCode: status, Err: err}
}

// BuildSearchBody translates filters into an Elasticsearch query body.
// Pagination is carried on the request, not in the body.
func BuildSearchBody(filters models.FilterState) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}

	if filters.Search != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  filters.Search,
				"fields": []string{"fullName^3", "companyName^3", "about", "specializations^2"},
				"type":   "best_fields",
			},
		})
	}
	if filters.Profession != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"profession": string(filters.Profession)},
		})
	}
	if filters.Location != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"location": filters.Location},
		})
	}
	if tags := query.SplitSpecialization(filters.Specialization); len(tags) > 0 {
		filter = append(filter, map[string]interface{}{
			"terms": map[string]interface{}{"specializations": tags},
		})
	}
	// budget matches professionals whose typical project range overlaps the filter
	if b := filters.BudgetRange; b != nil {
		filter = append(filter,
			map[string]interface{}{"range": map[string]interface{}{"budgetMax": map[string]interface{}{"gte": b.Min}}},
			map[string]interface{}{"range": map[string]interface{}{"budgetMin": map[string]interface{}{"lte": b.Max}}},
		)
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	} else {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort":  sortClauses(filters.SortBy),
	}
}

func sortClauses(sortBy models.SortBy) []interface{} {
	switch sortBy {
	case models.SortRating:
		return []interface{}{
			map[string]interface{}{"rating": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"reviewCount": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		}
	case models.SortExperience:
		return []interface{}{
			map[string]interface{}{"experience": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		}
	default:
		return []interface{}{
			"_score",
			map[string]interface{}{"rating": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		}
	}
}
