package onemap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/ryanlimjk/heatwatch/app/observability/metrics"
	"github.com/ryanlimjk/heatwatch/internal/types"
)

// DefaultBaseURL is the OneMap public API root.
const DefaultBaseURL = "https://www.onemap.gov.sg/api/public"

const (
	planningAreaCacheKey = "planning_areas"
	themeCachePrefix     = "theme:"
)

var _ Client = (*ClientImpl)(nil)

// Client talks to the Singapore OneMap API.
type Client interface {
	PlanningAreas(ctx context.Context) ([]Area, error)
	ThemeData(ctx context.Context, queryName string) ([]types.ThemeItem, error)
	AllThemesInfo(ctx context.Context) ([]types.ThemeInfo, error)
}

type ClientImpl struct {
	logger  *slog.Logger
	httpc   *http.Client
	baseURL string
	token   string
	year    string
	cache   *cache.Cache
	group   singleflight.Group
}

func NewClient(baseURL, token, year string, cacheTTL time.Duration, logger *slog.Logger) *ClientImpl {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if year == "" {
		year = "2019"
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &ClientImpl{
		logger:  logger,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		token:   token,
		year:    year,
		cache:   cache.New(cacheTTL, 2*cacheTTL),
	}
}

// planningAreaItem is one record from popapi/getAllPlanningarea. The geojson
// field is served either as an embedded object or a JSON-encoded string.
type planningAreaItem struct {
	Name    string          `json:"pln_area_n"`
	GeoJSON json.RawMessage `json:"geojson"`
}

type planningAreaResponse struct {
	SearchResults []planningAreaItem `json:"SearchResults"`
	Results       []planningAreaItem `json:"results"`
}

// PlanningAreas fetches (or serves from cache) all planning-area polygons,
// parsed into S2 geometry. Concurrent callers share one upstream fetch.
func (c *ClientImpl) PlanningAreas(ctx context.Context) ([]Area, error) {
	ctx, span := otel.Tracer("OneMapClient").Start(ctx, "PlanningAreas")
	defer span.End()

	if cached, ok := c.cache.Get(planningAreaCacheKey); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.([]Area), nil
	}

	v, err, _ := c.group.Do(planningAreaCacheKey, func() (interface{}, error) {
		areas, err := c.fetchPlanningAreas(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.Set(planningAreaCacheKey, areas, cache.DefaultExpiration)
		return areas, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "planning area load failed")
		return nil, err
	}
	return v.([]Area), nil
}

func (c *ClientImpl) fetchPlanningAreas(ctx context.Context) ([]Area, error) {
	endpoint := fmt.Sprintf("%s/popapi/getAllPlanningarea?year=%s", c.baseURL, url.QueryEscape(c.year))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch planning areas: %w", err)
	}

	var items []planningAreaItem
	// The endpoint has served both a bare array and a wrapped object.
	if err := json.Unmarshal(body, &items); err != nil {
		var wrapped planningAreaResponse
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode planning area response: %w", err)
		}
		items = wrapped.SearchResults
		if len(items) == 0 {
			items = wrapped.Results
		}
	}

	areas := make([]Area, 0, len(items))
	for _, item := range items {
		area, err := parseArea(item)
		if err != nil {
			c.logger.WarnContext(ctx, "Failed to parse planning area",
				slog.String("area", item.Name), slog.Any("error", err))
			continue
		}
		areas = append(areas, area)
	}
	if len(areas) == 0 {
		return nil, fmt.Errorf("planning area response contained no parsable areas")
	}

	c.logger.InfoContext(ctx, "Loaded planning areas", slog.Int("count", len(areas)))
	return areas, nil
}

type themeResponse struct {
	SrchResults []map[string]interface{} `json:"SrchResults"`
}

// ThemeData fetches all point features of one OneMap theme. The first record
// of SrchResults is layer metadata and carries no LatLng; it is skipped along
// with any record whose coordinates do not parse.
func (c *ClientImpl) ThemeData(ctx context.Context, queryName string) ([]types.ThemeItem, error) {
	ctx, span := otel.Tracer("OneMapClient").Start(ctx, "ThemeData")
	defer span.End()
	span.SetAttributes(attribute.String("theme", queryName))

	cacheKey := themeCachePrefix + queryName
	if cached, ok := c.cache.Get(cacheKey); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.([]types.ThemeItem), nil
	}

	q := url.Values{"queryName": {queryName}}
	if c.token != "" {
		q.Set("token", c.token)
	}
	endpoint := fmt.Sprintf("%s/themesvc/retrieveTheme?%s", c.baseURL, q.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch theme %s: %w", queryName, err)
	}

	var parsed themeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode theme %s: %w", queryName, err)
	}

	items := make([]types.ThemeItem, 0, len(parsed.SrchResults))
	for _, raw := range parsed.SrchResults {
		latlng, _ := raw["LatLng"].(string)
		lat, lng, ok := parseLatLng(latlng)
		if !ok {
			continue
		}
		name, _ := raw["NAME"].(string)
		desc, _ := raw["DESCRIPTION"].(string)
		items = append(items, types.ThemeItem{
			Name:        name,
			Description: desc,
			Lat:         lat,
			Lng:         lng,
		})
	}

	c.cache.Set(cacheKey, items, cache.DefaultExpiration)
	c.logger.InfoContext(ctx, "Fetched theme data",
		slog.String("theme", queryName), slog.Int("items", len(items)))
	return items, nil
}

type themesInfoResponse struct {
	ThemeNames []types.ThemeInfo `json:"Theme_Names"`
}

func (c *ClientImpl) AllThemesInfo(ctx context.Context) ([]types.ThemeInfo, error) {
	ctx, span := otel.Tracer("OneMapClient").Start(ctx, "AllThemesInfo")
	defer span.End()

	body, err := c.get(ctx, c.baseURL+"/themesvc/getAllThemesInfo")
	if err != nil {
		return nil, fmt.Errorf("failed to list themes: %w", err)
	}
	var parsed themesInfoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode themes listing: %w", err)
	}
	return parsed.ThemeNames, nil
}

func (c *ClientImpl) get(ctx context.Context, endpoint string) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.Get().UpstreamErrorsTotal.Add(ctx, 1)
		return nil, err
	}
	defer resp.Body.Close()
	metrics.Get().UpstreamRequestDuration.Record(ctx, time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.Get().UpstreamErrorsTotal.Add(ctx, 1)
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	return io.ReadAll(resp.Body)
}

func parseLatLng(s string) (float64, float64, bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
