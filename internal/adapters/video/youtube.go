// Package video finds recipe videos on YouTube.
package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/pkg/logger"
	"github.com/okian/nutriscore/pkg/metrics"
)

const (
	defaultBaseURL    = "https://www.googleapis.com/youtube/v3"
	defaultRegion     = "IN"
	defaultMaxResults = 10
	defaultTimeout    = 10 * time.Second
	watchURL          = "https://www.youtube.com/watch?v="

	// The key travels in a header so it never appears in request URLs or
	// in the *url.Error text of failed calls.
	apiKeyHeader = "X-Goog-Api-Key"
)

// YouTube searches the YouTube Data API.
type YouTube struct {
	apiKey     string
	baseURL    string
	region     string
	maxResults int
	client     *http.Client
	logger     logger.Logger
}

// NewYouTube creates a search client. An empty key disables lookups.
func NewYouTube(apiKey string, opts ...Option) *YouTube {
	y := &YouTube{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		region:     defaultRegion,
		maxResults: defaultMaxResults,
		client:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(y)
	}
	if y.logger == nil {
		y.logger = logger.Get().Named("video")
	}
	return y
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// SearchQuery builds the search text for a food.
func SearchQuery(food string, isRecipe bool) string {
	if isRecipe {
		return "how to make " + food + " recipe"
	}
	return "suggest me a few recipes with " + food
}

// RecipeVideos returns videos for food, or nil when none are found or the
// lookup fails. Failures are logged and never returned.
func (y *YouTube) RecipeVideos(ctx context.Context, food string, isRecipe bool) []model.Video {
	if y.apiKey == "" {
		metrics.RecordVideoLookup("disabled")
		y.logger.Warn(ctx, "youtube api key not configured")
		return nil
	}

	videos, err := y.search(ctx, SearchQuery(food, isRecipe))
	if err != nil {
		metrics.RecordVideoLookup("error")
		y.logger.Error(ctx, "youtube search failed", logger.String("food_item", food), logger.Error(err))
		return nil
	}
	if len(videos) == 0 {
		metrics.RecordVideoLookup("empty")
		y.logger.Warn(ctx, "no videos found", logger.String("food_item", food))
		return nil
	}

	metrics.RecordVideoLookup("ok")
	return videos
}

func (y *YouTube) search(ctx context.Context, query string) ([]model.Video, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("part", "id,snippet")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(y.maxResults))
	if y.region != "" {
		params.Set("regionCode", y.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set(apiKeyHeader, y.apiKey)

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call youtube search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read youtube response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube search error %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parse youtube response: %w", err)
	}

	videos := make([]model.Video, 0, len(sr.Items))
	for _, item := range sr.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, model.Video{
			Title: item.Snippet.Title,
			URL:   watchURL + item.ID.VideoID,
			ID:    item.ID.VideoID,
		})
	}
	return videos, nil
}
