// Package reddit implements the item source on the public Reddit JSON API:
// community discovery via subreddit search, post fetching via per-subreddit
// search, and comment fetching per post.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prevalidate/researchd/internal/domain"
)

// Client talks to the Reddit JSON API. All calls are bounded by the HTTP
// client timeout.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *zap.Logger
}

// Config holds the source settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// New creates a Reddit source client.
func New(cfg *Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://www.reddit.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
		logger:    cfg.Logger,
	}
}

// listing is the Reddit envelope shared by every endpoint.
type listing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type subredditData struct {
	DisplayName string `json:"display_name"`
	Subscribers int    `json:"subscribers"`
	Description string `json:"public_description"`
}

type postData struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
	URL        string  `json:"url"`
}

type commentData struct {
	ID         string  `json:"id"`
	Body       string  `json:"body"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
	ParentID   string  `json:"parent_id"`
	LinkID     string  `json:"link_id"`
}

// DiscoverCommunities searches subreddits matching the hypothesis keywords
// and returns them in the source's relevance ranking.
func (c *Client) DiscoverCommunities(
	ctx context.Context, hyp domain.Hypothesis, keywords domain.KeywordSet, limit int,
) ([]domain.Community, error) {
	query := strings.Join(keywords.Primary, " ")
	if query == "" {
		query = hyp.Summary()
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	var list listing
	if err := c.getJSON(ctx, "/subreddits/search.json?"+q.Encode(), &list); err != nil {
		return nil, fmt.Errorf("subreddit search: %w", err)
	}

	comms := make([]domain.Community, 0, len(list.Data.Children))
	for _, child := range list.Data.Children {
		var sub subredditData
		if err := json.Unmarshal(child.Data, &sub); err != nil || sub.DisplayName == "" {
			continue
		}
		comms = append(comms, domain.Community{
			Name:        "r/" + sub.DisplayName,
			Subscribers: sub.Subscribers,
			Description: sub.Description,
		})
		if len(comms) == limit {
			break
		}
	}
	return comms, nil
}

// FetchPosts searches one community for posts matching the keywords.
func (c *Client) FetchPosts(
	ctx context.Context, community string, keywords []string, limit, sinceDays int,
) ([]domain.Item, domain.SourceHealth, error) {
	q := url.Values{}
	q.Set("q", strings.Join(keywords, " OR "))
	q.Set("restrict_sr", "1")
	q.Set("sort", "relevance")
	q.Set("t", timeRange(sinceDays))
	q.Set("limit", strconv.Itoa(limit))

	path := fmt.Sprintf("/%s/search.json?%s", strings.TrimPrefix(community, "/"), q.Encode())

	var list listing
	if err := c.getJSON(ctx, path, &list); err != nil {
		return nil, "", fmt.Errorf("search %s: %w", community, err)
	}

	items := make([]domain.Item, 0, len(list.Data.Children))
	for _, child := range list.Data.Children {
		var p postData
		if err := json.Unmarshal(child.Data, &p); err != nil || p.ID == "" {
			continue
		}
		items = append(items, postItem(p))
	}

	health := domain.SourceFresh
	if len(items) == 0 {
		health = domain.SourceEmpty
	}
	return items, health, nil
}

// FetchComments returns the top-level comments of a post.
func (c *Client) FetchComments(ctx context.Context, postID string, limit int) ([]domain.Item, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("depth", "1")

	// The comments endpoint returns two listings: the post, then its comments.
	var pages []listing
	if err := c.getJSON(ctx, fmt.Sprintf("/comments/%s.json?%s", postID, q.Encode()), &pages); err != nil {
		return nil, fmt.Errorf("comments of %s: %w", postID, err)
	}
	if len(pages) < 2 {
		return nil, nil
	}

	items := make([]domain.Item, 0, len(pages[1].Data.Children))
	for _, child := range pages[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var cm commentData
		if err := json.Unmarshal(child.Data, &cm); err != nil || cm.ID == "" {
			continue
		}
		items = append(items, commentItem(cm))
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

// FetchAppMentions searches sitewide for discussions naming the app.
func (c *Client) FetchAppMentions(
	ctx context.Context, app domain.AppMetadata, limit int,
) ([]domain.Item, domain.SourceHealth, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%q", app.Name))
	q.Set("sort", "relevance")
	q.Set("limit", strconv.Itoa(limit))

	var list listing
	if err := c.getJSON(ctx, "/search.json?"+q.Encode(), &list); err != nil {
		return nil, "", fmt.Errorf("app mention search: %w", err)
	}

	items := make([]domain.Item, 0, len(list.Data.Children))
	for _, child := range list.Data.Children {
		var p postData
		if err := json.Unmarshal(child.Data, &p); err != nil || p.ID == "" {
			continue
		}
		items = append(items, postItem(p))
	}

	health := domain.SourceFresh
	if len(items) == 0 {
		health = domain.SourceEmpty
	}
	return items, health, nil
}

// SampleItems fetches a small cross-community sample for coverage checks:
// discover the top communities, then pull an even share of posts from each.
func (c *Client) SampleItems(
	ctx context.Context, hyp domain.Hypothesis, keywords domain.KeywordSet, limit int,
) ([]domain.Item, error) {
	const sampleCommunities = 3

	comms, err := c.DiscoverCommunities(ctx, hyp, keywords, sampleCommunities)
	if err != nil {
		return nil, fmt.Errorf("sample discovery: %w", err)
	}
	if len(comms) == 0 {
		return nil, nil
	}

	perCommunity := limit / len(comms)
	if perCommunity == 0 {
		perCommunity = 1
	}

	var items []domain.Item
	for _, comm := range comms {
		posts, _, ferr := c.FetchPosts(ctx, comm.Name, keywords.All(), perCommunity, 365)
		if ferr != nil {
			c.logger.Warn("sample fetch failed, continuing",
				zap.String("community", comm.Name), zap.Error(ferr))
			continue
		}
		items = append(items, posts...)
		if len(items) >= limit {
			items = items[:limit]
			break
		}
	}
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrSourceUnavailable)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// timeRange maps a day window onto Reddit's coarse t parameter.
func timeRange(days int) string {
	switch {
	case days <= 0:
		return "all"
	case days <= 1:
		return "day"
	case days <= 7:
		return "week"
	case days <= 31:
		return "month"
	case days <= 365:
		return "year"
	default:
		return "all"
	}
}

func postItem(p postData) domain.Item {
	return domain.Item{
		ID:         p.ID,
		Kind:       domain.KindPost,
		Title:      p.Title,
		Body:       p.Selftext,
		Author:     p.Author,
		Community:  "r/" + p.Subreddit,
		Score:      p.Score,
		CreatedUTC: int64(p.CreatedUTC),
		Permalink:  p.Permalink,
		URL:        p.URL,
	}
}

func commentItem(cm commentData) domain.Item {
	return domain.Item{
		ID:         cm.ID,
		Kind:       domain.KindComment,
		Body:       cm.Body,
		Author:     cm.Author,
		Community:  "r/" + cm.Subreddit,
		Score:      cm.Score,
		CreatedUTC: int64(cm.CreatedUTC),
		Permalink:  cm.Permalink,
		ParentID:   cm.ParentID,
		PostID:     strings.TrimPrefix(cm.LinkID, "t3_"),
	}
}
