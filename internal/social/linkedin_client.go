package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"log/slog"
)

// ErrRateLimited signals a 429 from LinkedIn. The sync orchestrator treats
// it as budget exhaustion for the rest of the run, regardless of what the
// local counter believes: the external view is authoritative.
var ErrRateLimited = errors.New("linkedin: rate limited")

const defaultBaseURL = "https://api.linkedin.com"

// Post is one of the user's own posts as returned by the API.
type Post struct {
	URN      string    `json:"urn"`
	Text     string    `json:"text"`
	PostedAt time.Time `json:"posted_at"`
}

// EngagementActor is one like/comment/share on a post, attributed to the
// external profile that performed it.
type EngagementActor struct {
	ActorURN   string    `json:"actor_urn"`
	ProfileURL string    `json:"profile_url,omitempty"`
	Type       string    `json:"type"` // like, comment, share
	Reaction   string    `json:"reaction,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LinkedInClient calls the LinkedIn REST API on behalf of the dashboard
// owner. Every method issues exactly one HTTP request, which is the unit the
// call budget counts.
type LinkedInClient struct {
	baseURL     string
	accessToken string
	authorURN   string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewLinkedInClient creates a new LinkedIn API client.
func NewLinkedInClient(accessToken, authorURN string, logger *slog.Logger) *LinkedInClient {
	return &LinkedInClient{
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		authorURN:   authorURN,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SetBaseURL overrides the API endpoint, used in tests.
func (c *LinkedInClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

type postsResponse struct {
	Elements []struct {
		URN       string `json:"id"`
		Commentary string `json:"commentary"`
		CreatedAt int64  `json:"createdAt"` // epoch millis
	} `json:"elements"`
}

// ListRecentPosts fetches the owner's most recent posts.
func (c *LinkedInClient) ListRecentPosts(ctx context.Context) ([]Post, error) {
	endpoint := fmt.Sprintf("%s/rest/posts?author=%s&q=author&sortBy=CREATED&count=20",
		c.baseURL, url.QueryEscape(c.authorURN))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp postsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse posts response: %w", err)
	}

	posts := make([]Post, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		posts = append(posts, Post{
			URN:      el.URN,
			Text:     el.Commentary,
			PostedAt: time.UnixMilli(el.CreatedAt).UTC(),
		})
	}

	c.logger.Debug("fetched recent posts", "count", len(posts))
	return posts, nil
}

type engagementResponse struct {
	Elements []struct {
		Actor        string `json:"actor"`
		ActorProfile string `json:"actorProfileUrl"`
		Type         string `json:"type"`
		Reaction     string `json:"reactionType,omitempty"`
		Message      string `json:"message,omitempty"`
		CreatedAt    int64  `json:"createdAt"`
	} `json:"elements"`
}

// ListEngagementForPost fetches the reactions and comments on one post.
func (c *LinkedInClient) ListEngagementForPost(ctx context.Context, postURN string) ([]EngagementActor, error) {
	endpoint := fmt.Sprintf("%s/rest/socialActions/%s/engagement",
		c.baseURL, url.PathEscape(postURN))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp engagementResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse engagement response: %w", err)
	}

	actors := make([]EngagementActor, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		actors = append(actors, EngagementActor{
			ActorURN:   el.Actor,
			ProfileURL: el.ActorProfile,
			Type:       el.Type,
			Reaction:   el.Reaction,
			Comment:    el.Message,
			OccurredAt: time.UnixMilli(el.CreatedAt).UTC(),
		})
	}

	c.logger.Debug("fetched post engagement", "post", postURN, "actors", len(actors))
	return actors, nil
}

type publishRequest struct {
	Author     string `json:"author"`
	Commentary string `json:"commentary"`
	Visibility string `json:"visibility"`
}

type publishResponse struct {
	ID string `json:"id"`
}

// PublishPost publishes a text post and returns its URN.
func (c *LinkedInClient) PublishPost(ctx context.Context, text string) (string, error) {
	endpoint := c.baseURL + "/rest/posts"

	reqBody, err := json.Marshal(publishRequest{
		Author:     c.authorURN,
		Commentary: text,
		Visibility: "PUBLIC",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to publish post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("publish post: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("linkedin API returned status %d: %s", resp.StatusCode, string(body))
	}

	var pubResp publishResponse
	if err := json.Unmarshal(body, &pubResp); err != nil {
		return "", fmt.Errorf("failed to parse publish response: %w", err)
	}
	if pubResp.ID == "" {
		// Some endpoints return the URN in a header instead of the body.
		pubResp.ID = resp.Header.Get("X-RestLi-Id")
	}
	if pubResp.ID == "" {
		return "", fmt.Errorf("linkedin API did not return a post URN")
	}

	c.logger.Info("published post", "urn", pubResp.ID)
	return pubResp.ID, nil
}

func (c *LinkedInClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("GET %s: %w", endpoint, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linkedin API returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func (c *LinkedInClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("LinkedIn-Version", "202405")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
}
