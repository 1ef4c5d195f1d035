package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
)

const tweetsPath = "/2/tweets"

var (
	// ErrPosterDisabled is returned by Disabled for every post.
	ErrPosterDisabled = errors.New("social: posting disabled, credentials not configured")
	ErrBreakerOpen    = errors.New("social: circuit open")
)

// Credentials are the OAuth 1.0a user-context keys for the posting account.
type Credentials struct {
	APIKey            string
	APIKeySecret      string
	AccessToken       string
	AccessTokenSecret string
}

type XOptions struct {
	BaseURL       string
	TimeoutMs     int
	FailThreshold int
	OpenForMs     int
}

// XPoster creates posts via the X API v2 on behalf of a single account.
type XPoster struct {
	baseURL string
	client  *http.Client
	br      *Breaker
}

type createTweetRequest struct {
	Text string `json:"text"`
}

type createTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

func NewXPoster(creds Credentials, opts XOptions) *XPoster {
	if opts.TimeoutMs <= 0 {
		opts.TimeoutMs = 5000
	}

	if opts.FailThreshold <= 0 {
		opts.FailThreshold = 3
	}

	if opts.OpenForMs <= 0 {
		opts.OpenForMs = 30000
	}

	cfg := oauth1.NewConfig(creds.APIKey, creds.APIKeySecret)
	client := cfg.Client(oauth1.NoContext, oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret))
	client.Timeout = time.Duration(opts.TimeoutMs) * time.Millisecond

	return &XPoster{
		baseURL: opts.BaseURL,
		client:  client,
		br:      NewBreaker(opts.FailThreshold, time.Duration(opts.OpenForMs)*time.Millisecond),
	}
}

// Post publishes text and returns the id of the created post.
func (p *XPoster) Post(ctx context.Context, text string) (string, error) {
	if !p.br.TryAcquire() {
		return "", ErrBreakerOpen
	}

	id, err := p.post(ctx, text)
	if err != nil {
		p.br.OnFailure()
		return "", err
	}

	p.br.OnSuccess()

	return id, nil
}

func (p *XPoster) post(ctx context.Context, text string) (string, error) {
	b, _ := json.Marshal(createTweetRequest{Text: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+tweetsPath, bytes.NewReader(b))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return "", err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("x post: status=%d body=%s", res.StatusCode, bytes.TrimSpace(body))
	}

	var out createTweetResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("x post: decode response: %w", err)
	}

	return out.Data.ID, nil
}

// Disabled is used when no X credentials are configured.
type Disabled struct{}

func (Disabled) Post(context.Context, string) (string, error) { return "", ErrPosterDisabled }
