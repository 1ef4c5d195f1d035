package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const replyPath = "/v2/bot/message/reply"

// ErrMissingToken is returned when no channel access token is configured.
var ErrMissingToken = errors.New("line: channel access token not configured")

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

// Client sends replies through the Messaging API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string, timeoutMs int) *Client {
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
	}
}

// Reply answers the event identified by replyToken with a single text message.
// Any non-2xx status is an error.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if c.token == "" {
		return ErrMissingToken
	}

	b, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+replyPath, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("line reply: status=%d body=%s", res.StatusCode, bytes.TrimSpace(body))
	}

	_, _ = io.Copy(io.Discard, res.Body)

	return nil
}
