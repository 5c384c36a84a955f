package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/you/campus-resource-hub/internal/domain"
)

// HTTPFetcher polls the hub's since endpoint. Transport failures surface
// as errors for the poll loop to swallow and retry.
type HTTPFetcher struct {
	base   string
	token  string
	client *http.Client
}

func NewHTTPFetcher(base, token string) *HTTPFetcher {
	return &HTTPFetcher{
		base:   base,
		token:  token,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type messagePayload struct {
	MessageID  string `json:"message_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"` // RFC3339Nano
}

func (f *HTTPFetcher) MessagesSince(ctx context.Context, threadID string, cutoff time.Time) ([]domain.Message, error) {
	u := fmt.Sprintf("%s/v1/threads/%s/messages/since?ts=%s",
		f.base, url.PathEscape(threadID),
		url.QueryEscape(cutoff.UTC().Format(time.RFC3339Nano)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+f.token)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("since fetch: unexpected status %d", resp.StatusCode)
	}

	var payload []messagePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(payload))
	for _, m := range payload {
		ts, err := time.Parse(time.RFC3339Nano, m.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("since fetch: bad timestamp %q: %w", m.Timestamp, err)
		}
		out = append(out, domain.Message{
			ID:         m.MessageID,
			ThreadID:   threadID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Content:    m.Content,
			Timestamp:  ts,
		})
	}
	return out, nil
}
