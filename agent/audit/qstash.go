package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
)

var _ contractx.AuditSink = (*QStashSink)(nil)

// QStashSink forwards turn records to a webhook through QStash, by default
// only the critical ones. The record id doubles as the deduplication id.
type QStashSink struct {
	baseURL      string
	token        string
	destination  string
	criticalOnly bool
	httpClient   *http.Client
}

type QStashOption func(*QStashSink)

func WithQStashHTTPClient(client *http.Client) QStashOption {
	return func(s *QStashSink) {
		if client != nil {
			s.httpClient = client
		}
	}
}

func NewQStashSink(cfg QStashConfig, opts ...QStashOption) (*QStashSink, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid qstash url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("qstash token is required")
	}

	destination := strings.TrimSpace(cfg.Destination)
	if u, err := url.ParseRequestURI(destination); err != nil || u.Host == "" {
		return nil, fmt.Errorf("qstash destination must be an absolute url: %q", destination)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sink := &QStashSink{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		destination:  destination,
		criticalOnly: cfg.CriticalOnly,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sink)
		}
	}
	return sink, nil
}

func (s *QStashSink) Write(ctx context.Context, rec contractx.TurnRecord) error {
	if s.criticalOnly && !rec.Critical {
		return nil
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal turn record: %v", contractx.ErrAuditWrite, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2/publish/"+s.destination, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build qstash request: %v", contractx.ErrAuditWrite, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")
	if rec.ID != "" {
		req.Header.Set("Upstash-Deduplication-Id", rec.ID)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: publish: %v", contractx.ErrAuditWrite, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: qstash http status=%d body=%s", contractx.ErrAuditWrite, resp.StatusCode, string(raw))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *QStashSink) Close() error { return nil }
