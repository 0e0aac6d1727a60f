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

var _ contractx.AuditSink = (*UpstashSink)(nil)

const (
	defaultKeyPrefix     = "drift:audit:"
	defaultAuditTTL      = 7 * 24 * time.Hour
	maxResponseSizeBytes = 2 << 20
)

// UpstashOption customizes UpstashSink.
type UpstashOption func(*UpstashSink)

func WithKeyPrefix(prefix string) UpstashOption {
	return func(s *UpstashSink) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) UpstashOption {
	return func(s *UpstashSink) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(s *UpstashSink) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashSink appends turn records to a per-session Redis list via the Upstash REST API.
type UpstashSink struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewUpstashSink(cfg UpstashConfig, opts ...UpstashOption) (*UpstashSink, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultAuditTTL
	}

	sink := &UpstashSink{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultKeyPrefix,
		ttl:        ttl,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sink)
		}
	}

	if sink.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return sink, nil
}

func (s *UpstashSink) Write(ctx context.Context, rec contractx.TurnRecord) error {
	key, err := s.listKey(rec.SessionID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal turn record: %v", contractx.ErrAuditWrite, err)
	}

	if _, err := s.exec(ctx, []any{"RPUSH", key, string(payload)}); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrAuditWrite, err)
	}
	if s.ttl > 0 {
		if _, err := s.exec(ctx, []any{"EXPIRE", key, ttlSeconds(s.ttl)}); err != nil {
			return fmt.Errorf("%w: %v", contractx.ErrAuditWrite, err)
		}
	}
	return nil
}

// Recent returns up to n of the session's latest records, oldest first.
func (s *UpstashSink) Recent(ctx context.Context, sessionID string, n int) ([]contractx.TurnRecord, error) {
	key, err := s.listKey(sessionID)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	resp, err := s.exec(ctx, []any{"LRANGE", key, -n, -1})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, nil
	}

	var encoded []string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode list payload: %w", err)
	}

	out := make([]contractx.TurnRecord, 0, len(encoded))
	for _, item := range encoded {
		var rec contractx.TurnRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal turn record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *UpstashSink) Delete(ctx context.Context, sessionID string) error {
	key, err := s.listKey(sessionID)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", key})
	return err
}

func (s *UpstashSink) Close() error { return nil }

func (s *UpstashSink) listKey(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}
	return strings.TrimSpace(s.keyPrefix) + strings.TrimSpace(sessionID), nil
}

func (s *UpstashSink) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if s == nil {
		return nil, errors.New("nil sink")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
