package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/upstream"
)

type supabase struct {
	baseURL    string
	serviceKey string
	bucket     string
	client     *upstream.Client
	logger     *slog.Logger
}

func newSupabase(cfg *Config, logger *slog.Logger) *supabase {
	return &supabase{
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/storage/v1",
		serviceKey: cfg.ServiceKey,
		bucket:     cfg.Bucket,
		client: upstream.NewClient(
			upstream.ServiceStorage,
			&http.Client{Timeout: cfg.TimeoutDuration()},
		),
		logger: logger.With("system", "storage", "provider", ProviderSupabase),
	}
}

func (s *supabase) Bucket() string {
	return s.bucket
}

func (s *supabase) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting storage system")

	lc.OnStartup("storage", func() error {
		if err := s.ensureBucket(lc.Context()); err != nil {
			s.logger.Error("storage bucket initialization failed", "error", err)
			return err
		}
		s.logger.Info("storage bucket ready", "bucket", s.bucket)
		return nil
	})

	return nil
}

func (s *supabase) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	if err := validateKey(bucket, path); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPut,
		s.objectURL("", bucket, path),
		bytes.NewReader(data),
	)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	if _, err := s.client.DoJSON(req, nil); err != nil {
		return fmt.Errorf("upload object %s/%s: %w", bucket, path, err)
	}

	return nil
}

// Download reads through the authenticated endpoint; the public endpoint
// rejects private buckets.
func (s *supabase) Download(ctx context.Context, bucket, path string) (*Object, error) {
	if err := validateKey(bucket, path); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet,
		s.objectURL("authenticated", bucket, path),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download object %s/%s: %w", bucket, path, notFound(err))
	}

	return &Object{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

func (s *supabase) Delete(ctx context.Context, bucket, path string) error {
	if err := validateKey(bucket, path); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodDelete,
		s.objectURL("", bucket, path),
		nil,
	)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	s.authorize(req)

	if _, err := s.client.DoJSON(req, nil); err != nil {
		return fmt.Errorf("delete object %s/%s: %w", bucket, path, notFound(err))
	}

	return nil
}

func (s *supabase) ensureBucket(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{
		"id":     s.bucket,
		"name":   s.bucket,
		"public": false,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		s.baseURL+"/bucket",
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("create bucket request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	_, err = s.client.DoJSON(req, nil)
	if se, ok := upstream.AsStatus(err); ok && bucketExists(se) {
		return nil
	}
	return err
}

func (s *supabase) authorize(req *http.Request) {
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
}

func (s *supabase) objectURL(variant, bucket, path string) string {
	parts := []string{s.baseURL, "object"}
	if variant != "" {
		parts = append(parts, variant)
	}
	parts = append(parts, url.PathEscape(bucket), escapePath(path))
	return strings.Join(parts, "/")
}

func escapePath(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}

// notFound tags missing-object responses with ErrNotFound. Supabase reports
// a missing object either as 404 or as 400 with a not_found body.
func notFound(err error) error {
	se, ok := upstream.AsStatus(err)
	if !ok {
		return err
	}
	if se.Status == http.StatusNotFound ||
		(se.Status == http.StatusBadRequest && isNotFoundBody(se.Message)) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func isNotFoundBody(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "not_found") || strings.Contains(m, "not found")
}

func bucketExists(se *upstream.StatusError) bool {
	if se.Status == http.StatusConflict {
		return true
	}
	m := strings.ToLower(se.Message)
	return strings.Contains(m, "already exists") || strings.Contains(m, "duplicate")
}
