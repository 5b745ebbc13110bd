// Package cloudinary uploads images to Cloudinary's REST upload API.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Upendra-HQ/professional-backend-code/internal/media"
	"github.com/Upendra-HQ/professional-backend-code/pkg/httpclient"
)

const (
	providerName   = "cloudinary"
	defaultBaseURL = "https://api.cloudinary.com"
)

// Config holds account credentials.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	// BaseURL overrides the API origin. Tests point it at httptest.
	BaseURL string
}

// Client implements media.Host.
type Client struct {
	cfg    Config
	http   *httpclient.CircuitBreakerClient
	logger *slog.Logger
	now    func() time.Time
}

type uploadResponse struct {
	PublicID  string `json:"public_id"`
	URL       string `json:"url"`
	SecureURL string `json:"secure_url"`
}

// New builds a Client. Uploads go through a circuit breaker named after the
// provider so a failing account stops taking traffic.
func New(cfg Config, hc *httpclient.Client, logger *slog.Logger) (*Client, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary: cloud name, api key and api secret are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:    cfg,
		http:   httpclient.NewCircuitBreakerClient(hc, httpclient.DefaultCircuitBreakerConfig(providerName), logger),
		logger: logger,
		now:    time.Now,
	}, nil
}

// Store uploads f with resource_type auto and returns the https URL.
func (c *Client) Store(ctx context.Context, f *media.File) (*media.Stored, error) {
	if err := media.Validate(f); err != nil {
		return nil, media.Failed(providerName, err)
	}

	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	if f.Folder != "" {
		params["folder"] = f.Folder
	}

	body, contentType, err := c.encode(params, f)
	if err != nil {
		return nil, media.Failed(providerName, err)
	}

	url := fmt.Sprintf("%s/v1_1/%s/auto/upload", c.cfg.BaseURL, c.cfg.CloudName)
	resp, err := c.http.Post(ctx, url, contentType, body)
	if err != nil {
		return nil, media.Failed(providerName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, media.Failed(providerName, httpclient.ParseResponseError(resp, providerName))
	}
	defer func() { _ = resp.Body.Close() }()

	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, media.Failed(providerName, fmt.Errorf("decode upload response: %w", err))
	}

	stored := &media.Stored{URL: out.SecureURL, PublicID: out.PublicID}
	if stored.URL == "" {
		stored.URL = out.URL
	}
	if stored.URL == "" {
		return nil, media.Failed(providerName, fmt.Errorf("upload response carried no url"))
	}

	c.logger.DebugContext(ctx, "media uploaded",
		slog.String("provider", providerName),
		slog.String("public_id", stored.PublicID),
	)
	return stored, nil
}

// encode builds the signed multipart body. The body is a *bytes.Buffer so
// the retrying client can replay it.
func (c *Client) encode(params map[string]string, f *media.File) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range params {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("api_key", c.cfg.APIKey); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("signature", Sign(params, c.cfg.APISecret)); err != nil {
		return nil, "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName(f)))
	h.Set("Content-Type", f.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, io.LimitReader(f.Body, media.MaxFileSize+1)); err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Sign computes Cloudinary's request signature: the SHA-1 hex digest of the
// params sorted by key, joined as k=v with "&", followed by the secret.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func fileName(f *media.File) string {
	if f.Name != "" {
		return f.Name
	}
	return "upload"
}

var _ media.Host = (*Client)(nil)
