// Package upload is the HTTP client for the content upload service.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Its-donkey/dynamix-mint/internal/mint"
	"github.com/Its-donkey/dynamix-mint/logging"
)

// Response is the upload service's success body.
type Response struct {
	MetadataHash string `json:"metadataHash"`
	ImageHash    string `json:"imageHash,omitempty"`
}

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	Logger     *logging.Logger
	// StrictCID rejects identifiers that do not parse as a CID.
	StrictCID bool
}

// Client posts mint requests to POST {base}/upload.
type Client struct {
	endpoint  string
	http      *http.Client
	logger    *logging.Logger
	strictCID bool
}

// NewClient builds a client for the service at baseURL. The default HTTP
// client carries no timeout; deadlines come from the caller's context.
func NewClient(baseURL string, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Client{
		endpoint:  strings.TrimRight(baseURL, "/") + "/upload",
		http:      opts.HTTPClient,
		logger:    opts.Logger,
		strictCID: opts.StrictCID,
	}
}

// Upload implements mint.Uploader.
func (c *Client) Upload(ctx context.Context, req mint.Request) (string, error) {
	body, contentType, err := encode(req)
	if err != nil {
		return "", &mint.UploadError{Kind: mint.UploadTransport, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", &mint.UploadError{Kind: mint.UploadTransport, Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if req.AttemptID != "" {
		httpReq.Header.Set(logging.RequestIDHeader, req.AttemptID)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &mint.UploadError{Kind: mint.UploadTransport, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &mint.UploadError{Kind: mint.UploadTransport, Status: resp.StatusCode, Err: err}
	}
	c.logger.Debug("upload", "upload service responded", map[string]any{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
		"attempt_id":  req.AttemptID,
	})

	if resp.StatusCode != http.StatusOK {
		var detail error
		if msg := strings.TrimSpace(string(payload)); msg != "" {
			detail = errors.New(msg)
		}
		return "", &mint.UploadError{Kind: mint.UploadServerStatus, Status: resp.StatusCode, Err: detail}
	}

	var decoded Response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", &mint.UploadError{Kind: mint.UploadMalformed, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	id := strings.TrimSpace(decoded.MetadataHash)
	if id == "" {
		return "", &mint.UploadError{Kind: mint.UploadMalformed, Status: resp.StatusCode, Err: errors.New("missing metadataHash")}
	}
	if c.strictCID {
		if _, err := cid.Decode(id); err != nil {
			return "", &mint.UploadError{Kind: mint.UploadMalformed, Status: resp.StatusCode, Err: fmt.Errorf("metadataHash %q: %w", id, err)}
		}
	}
	return id, nil
}

// encode builds the multipart body. The image part is first, followed by the
// scalar fields as strings.
func encode(req mint.Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, mint.FieldImage, req.Image.Filename))
	header.Set("Content-Type", req.Image.ContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Image.Data); err != nil {
		return nil, "", err
	}

	fields := []struct{ name, value string }{
		{mint.FieldName, req.DisplayName},
		{mint.FieldPosition, string(req.Position)},
		{mint.FieldNationality, req.Nationality},
		{mint.FieldGoals, strconv.Itoa(req.GoalCount)},
		{mint.FieldMatches, strconv.Itoa(req.MatchesPlayed)},
		{mint.FieldTitles, strconv.Itoa(req.TitlesWon)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
