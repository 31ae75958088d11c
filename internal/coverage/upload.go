package coverage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gridci/gridci/internal/ctxlog"
)

// Client uploads coverage reports to an external analysis service.
type Client struct {
	httpClient *http.Client
}

// NewClient creates an upload client. A nil httpClient falls back to a
// default client.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// Upload posts the report file to uploadURL as a multipart form. The token,
// if set, is sent as a bearer credential. Extra fields (commit, branch,
// flags) travel as form values.
func (c *Client) Upload(ctx context.Context, uploadURL, token, reportPath string, fields map[string]string) error {
	logger := ctxlog.FromContext(ctx).With("url", uploadURL, "report", reportPath)

	file, err := os.Open(reportPath)
	if err != nil {
		return fmt.Errorf("failed to open coverage report '%s': %w", reportPath, err)
	}
	defer file.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field %q: %w", k, err)
		}
	}

	part, err := mw.CreateFormFile("file", filepath.Base(reportPath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read coverage report: %w", err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger.Info("Uploading coverage report")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("coverage upload failed with status: %s", resp.Status)
	}

	logger.Info("Coverage report uploaded", "status", resp.Status)
	return nil
}
