package publication

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelmill/internal/config"
)

const userAgent = "reelmill/0.1.0"

// GraphError is a non-success response from the Graph API.
type GraphError struct {
	StatusCode int
	Message    string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api returned %d: %s", e.StatusCode, e.Message)
}

// ClientOption configures the Graph client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for uploads.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// Client posts videos to a page.
type Client struct {
	baseURL string
	version string
	pageID  string
	token   string
	http    *http.Client
}

// NewClient builds a Graph client from publication settings. Credentials are
// not checked here; see Client.Ready.
func NewClient(cfg config.Publication, opts ...ClientOption) *Client {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.GraphBaseURL, "/"),
		version: strings.Trim(cfg.APIVersion, "/"),
		pageID:  strings.TrimSpace(cfg.PageID),
		token:   strings.TrimSpace(cfg.PageToken),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready reports why uploads cannot be attempted, or nil.
func (c *Client) Ready() error {
	var missing []string
	if c.pageID == "" {
		missing = append(missing, "publication.page_id (PAGE_ID)")
	}
	if c.token == "" {
		missing = append(missing, "publication.page_token (PAGE_TOKEN)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/%s/%s/videos", c.baseURL, c.version, c.pageID)
}

type graphResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UploadVideo posts the file at path with the given description and returns
// the platform video id. The body is streamed so large clips are never held
// in memory.
func (c *Client) UploadVideo(ctx context.Context, path, description string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open clip: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, c.token, description, filepath.Base(path), file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), pr)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	var payload graphResponse
	decodeErr := json.Unmarshal(body, &payload)

	if resp.StatusCode != http.StatusOK {
		message := "Unknown error"
		if decodeErr == nil && payload.Error != nil && strings.TrimSpace(payload.Error.Message) != "" {
			message = strings.TrimSpace(payload.Error.Message)
		}
		return "", &GraphError{StatusCode: resp.StatusCode, Message: message}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode upload response: %w", decodeErr)
	}
	return payload.ID, nil
}

func writeForm(form *multipart.Writer, token, description, fileName string, src io.Reader) error {
	if err := form.WriteField("access_token", token); err != nil {
		return err
	}
	if err := form.WriteField("description", description); err != nil {
		return err
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="source"; filename=%q`, fileName))
	header.Set("Content-Type", "video/mp4")
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("stream clip: %w", err)
	}
	return form.Close()
}
