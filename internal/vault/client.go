package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/avvvet/defidvisor-core/internal/fault"
)

// Bucket is one storage bucket as listed by the vault API.
type Bucket struct {
	ID   uint   `json:"ID"`
	Name string `json:"Name"`
}

// File is one stored object inside a bucket.
type File struct {
	ID   uint   `json:"ID"`
	Name string `json:"Name"`
	Size int64  `json:"Size,omitempty"`
}

// Client is a thin REST client for the vault object-storage API. The storage
// engine itself is an external service; this client only moves bytes and
// validates the response envelope.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// envelope is the vault API's uniform {success, data} wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) ListBuckets(ctx context.Context) ([]Bucket, error) {
	var buckets []Bucket
	if err := c.callJSON(ctx, "vault.listBuckets", http.MethodGet, "/buckets", nil, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (c *Client) CreateBucket(ctx context.Context, name string) (*Bucket, error) {
	payload := map[string]string{"bucketName": name}

	var bucket Bucket
	if err := c.callJSON(ctx, "vault.createBucket", http.MethodPost, "/buckets", payload, &bucket); err != nil {
		return nil, err
	}
	return &bucket, nil
}

func (c *Client) ListFiles(ctx context.Context, bucket string) ([]File, error) {
	path := "/buckets/" + url.PathEscape(bucket) + "/files"

	var files []File
	if err := c.callJSON(ctx, "vault.listFiles", http.MethodGet, path, nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// UploadFile streams a file into a bucket as a multipart form.
func (c *Client) UploadFile(ctx context.Context, bucket, filename string, content io.Reader) (*File, error) {
	const op = "vault.uploadFile"

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fault.Wrap(fault.ValidationError, op, "failed to build multipart form", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fault.Wrap(fault.ValidationError, op, "failed to read file content", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fault.Wrap(fault.ValidationError, op, "failed to finalize multipart form", err)
	}

	target := c.baseURL + "/buckets/" + url.PathEscape(bucket) + "/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &form)
	if err != nil {
		return nil, fault.Wrap(fault.NetworkFailure, op, "failed to build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.NetworkFailure, op, "request failed", err)
	}
	defer resp.Body.Close()

	var file File
	if err := c.decodeEnvelope(op, resp, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// DownloadFile returns the raw bytes of a stored object.
func (c *Client) DownloadFile(ctx context.Context, bucket, name string) ([]byte, error) {
	const op = "vault.downloadFile"

	target := c.baseURL + "/buckets/" + url.PathEscape(bucket) + "/files/" + url.PathEscape(name) + "/download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fault.Wrap(fault.NetworkFailure, op, "failed to build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.NetworkFailure, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fault.FromStatus(op, resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(fault.NetworkFailure, op, "failed to read file body", err)
	}
	return content, nil
}

func (c *Client) callJSON(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fault.Wrap(fault.ValidationError, op, "failed to encode payload", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fault.Wrap(fault.NetworkFailure, op, "failed to build request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.Wrap(fault.NetworkFailure, op, "request failed", err)
	}
	defer resp.Body.Close()

	return c.decodeEnvelope(op, resp, out)
}

func (c *Client) decodeEnvelope(op string, resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fault.FromStatus(op, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fault.Wrap(fault.MalformedResponse, op, "failed to decode response", err)
	}
	if !env.Success {
		return fault.New(fault.BackendError, op, fmt.Sprintf("vault reported failure: %s", env.Message))
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fault.Wrap(fault.MalformedResponse, op, "unexpected data shape", err)
		}
	}
	return nil
}
