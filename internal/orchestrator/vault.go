package orchestrator

import (
	"context"
	"io"
	"strings"

	"github.com/avvvet/defidvisor-core/internal/fault"
	"github.com/avvvet/defidvisor-core/internal/vault"
)

const (
	opBuckets  = "vault.buckets"
	opFiles    = "vault.files"
	opUpload   = "vault.upload"
	opDownload = "vault.download"
)

// ListBuckets fetches the bucket list and commits it as the bucket snapshot.
func (c *Core) ListBuckets(ctx context.Context) ([]vault.Bucket, error) {
	c.metrics.Begin()
	var opErr error
	defer func() { c.metrics.Settle(opBuckets, opErr) }()

	buckets, err := c.vault.ListBuckets(ctx)
	if err != nil {
		opErr = err
		c.fail(opBuckets, fault.Message(err))
		return nil, err
	}

	c.mu.Lock()
	c.buckets = buckets
	c.mu.Unlock()

	c.notify(Event{Kind: EventVault, Op: opBuckets})
	return buckets, nil
}

// CreateBucket creates a bucket and, on success, re-lists buckets so the
// snapshot reflects server-side state rather than a local guess. On failure
// the existing snapshot is left untouched.
func (c *Core) CreateBucket(ctx context.Context, name string) (*vault.Bucket, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fault.New(fault.ValidationError, opBuckets, "bucket name is required")
	}

	c.metrics.Begin()
	var opErr error
	defer func() { c.metrics.Settle(opBuckets, opErr) }()

	bucket, err := c.vault.CreateBucket(ctx, name)
	if err != nil {
		opErr = err
		c.fail(opBuckets, fault.Message(err))
		return nil, err
	}

	if _, err := c.ListBuckets(ctx); err != nil {
		// The bucket exists; only the refresh failed. Subscribers already
		// heard about the list failure through fail().
		c.logger.Warn("bucket created but re-list failed")
	}
	return bucket, nil
}

// ListFiles fetches the file list for a bucket and commits it.
func (c *Core) ListFiles(ctx context.Context, bucket string) ([]vault.File, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fault.New(fault.ValidationError, opFiles, "bucket is required")
	}

	c.metrics.Begin()
	var opErr error
	defer func() { c.metrics.Settle(opFiles, opErr) }()

	files, err := c.vault.ListFiles(ctx, bucket)
	if err != nil {
		opErr = err
		c.fail(opFiles, fault.Message(err))
		return nil, err
	}

	c.mu.Lock()
	c.files[bucket] = files
	c.mu.Unlock()

	c.notify(Event{Kind: EventVault, Op: opFiles})
	return files, nil
}

// UploadFile streams content into a bucket and, on success, re-lists that
// bucket's files. A failed upload leaves the file snapshot exactly as it was.
func (c *Core) UploadFile(ctx context.Context, bucket, filename string, content io.Reader) (*vault.File, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fault.New(fault.ValidationError, opUpload, "bucket is required")
	}
	if strings.TrimSpace(filename) == "" {
		return nil, fault.New(fault.ValidationError, opUpload, "filename is required")
	}

	c.metrics.Begin()
	var opErr error
	defer func() { c.metrics.Settle(opUpload, opErr) }()

	file, err := c.vault.UploadFile(ctx, bucket, filename, content)
	if err != nil {
		opErr = err
		c.fail(opUpload, fault.Message(err))
		return nil, err
	}

	if _, err := c.ListFiles(ctx, bucket); err != nil {
		c.logger.Warn("file uploaded but re-list failed")
	}
	return file, nil
}

// DownloadFile is a passthrough; downloads never touch snapshots.
func (c *Core) DownloadFile(ctx context.Context, bucket, name string) ([]byte, error) {
	c.metrics.Begin()
	var opErr error
	defer func() { c.metrics.Settle(opDownload, opErr) }()

	data, err := c.vault.DownloadFile(ctx, bucket, name)
	if err != nil {
		opErr = err
		c.fail(opDownload, fault.Message(err))
		return nil, err
	}
	return data, nil
}
