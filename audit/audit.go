/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package audit persists the iteration log of finished fix runs, one JSON
// document per run, to a local directory or a Cloud Storage bucket.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"chainguard.dev/issuefix/reconcilers/issuereconciler"
	"cloud.google.com/go/storage"
	"github.com/chainguard-dev/clog"
	"google.golang.org/api/option"
)

var (
	_ issuereconciler.AuditSink = (*FileSink)(nil)
	_ issuereconciler.AuditSink = (*GCSSink)(nil)
	_ issuereconciler.AuditSink = Multi(nil)
)

func encode(run issuereconciler.Result) ([]byte, error) {
	b, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding run: %w", err)
	}
	return append(b, '\n'), nil
}

func validRunID(runID string) error {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return fmt.Errorf("invalid run id %q", runID)
	}
	return nil
}

// FileSink writes runs as <dir>/<runID>.json.
type FileSink struct {
	dir string
}

// NewFileSink creates dir if needed and returns a sink writing into it.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, errors.New("directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Write implements issuereconciler.AuditSink. The file appears atomically.
func (s *FileSink) Write(ctx context.Context, runID string, run issuereconciler.Result) error {
	if err := validRunID(runID); err != nil {
		return err
	}
	b, err := encode(run)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+runID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("writing audit record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing audit record: %w", err)
	}
	dst := filepath.Join(s.dir, runID+".json")
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("renaming audit record: %w", err)
	}
	clog.FromContext(ctx).With("path", dst).Info("Wrote audit record")
	return nil
}

// NewStorageClient returns a Cloud Storage client. An empty credentialsFile
// uses application default credentials.
func NewStorageClient(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*storage.Client, error) {
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("service account key %s: %w", credentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return client, nil
}

// GCSSink writes runs as gs://<bucket>/<prefix>/<runID>.json.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSOption configures a GCSSink.
type GCSOption func(*GCSSink)

// WithPrefix replaces the default "runs" object prefix.
func WithPrefix(prefix string) GCSOption {
	return func(s *GCSSink) {
		s.prefix = strings.Trim(prefix, "/")
	}
}

// NewGCSSink returns a sink writing to bucket with client.
func NewGCSSink(client *storage.Client, bucket string, opts ...GCSOption) (*GCSSink, error) {
	if client == nil {
		return nil, errors.New("storage client cannot be nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket cannot be empty")
	}
	s := &GCSSink{client: client, bucket: bucket, prefix: "runs"}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Object returns the object name used for runID.
func (s *GCSSink) Object(runID string) string {
	return path.Join(s.prefix, runID+".json")
}

// Write implements issuereconciler.AuditSink.
func (s *GCSSink) Write(ctx context.Context, runID string, run issuereconciler.Result) error {
	if err := validRunID(runID); err != nil {
		return err
	}
	b, err := encode(run)
	if err != nil {
		return err
	}

	name := s.Object(runID)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	// Records are small; a single multipart request is enough.
	w.ChunkSize = 0
	if _, err := w.Write(b); err != nil {
		w.Close()
		return fmt.Errorf("writing gs://%s/%s: %w", s.bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing gs://%s/%s: %w", s.bucket, name, err)
	}
	clog.FromContext(ctx).With("object", name).Infof("Wrote audit record to gs://%s/%s", s.bucket, name)
	return nil
}

// Multi writes to every sink and joins their errors.
type Multi []issuereconciler.AuditSink

// Write implements issuereconciler.AuditSink.
func (m Multi) Write(ctx context.Context, runID string, run issuereconciler.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, runID, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
