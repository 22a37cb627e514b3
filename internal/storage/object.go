// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectConfig captures configuration for the S3-compatible object storage backend.
type ObjectConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	Prefix    string
	UseSSL    bool
	PathStyle bool
}

// Object keeps every item as one object in an S3-compatible bucket.
type Object struct {
	client *minio.Client
	cfg    ObjectConfig
}

// NewObject initializes the object storage client and makes sure the bucket exists.
func NewObject(ctx context.Context, cfg ObjectConfig) (*Object, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.AccessKey = strings.TrimSpace(cfg.AccessKey)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object storage: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object storage: bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("object storage: access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("object storage: secret key is required")
	}

	options := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		options.BucketLookup = minio.BucketLookupPath
	}
	client, err := minio.New(cfg.Endpoint, options)
	if err != nil {
		return nil, fmt.Errorf("object storage: create client: %w", err)
	}

	s := &Object{client: client, cfg: cfg}
	if err = s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Object) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("object storage: check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err = s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return fmt.Errorf("object storage: create bucket: %w", err)
	}
	return nil
}

func (s *Object) Name() string { return DriverObject }

func (s *Object) GetItem(ctx context.Context, key string) (string, bool, error) {
	objectKey := s.objectKey(key)
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		if isObjectNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("object storage: get %s: %w", objectKey, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if isObjectNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("object storage: read %s: %w", objectKey, err)
	}
	return string(data), true, nil
}

func (s *Object) SetItem(ctx context.Context, key, value string) error {
	objectKey := s.objectKey(key)
	data := []byte(value)
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return fmt.Errorf("object storage: put %s: %w", objectKey, err)
	}
	return nil
}

func (s *Object) RemoveItem(ctx context.Context, key string) error {
	objectKey := s.objectKey(key)
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		if isObjectNotFound(err) {
			return nil
		}
		return fmt.Errorf("object storage: delete %s: %w", objectKey, err)
	}
	return nil
}

func (s *Object) Close() error { return nil }

// objectKey maps a storage key to an object name. Scope separators become path
// segments; every segment is escaped so arbitrary keys stay valid object names.
func (s *Object) objectKey(key string) string {
	return objectKeyFor(s.cfg.Prefix, key)
}

func objectKeyFor(prefix, key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	escaped := strings.Join(parts, "/")
	if prefix == "" {
		return escaped
	}
	return prefix + "/" + escaped
}

func isObjectNotFound(err error) bool {
	if err == nil {
		return false
	}
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound {
		return true
	}
	switch resp.Code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return true
	}
	return false
}
