// Copyright 2025 Cubedeck
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package s3 provides the Amazon S3 backend of the file store. It maps
// store paths onto object keys under a configurable prefix and emulates
// folders with zero-byte marker objects, which also keeps S3-compatible
// services like MinIO usable as a backend.
package s3

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"cubedeck/platform/store"
)

// Options configures the S3 store. Credentials are optional; the default
// AWS credential chain is used when AccessKeyID is empty.
type Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Store is a file store backed by a single S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3 store and verifies the bucket is reachable.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, store.NewStoreError("s3", "New", "bucket is required", nil)
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, store.NewStoreError("s3", "New", "failed to load AWS config", err)
	}

	clientOpts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		})
	}
	if opts.ForcePathStyle {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	s := &Store{
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}

	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	}); err != nil {
		return nil, store.NewStoreError("s3", "New", "failed to verify bucket", err)
	}
	return s, nil
}

// key maps a store path to an object key under the configured prefix.
func (s *Store) key(p string) string {
	p = strings.Trim(p, "/")
	if s.prefix == "" {
		return p
	}
	if p == "" {
		return s.prefix
	}
	return s.prefix + "/" + p
}

// storePath maps an object key back to a store path.
func (s *Store) storePath(key string) string {
	key = strings.TrimSuffix(key, "/")
	if s.prefix != "" {
		key = strings.TrimPrefix(key, s.prefix+"/")
	}
	return "/" + key
}

func (s *Store) GetFile(ctx context.Context, p string) (*store.FileInfo, error) {
	key := s.key(p)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		info := &store.FileInfo{
			Name:     path.Base(p),
			Path:     "/" + strings.Trim(p, "/"),
			MimeType: aws.ToString(head.ContentType),
			Size:     aws.ToInt64(head.ContentLength),
		}
		if head.LastModified != nil {
			info.ModTime = *head.LastModified
		}
		return info, nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return nil, store.NewStoreError("s3", "GetFile", "failed to head object", err)
	}

	// Not an object; a folder exists when anything lives under key/.
	list, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(key + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, store.NewStoreError("s3", "GetFile", "failed to probe folder", err)
	}
	if len(list.Contents) == 0 {
		return nil, store.ErrNotFound
	}
	return &store.FileInfo{
		Name:   path.Base(p),
		Path:   "/" + strings.Trim(p, "/"),
		Folder: true,
	}, nil
}

func (s *Store) GetChildren(ctx context.Context, p string) ([]store.FileInfo, error) {
	key := s.key(p)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(key + "/"),
		Delimiter: aws.String("/"),
	})

	var children []store.FileInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, store.NewStoreError("s3", "GetChildren", "failed to list objects", err)
		}
		for _, common := range page.CommonPrefixes {
			childKey := strings.TrimSuffix(aws.ToString(common.Prefix), "/")
			children = append(children, store.FileInfo{
				Name:   path.Base(childKey),
				Path:   s.storePath(childKey),
				Folder: true,
			})
		}
		for _, obj := range page.Contents {
			objKey := aws.ToString(obj.Key)
			if strings.HasSuffix(objKey, "/") {
				continue // folder marker
			}
			child := store.FileInfo{
				Name: path.Base(objKey),
				Path: s.storePath(objKey),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				child.ModTime = *obj.LastModified
			}
			// ListObjectsV2 carries no content type; fetch it per entry.
			head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(objKey),
			})
			if err == nil {
				child.MimeType = aws.ToString(head.ContentType)
			}
			children = append(children, child)
		}
	}

	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

func (s *Store) CreateFolder(ctx context.Context, parent, name string) (*store.FileInfo, error) {
	folderPath := strings.TrimSuffix(parent, "/") + "/" + name
	key := s.key(folderPath) + "/"

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		return nil, store.NewStoreError("s3", "CreateFolder", "failed to create folder marker", err)
	}
	return &store.FileInfo{
		Name:   name,
		Path:   "/" + strings.Trim(folderPath, "/"),
		Folder: true,
	}, nil
}

func (s *Store) CreateFile(ctx context.Context, folder, name, mimeType string, data io.Reader) (*store.FileInfo, error) {
	return s.put(ctx, strings.TrimSuffix(folder, "/")+"/"+name, mimeType, data)
}

func (s *Store) UpdateFile(ctx context.Context, p, mimeType string, data io.Reader) (*store.FileInfo, error) {
	return s.put(ctx, p, mimeType, data)
}

func (s *Store) put(ctx context.Context, p, mimeType string, data io.Reader) (*store.FileInfo, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(p)),
		Body:        data,
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return nil, store.NewStoreError("s3", "PutObject", "failed to write object", err)
	}
	return s.GetFile(ctx, p)
}

func (s *Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, store.ErrNotFound
		}
		return nil, store.NewStoreError("s3", "Open", "failed to get object", err)
	}
	return out.Body, nil
}

var _ store.Store = (*Store)(nil)
