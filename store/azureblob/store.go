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

// Package azureblob provides the Azure Blob Storage backend of the file
// store. Store paths map to blob names inside one container; folders are
// virtual and exist exactly when blobs live under their prefix.
package azureblob

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"cubedeck/platform/store"
)

// Options configures the Azure Blob store. Exactly one of ConnectionString,
// AccountKey, or UseManagedIdentity must provide credentials; AccountName is
// required unless a connection string is given.
type Options struct {
	AccountName        string
	Container          string
	Prefix             string
	AccountKey         string
	ConnectionString   string
	UseManagedIdentity bool
}

// Store is a file store backed by one Azure Blob container.
type Store struct {
	client    *azblob.Client
	container string
	prefix    string
}

// New creates an Azure Blob store and verifies the container is reachable.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Container == "" {
		return nil, store.NewStoreError("azureblob", "New", "container is required", nil)
	}

	var client *azblob.Client
	var err error

	switch {
	case opts.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
		if err != nil {
			return nil, store.NewStoreError("azureblob", "New", "failed to create client from connection string", err)
		}
	case opts.AccountKey != "":
		serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", opts.AccountName)
		cred, credErr := azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
		if credErr != nil {
			return nil, store.NewStoreError("azureblob", "New", "failed to create shared key credential", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, store.NewStoreError("azureblob", "New", "failed to create client", err)
		}
	case opts.UseManagedIdentity:
		serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", opts.AccountName)
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, store.NewStoreError("azureblob", "New", "failed to create Azure credential", credErr)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
		if err != nil {
			return nil, store.NewStoreError("azureblob", "New", "failed to create client", err)
		}
	default:
		return nil, store.NewStoreError("azureblob", "New", "no authentication method provided", nil)
	}

	s := &Store{
		client:    client,
		container: opts.Container,
		prefix:    strings.Trim(opts.Prefix, "/"),
	}

	if _, err := s.containerClient().GetProperties(ctx, nil); err != nil {
		return nil, store.NewStoreError("azureblob", "New", "failed to verify container", err)
	}
	return s, nil
}

func (s *Store) containerClient() *container.Client {
	return s.client.ServiceClient().NewContainerClient(s.container)
}

func (s *Store) blobName(p string) string {
	p = strings.Trim(p, "/")
	if s.prefix == "" {
		return p
	}
	return s.prefix + "/" + p
}

func (s *Store) storePath(name string) string {
	name = strings.TrimSuffix(name, "/")
	if s.prefix != "" {
		name = strings.TrimPrefix(name, s.prefix+"/")
	}
	return "/" + name
}

func (s *Store) GetFile(ctx context.Context, p string) (*store.FileInfo, error) {
	name := s.blobName(p)
	blobClient := s.containerClient().NewBlobClient(name)

	props, err := blobClient.GetProperties(ctx, nil)
	if err == nil {
		info := &store.FileInfo{
			Name: path.Base(p),
			Path: "/" + strings.Trim(p, "/"),
		}
		if props.ContentType != nil {
			info.MimeType = *props.ContentType
		}
		if props.ContentLength != nil {
			info.Size = *props.ContentLength
		}
		if props.LastModified != nil {
			info.ModTime = *props.LastModified
		}
		return info, nil
	}
	if !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, store.NewStoreError("azureblob", "GetFile", "failed to get blob properties", err)
	}

	// A folder exists exactly when blobs live under the prefix.
	one := int32(1)
	pager := s.containerClient().NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix:     stringPtr(name + "/"),
		MaxResults: &one,
	})
	if pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, store.NewStoreError("azureblob", "GetFile", "failed to probe folder", err)
		}
		if len(page.Segment.BlobItems) > 0 {
			return &store.FileInfo{
				Name:   path.Base(p),
				Path:   "/" + strings.Trim(p, "/"),
				Folder: true,
			}, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetChildren(ctx context.Context, p string) ([]store.FileInfo, error) {
	name := s.blobName(p)
	pager := s.containerClient().NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{
		Prefix: stringPtr(name + "/"),
	})

	var children []store.FileInfo
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, store.NewStoreError("azureblob", "GetChildren", "failed to list blobs", err)
		}
		for _, prefix := range page.Segment.BlobPrefixes {
			childName := strings.TrimSuffix(*prefix.Name, "/")
			children = append(children, store.FileInfo{
				Name:   path.Base(childName),
				Path:   s.storePath(childName),
				Folder: true,
			})
		}
		for _, item := range page.Segment.BlobItems {
			child := store.FileInfo{
				Name: path.Base(*item.Name),
				Path: s.storePath(*item.Name),
			}
			if item.Properties != nil {
				if item.Properties.ContentType != nil {
					child.MimeType = *item.Properties.ContentType
				}
				if item.Properties.ContentLength != nil {
					child.Size = *item.Properties.ContentLength
				}
				if item.Properties.LastModified != nil {
					child.ModTime = *item.Properties.LastModified
				}
			}
			children = append(children, child)
		}
	}

	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

// CreateFolder is a logical no-op: Azure Blob folders are virtual and come
// into being with the first blob written under them.
func (s *Store) CreateFolder(_ context.Context, parent, name string) (*store.FileInfo, error) {
	folderPath := strings.TrimSuffix(parent, "/") + "/" + name
	return &store.FileInfo{
		Name:   name,
		Path:   "/" + strings.Trim(folderPath, "/"),
		Folder: true,
	}, nil
}

func (s *Store) CreateFile(ctx context.Context, folder, name, mimeType string, data io.Reader) (*store.FileInfo, error) {
	return s.upload(ctx, strings.TrimSuffix(folder, "/")+"/"+name, mimeType, data)
}

func (s *Store) UpdateFile(ctx context.Context, p, mimeType string, data io.Reader) (*store.FileInfo, error) {
	return s.upload(ctx, p, mimeType, data)
}

func (s *Store) upload(ctx context.Context, p, mimeType string, data io.Reader) (*store.FileInfo, error) {
	_, err := s.client.UploadStream(ctx, s.container, s.blobName(p), data, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &mimeType,
		},
	})
	if err != nil {
		return nil, store.NewStoreError("azureblob", "Upload", "failed to upload blob", err)
	}
	return s.GetFile(ctx, p)
}

func (s *Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	resp, err := s.containerClient().NewBlobClient(s.blobName(p)).DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, store.NewStoreError("azureblob", "Open", "failed to download blob", err)
	}
	return resp.Body, nil
}

func stringPtr(s string) *string { return &s }

var _ store.Store = (*Store)(nil)
