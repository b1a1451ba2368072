// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"io"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/qolzam/telar-drive/storage/provider"
)

// MockBlobProvider is a test double for the blob storage backend.
type MockBlobProvider struct {
	mock.Mock
}

var _ provider.BlobProvider = (*MockBlobProvider)(nil)

func (m *MockBlobProvider) GenerateSignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (*provider.SignedUploadURL, error) {
	args := m.Called(ctx, key, contentType, expiresIn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.SignedUploadURL), args.Error(1)
}

func (m *MockBlobProvider) GenerateSignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (*provider.SignedDownloadURL, error) {
	args := m.Called(ctx, key, expiresIn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.SignedDownloadURL), args.Error(1)
}

func (m *MockBlobProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockBlobProvider) PublicURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockBlobProvider) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockBlobProvider) SetVisibility(ctx context.Context, key string, isPublic bool) error {
	args := m.Called(ctx, key, isPublic)
	return args.Error(0)
}

func (m *MockBlobProvider) OpenStream(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockBlobProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

// MockFolderLookup is a test double for the folders module dependency.
type MockFolderLookup struct {
	mock.Mock
}

var _ FolderLookup = (*MockFolderLookup)(nil)

func (m *MockFolderLookup) Lookup(ctx context.Context, id uuid.UUID) (*FolderRef, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FolderRef), args.Error(1)
}
