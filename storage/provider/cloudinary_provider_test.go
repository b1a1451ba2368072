// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCloudinaryProvider_SignParams(t *testing.T) {
	p := &cloudinaryProvider{apiSecret: "shhh"}

	// Parameters must be signed sorted by name with the secret appended.
	got := p.signParams(map[string]string{
		"timestamp": "1700000000",
		"folder":    "owner/docs",
		"public_id": "report_abc",
	})

	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=owner/docs&public_id=report_abc&timestamp=1700000000shhh")))
	require.Equal(t, want, got)
}

func TestCloudinaryProvider_GenerateSignedUploadURL(t *testing.T) {
	p := &cloudinaryProvider{
		cloudName:  "demo",
		apiKey:     "key123",
		apiSecret:  "shhh",
		httpClient: &http.Client{},
	}

	result, err := p.GenerateSignedUploadURL(context.Background(), "owner/docs/report_abc.pdf", "application/pdf", time.Hour)
	require.NoError(t, err)
	require.Equal(t, "owner/docs/report_abc.pdf", result.StorageKey)

	var descriptor struct {
		URL    string `json:"url"`
		Params struct {
			APIKey    string `json:"api_key"`
			Signature string `json:"signature"`
			Folder    string `json:"folder"`
			PublicID  string `json:"public_id"`
		} `json:"params"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.SignedURL), &descriptor))

	require.Equal(t, "https://api.cloudinary.com/v1_1/demo/auto/upload", descriptor.URL)
	require.Equal(t, "key123", descriptor.Params.APIKey)
	require.Equal(t, "owner/docs", descriptor.Params.Folder)
	require.Equal(t, "report_abc", descriptor.Params.PublicID)
	require.NotEmpty(t, descriptor.Params.Signature)
}

func TestCloudinaryProvider_PublicURL(t *testing.T) {
	p := &cloudinaryProvider{cloudName: "demo"}
	require.Equal(t, "https://res.cloudinary.com/demo/image/upload/owner/file.jpg", p.PublicURL("owner/file.jpg"))
}

func TestStripExtension(t *testing.T) {
	require.Equal(t, "owner/file", stripExtension("owner/file.jpg"))
	require.Equal(t, "owner/archive.tar", stripExtension("owner/archive.tar.gz"))
	require.Equal(t, "owner.v2/file", stripExtension("owner.v2/file"))
}
