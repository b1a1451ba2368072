// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package tokenstore keeps the short-lived signed tokens the local
// storage backend hands out in place of real presigned URLs.
package tokenstore

import (
	"context"
	"time"
)

// Kind distinguishes the two token flavors the local backend issues.
type Kind string

const (
	// KindUpload tokens authorize a single PUT of the object body and
	// are consumed on use.
	KindUpload Kind = "upload"
	// KindDownload tokens authorize reads and stay valid until expiry.
	KindDownload Kind = "download"
)

// Entry is the state bound to an issued token.
type Entry struct {
	Key       string    `json:"key"`
	Kind      Kind      `json:"kind"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists token entries with their TTL. The memory
// implementation is single-instance only; the redis implementation
// supports multiple instances behind a load balancer.
type Store interface {
	// Save records the entry under the token until it expires.
	Save(ctx context.Context, token string, entry Entry) error

	// Peek returns the entry without invalidating the token. Expired or
	// unknown tokens return found=false.
	Peek(ctx context.Context, token string) (entry Entry, found bool, err error)

	// Consume returns the entry and invalidates the token atomically.
	Consume(ctx context.Context, token string) (entry Entry, found bool, err error)

	// Close releases store resources.
	Close() error
}
