// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package postgres

import (
	"context"
	"testing"
	"time"

	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	config := &platformconfig.PostgreSQLConfig{
		Host:            "localhost",
		Port:            5432,
		Username:        "postgres",
		Password:        "postgres",
		Database:        "telar_drive_test",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 300 * time.Second,
		ConnectTimeout:  10,
	}

	client, err := NewClient(ctx, config)
	if err != nil {
		t.Skipf("Skipping test: PostgreSQL not available: %v", err)
		return
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}
}

func TestBuildConnectionString(t *testing.T) {
	config := &platformconfig.PostgreSQLConfig{
		Host:           "db.internal",
		Port:           5433,
		Username:       "drive",
		Password:       "secret",
		Database:       "telar_drive",
		SSLMode:        "require",
		ConnectTimeout: 5,
	}

	got := buildConnectionString(config)
	want := "host=db.internal port=5433 dbname=telar_drive user=drive password=secret sslmode=require connect_timeout=5"
	if got != want {
		t.Fatalf("unexpected connection string:\n got: %s\nwant: %s", got, want)
	}
}
