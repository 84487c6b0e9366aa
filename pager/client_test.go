package pager

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andyfu-xl/SEML/errors"
	"github.com/andyfu-xl/SEML/testutil"
)

var testEventTime = time.Date(2024, 1, 20, 22, 4, 3, 0, time.UTC)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{BaseURL: baseURL}, slog.Default())
	require.NoError(t, err)
	return c
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
	}{
		{"valid", ClientConfig{BaseURL: "http://localhost:8441"}, false},
		{"missing URL", ClientConfig{}, true},
		{"bad scheme", ClientConfig{BaseURL: "nats://localhost:8441"}, true},
		{"negative timeout", ClientConfig{BaseURL: "http://localhost:8441", Timeout: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_PageDelivered(t *testing.T) {
	srv := testutil.NewPagerServer(t)
	client := testClient(t, srv.URL())

	err := client.Page(context.Background(), "478237423", testEventTime)
	require.NoError(t, err)

	pages := srv.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, "478237423,20240120220403", pages[0])
}

func TestClient_PageWithoutEventTime(t *testing.T) {
	srv := testutil.NewPagerServer(t)
	client := testClient(t, srv.URL())

	err := client.Page(context.Background(), "478237423", time.Time{})
	require.NoError(t, err)

	pages := srv.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, "478237423", pages[0])
}

func TestClient_PageServerErrorIsTransient(t *testing.T) {
	srv := testutil.NewPagerServer(t)
	srv.FailNext(1)
	client := testClient(t, srv.URL())

	err := client.Page(context.Background(), "478237423", testEventTime)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPageFailed))
	assert.True(t, errors.IsTransient(err))
	assert.Empty(t, srv.Pages())
}

func TestClient_PageRejectedIsInvalid(t *testing.T) {
	srv := testutil.NewPagerServer(t)
	srv.RejectAll(true)
	client := testClient(t, srv.URL())

	err := client.Page(context.Background(), "478237423", testEventTime)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPageRejected))
	assert.False(t, errors.IsTransient(err))
}

func TestClient_PageUnreachableEndpoint(t *testing.T) {
	client := testClient(t, "http://127.0.0.1:1")

	err := client.Page(context.Background(), "478237423", testEventTime)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPageFailed))
}

func TestClient_Shutdown(t *testing.T) {
	srv := testutil.NewPagerServer(t)
	client := testClient(t, srv.URL())

	// The fake service answers 405 to anything but GET /shutdown.
	require.NoError(t, client.Shutdown(context.Background()))
	assert.Equal(t, 1, srv.Shutdowns())
}
