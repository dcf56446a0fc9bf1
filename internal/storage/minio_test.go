package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_RequiresEndpointAndBucket(t *testing.T) {
	_, err := New(Config{Bucket: "files"}, nil)
	require.Error(t, err)

	_, err = New(Config{Endpoint: "localhost:9000"}, nil)
	require.Error(t, err)
}

func TestFileURL_Presigns(t *testing.T) {
	store, err := New(Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Bucket:    "attachments",
		URLExpiry: 10 * time.Minute,
	}, nil)
	require.NoError(t, err)

	raw, err := store.FileURL(context.Background(), "3f1c-key")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "http", u.Scheme)
	require.Equal(t, "localhost:9000", u.Host)
	require.Equal(t, "/attachments/3f1c-key", u.Path)
	require.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	require.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	_, err = store.FileURL(context.Background(), " ")
	require.Error(t, err)
}
