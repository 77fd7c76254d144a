package metadata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/infrastructure/config"
	"github.com/pagekeep/pagekeep/internal/metadata"
)

func newTestClient(server *httptest.Server) *metadata.Client {
	return metadata.NewClient(config.MetadataConfig{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})
}

func Test_Client_FetchByISBN_DecodesEditionDocument(t *testing.T) {
	// arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/isbn/9780316005401.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"publishers": ["Orbit"], "number_of_pages": 544}`))
	}))
	defer server.Close()

	client := newTestClient(server)

	// act
	result, err := client.FetchByISBN(context.Background(), "9780316005401")

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Orbit", result.Publisher)
	assert.Equal(t, 544, result.PageCount)
}

func Test_Client_FetchByISBN_When_ISBNUnknown_ReturnsErrNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server)

	_, err := client.FetchByISBN(context.Background(), "0000000000000")

	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

func Test_Client_FetchByISBN_When_ServerErrors_Fails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server)

	_, err := client.FetchByISBN(context.Background(), "9780316005401")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, metadata.ErrNotFound)
}

func Test_Client_FetchByISBN_When_PublishersMissing_LeavesPublisherEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"number_of_pages": 200}`))
	}))
	defer server.Close()

	client := newTestClient(server)

	result, err := client.FetchByISBN(context.Background(), "9780316005401")

	require.NoError(t, err)
	assert.Empty(t, result.Publisher)
	assert.Equal(t, 200, result.PageCount)
}
