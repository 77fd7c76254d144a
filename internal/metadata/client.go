// Package metadata fetches book metadata from an external catalog API.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/pagekeep/pagekeep/internal/infrastructure/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned when the catalog has no record for an ISBN.
var ErrNotFound = errors.New("no metadata found for isbn")

// BookMetadata is the externally sourced portion of a book record.
type BookMetadata struct {
	Publisher string
	PageCount int
}

// Fetcher is the lookup contract the metadata-fetch job depends on.
type Fetcher interface {
	FetchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
}

// Client fetches book metadata over HTTP, following the Open Library
// edition API shape (GET {base}/isbn/{isbn}.json).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a metadata client from configuration.
func NewClient(cfg config.MetadataConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type editionDocument struct {
	Publishers    []string `json:"publishers"`
	NumberOfPages int      `json:"number_of_pages"`
}

// FetchByISBN looks up one ISBN, ErrNotFound when the catalog has no record.
func (c *Client) FetchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	url := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("metadata request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, isbn)
	}

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata request returned status %d", response.StatusCode)
	}

	var document editionDocument
	if err := json.NewDecoder(response.Body).Decode(&document); err != nil {
		return nil, fmt.Errorf("failed to decode metadata response: %w", err)
	}

	result := &BookMetadata{PageCount: document.NumberOfPages}
	if len(document.Publishers) > 0 {
		result.Publisher = document.Publishers[0]
	}

	return result, nil
}

var _ Fetcher = (*Client)(nil)
