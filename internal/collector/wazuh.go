// Package collector pulls alert batches from a Wazuh indexer. The indexer
// speaks the OpenSearch API, so the client is a thin wrapper that issues a
// bounded search and hands the raw response envelope to the alert loader.
package collector

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
)

// Config holds Wazuh indexer connection settings.
type Config struct {
	URL           string
	Username      string
	Password      string
	TLSSkipVerify bool
	Index         string
	Timeout       time.Duration
}

// DefaultConfig returns the settings of a stock single-node Wazuh deployment.
func DefaultConfig() Config {
	return Config{
		URL:           "https://localhost:9200",
		Username:      "admin",
		Password:      "admin",
		TLSSkipVerify: true,
		Index:         "wazuh-alerts-*",
		Timeout:       30 * time.Second,
	}
}

// Client is a read-only client for the Wazuh alert indices.
type Client struct {
	osClient *opensearch.Client
	index    string
}

// NewClient creates a client and verifies the connection with an info ping.
func NewClient(cfg Config) (*Client, error) {
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping wazuh indexer: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return nil, fmt.Errorf("wazuh indexer returned error: %s", info.Status())
	}

	return &Client{
		osClient: client,
		index:    cfg.Index,
	}, nil
}

// Index returns the alert index pattern the client queries.
func (c *Client) Index() string {
	return c.index
}

// FetchAlerts retrieves up to size recent alerts, newest first, and returns
// the raw search response envelope. The caller parses it with the alert
// loader, which understands the hits/hits/_source layout.
func (c *Client) FetchAlerts(ctx context.Context, size int) ([]byte, error) {
	if size <= 0 {
		size = 100
	}
	query := map[string]interface{}{
		"size": size,
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc", "unmapped_type": "date"}},
		},
		"query": map[string]interface{}{
			"match_all": map[string]interface{}{},
		},
	}
	return c.search(ctx, query)
}

// FetchAlertsSince retrieves alerts with a timestamp at or after the given
// instant, oldest first, suitable for incremental collection.
func (c *Client) FetchAlertsSince(ctx context.Context, since time.Time, size int) ([]byte, error) {
	if size <= 0 {
		size = 100
	}
	query := map[string]interface{}{
		"size": size,
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "asc", "unmapped_type": "date"}},
		},
		"query": map[string]interface{}{
			"range": map[string]interface{}{
				"timestamp": map[string]interface{}{
					"gte": since.UTC().Format(time.RFC3339),
				},
			},
		},
	}
	return c.search(ctx, query)
}

func (c *Client) search(ctx context.Context, query map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.osClient.Search(
		c.osClient.Search.WithContext(ctx),
		c.osClient.Search.WithIndex(c.index),
		c.osClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search wazuh indices: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("wazuh search failed: %s - %s", res.Status(), string(bodyBytes))
	}

	return io.ReadAll(res.Body)
}
