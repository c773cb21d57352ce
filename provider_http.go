package hirezzie

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// providerMaxBody bounds provider responses.
const providerMaxBody = 8 << 20

// getBody GETs rawURL with the given headers and returns the body of a 200 response.
func getBody(ctx context.Context, client *http.Client, rawURL string, headers map[string]string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", DefaultUserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, providerMaxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status=%d", errHTTPStatus, resp.StatusCode)
	}
	return body, nil
}

// getJSON GETs rawURL and decodes a JSON body into dest.
func getJSON(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, dest any) error {
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["Accept"]; !ok {
		headers["Accept"] = "application/json"
	}
	body, err := getBody(ctx, client, rawURL, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// pageNumber converts a result offset to a 1-based page for page-oriented APIs.
func pageNumber(offset, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	return offset/pageSize + 1
}
