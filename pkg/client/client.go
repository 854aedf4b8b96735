// Package client is a small Go client for the Praxis audit API. It covers
// the read-only ledger endpoints used by auditors and the praxis CLI.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Head summarises one chain: its length and current head hash.
type Head struct {
	ChainID string `json:"chain_id"`
	Entries int    `json:"entries"`
	Head    string `json:"head"`
}

// Entry is one ledger entry as rendered by the audit API.
type Entry struct {
	ChainID   string         `json:"chain_id"`
	Sequence  uint64         `json:"sequence"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Payload   map[string]any `json:"payload"`
	PrevHash  string         `json:"prev_hash"`
	Hash      string         `json:"hash"`
}

// Report is a chain verification result.
type Report struct {
	ChainID          string `json:"chain_id"`
	Valid            bool   `json:"valid"`
	Length           int    `json:"length"`
	HeadHash         string `json:"head_hash"`
	BrokenAtSequence uint64 `json:"broken_at_sequence"`
	Reason           string `json:"reason"`
}

// Client is the audit API entry point.
type Client struct {
	base       string
	httpClient *http.Client
	token      string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBearerToken attaches a bearer token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the API at base (e.g. "http://localhost:8080").
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chains lists every chain id known to the ledger.
func (c *Client) Chains(ctx context.Context) ([]string, error) {
	var resp struct {
		Chains []string `json:"chains"`
	}
	if err := c.get(ctx, "/api/v1/ledger/chains", &resp); err != nil {
		return nil, err
	}
	return resp.Chains, nil
}

// Head returns the chain's length and head hash.
func (c *Client) Head(ctx context.Context, chainID string) (*Head, error) {
	var head Head
	if err := c.get(ctx, "/api/v1/ledger/chains/"+url.PathEscape(chainID), &head); err != nil {
		return nil, err
	}
	return &head, nil
}

// Entries returns the chain's entries with sequence in [from, to].
func (c *Client) Entries(ctx context.Context, chainID string, from, to uint64) ([]Entry, error) {
	path := fmt.Sprintf("/api/v1/ledger/chains/%s/entries?from=%s&to=%s",
		url.PathEscape(chainID),
		strconv.FormatUint(from, 10),
		strconv.FormatUint(to, 10),
	)
	var resp struct {
		Entries []Entry `json:"entries"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Verify audits the full chain and returns the verification report. A broken
// chain is a normal result, not an error.
func (c *Client) Verify(ctx context.Context, chainID string) (*Report, error) {
	var report Report
	if err := c.get(ctx, "/api/v1/ledger/chains/"+url.PathEscape(chainID)+"/verify", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
