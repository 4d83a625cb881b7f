package raftnet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/colinmarsh/raftd/raft"
)

// AddressFunc resolves a peer id to a base URL (e.g.
// "http://node2:8080"). spec.md §6 treats this mapping as an injected
// function rather than a protocol concern.
type AddressFunc func(peerID string) string

// Client implements raft.Transport over HTTP/JSON.
type Client struct {
	httpClient *http.Client
	address    AddressFunc
}

// NewClient builds a Client using httpClient (or http.DefaultClient if
// nil) and address to resolve peer ids to base URLs.
func NewClient(httpClient *http.Client, address AddressFunc) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, address: address}
}

func (c *Client) SendRequestVote(ctx context.Context, peerID string, req raft.RequestVote) (raft.RequestVoteResponse, error) {
	var resp raft.RequestVoteResponse
	err := c.post(ctx, peerID, RequestVotePath, req, &resp)
	return resp, err
}

func (c *Client) SendAppendEntries(ctx context.Context, peerID string, req raft.AppendEntries) (raft.AppendEntriesResponse, error) {
	var resp raft.AppendEntriesResponse
	err := c.post(ctx, peerID, AppendEntriesPath, req, &resp)
	return resp, err
}

func (c *Client) post(ctx context.Context, peerID, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	url := c.address(peerID) + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("peer %s unreachable: %w", peerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer %s returned HTTP %d", peerID, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", peerID, err)
	}
	return nil
}
