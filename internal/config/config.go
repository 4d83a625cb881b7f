// Package config loads replica configuration from environment
// variables, optionally layered with a YAML file for cluster topology
// (peer ids and addresses), per SPEC_FULL.md §6.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Peer is one member of the cluster, named by id and reachable at addr.
type Peer struct {
	ID   string `yaml:"id"`
	Addr string `yaml:"addr"`
}

// Config is everything a cmd/raftd process needs to start a replica.
type Config struct {
	NodeID           string        `yaml:"node_id"`
	ListenAddr       string        `yaml:"listen_addr"`
	Peers            []Peer        `yaml:"peers"`
	HeartbeatTimeout time.Duration `yaml:"-"`
	ElectionTimeout  time.Duration `yaml:"-"`
}

const (
	defaultHeartbeatTimeout = time.Second
	defaultElectionTimeout  = 5 * time.Second
	defaultListenAddr       = ":8080"
)

// Load builds a Config from an optional YAML file at path (ignored if
// path is ""), with environment variables taking precedence over it.
//
// Recognized environment variables: NODE_ID, LISTEN_ADDR,
// HEARTBEAT_TIMEOUT (seconds), ELECTION_TIMEOUT (seconds), CLUSTER_SIZE
// (validated against the peer count once peers are known).
func Load(path string) (Config, error) {
	cfg := Config{
		NodeID:           os.Getenv("NODE_ID"),
		ListenAddr:       defaultListenAddr,
		HeartbeatTimeout: defaultHeartbeatTimeout,
		ElectionTimeout:  defaultElectionTimeout,
	}

	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv("NODE_ID"); v != "" {
		cfg.NodeID = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("HEARTBEAT_TIMEOUT"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("HEARTBEAT_TIMEOUT: %w", err)
		}
		cfg.HeartbeatTimeout = d
	}
	if v := os.Getenv("ELECTION_TIMEOUT"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("ELECTION_TIMEOUT: %w", err)
		}
		cfg.ElectionTimeout = d
	}

	if cfg.NodeID == "" {
		return Config{}, fmt.Errorf("config: node id is required (set NODE_ID or node_id in the config file)")
	}

	if v := os.Getenv("CLUSTER_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("CLUSTER_SIZE: %w", err)
		}
		if size != len(cfg.Peers)+1 {
			return Config{}, fmt.Errorf("config: CLUSTER_SIZE=%d but %d peers configured (expected %d)", size, len(cfg.Peers), size-1)
		}
	}

	return cfg, nil
}

// PeerIDs returns the ids of every peer, in configured order.
func (c Config) PeerIDs() []string {
	ids := make([]string, len(c.Peers))
	for i, p := range c.Peers {
		ids[i] = p.ID
	}
	return ids
}

// AddressOf resolves a peer id to its configured address, or "" if
// unknown.
func (c Config) AddressOf(peerID string) string {
	for _, p := range c.Peers {
		if p.ID == peerID {
			return p.Addr
		}
	}
	return ""
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func parseSeconds(v string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}
