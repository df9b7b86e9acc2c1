/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config holds the node's effective runtime settings
// (spec §4.10's collaborators) and the protocol-parameters file format
// every shipped protocol version is loaded from.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trustbloc/sidetree-svc-go/pkg/api/cas"
	"github.com/trustbloc/sidetree-svc-go/pkg/api/protocol"
	"github.com/trustbloc/sidetree-svc-go/pkg/core"
	"github.com/trustbloc/sidetree-svc-go/pkg/download"
	"github.com/trustbloc/sidetree-svc-go/pkg/internal/compression"
	"github.com/trustbloc/sidetree-svc-go/pkg/protocolversion"
	v1_0 "github.com/trustbloc/sidetree-svc-go/pkg/protocolversion/versions/v1_0"
)

// NodeConfig is the node's complete effective configuration.
type NodeConfig struct {
	// Namespace is the DID method namespace this node serves (e.g.
	// "did:sidetree").
	Namespace string `json:"namespace"`

	// DataDir holds the node's durable store files.
	DataDir string `json:"dataDir"`

	// ObservingInterval is the period between Observer ticks. Zero
	// disables the Observer entirely.
	ObservingInterval time.Duration `json:"observingInterval"`

	// BatchingInterval is the period between BatchWriter cuts. Zero
	// disables the BatchWriter entirely.
	BatchingInterval time.Duration `json:"batchingInterval"`

	// MaxConcurrentDownloads bounds outstanding CAS reads shared by the
	// Observer and the DownloadManager.
	MaxConcurrentDownloads int64 `json:"maxConcurrentDownloads"`

	// ProtocolParametersPath points at the JSON array of per-version
	// protocol.Protocol parameter sets this node runs.
	ProtocolParametersPath string `json:"protocolParametersPath"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `json:"logLevel"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

// DefaultConfig returns the node's out-of-the-box settings.
func DefaultConfig() NodeConfig {
	return NodeConfig{
		Namespace:              "did:sidetree",
		DataDir:                "./data",
		ObservingInterval:      60 * time.Second,
		BatchingInterval:       time.Second,
		MaxConcurrentDownloads: 10,
		ProtocolParametersPath: "./protocol-parameters.json",
		LogLevel:               "info",
	}
}

// ValidateConfig rejects a NodeConfig that Core could not run with.
func ValidateConfig(cfg NodeConfig) error {
	if strings.TrimSpace(cfg.Namespace) == "" {
		return errors.New("namespace is required")
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("dataDir is required")
	}

	if strings.TrimSpace(cfg.ProtocolParametersPath) == "" {
		return errors.New("protocolParametersPath is required")
	}

	if cfg.ObservingInterval < 0 {
		return errors.New("observingInterval must be >= 0")
	}

	if cfg.BatchingInterval < 0 {
		return errors.New("batchingInterval must be >= 0")
	}

	if cfg.MaxConcurrentDownloads <= 0 {
		return errors.New("maxConcurrentDownloads must be > 0")
	}

	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return errors.Errorf("invalid logLevel %q", cfg.LogLevel)
	}

	return nil
}

// Print JSON-encodes cfg for -dry-run/startup-banner output.
func Print(cfg NodeConfig) ([]byte, error) {
	return json.MarshalIndent(cfg, "", "  ")
}

// CoreConfig projects the subset of NodeConfig core.Config needs.
func CoreConfig(cfg NodeConfig) core.Config {
	return core.Config{
		Namespace:              cfg.Namespace,
		ObservingInterval:      cfg.ObservingInterval,
		BatchingInterval:       cfg.BatchingInterval,
		MaxConcurrentDownloads: cfg.MaxConcurrentDownloads,
	}
}

// LoadProtocolVersions reads the JSON array of protocol.Protocol
// parameter sets at path and builds the protocolversion.Manager every
// shipped version binds into (mirroring the sidetree
// "protocol-parameters.json" convention: one object per GenesisTime
// the parameters change at). Every entry is built with the version 1.0
// component factory, the only protocol version this node currently
// ships.
func LoadProtocolVersions(path string, casClient cas.Client, dl *download.Manager) (*protocolversion.Manager, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, "read protocol parameters file")
	}

	var protocols []protocol.Protocol
	if err := json.Unmarshal(raw, &protocols); err != nil {
		return nil, errors.Wrap(err, "parse protocol parameters file")
	}

	if len(protocols) == 0 {
		return nil, errors.New("protocol parameters file has no entries")
	}

	reg := compression.New(compression.WithDefaultAlgorithms())

	versions := make([]protocolversion.Version, len(protocols))
	for i, p := range protocols {
		versions[i] = v1_0.New(p, casClient, dl, reg)
	}

	return protocolversion.New(versions)
}
