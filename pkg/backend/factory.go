// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backend

import (
	"fmt"
	"log/slog"
)

// Config selects and parameterizes a backend variant.
type Config struct {
	// Kind selects the variant. Must be one of the Kind constants.
	Kind Kind

	// WeaviateURL is the Weaviate server URL (e.g. "http://localhost:8080").
	// Required for KindWeaviate, ignored otherwise.
	WeaviateURL string

	// DataDir is the Badger database directory. Required for KindBadger,
	// ignored otherwise.
	DataDir string

	// Dimensions maps namespace names to their vector dimensionality.
	// Required by the local adapters for validation and recall probing.
	Dimensions map[string]int

	// Seed seeds the local adapters' query generators. Zero selects a
	// fixed default so probe runs are reproducible.
	Seed int64

	// Logger for adapter operations. Nil selects slog.Default().
	Logger *slog.Logger
}

// Open resolves the configured variant exactly once.
//
// Description:
//
//	This is the single place in the engine that knows the concrete
//	adapter types. Everything downstream of Open works purely against the
//	Backend interface.
//
// Outputs:
//   - Backend: The opened backend. Callers own Close.
//   - error: ErrUnknownKind for an unrecognized kind, or the adapter's
//     initialization error.
func Open(cfg Config) (Backend, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	switch cfg.Kind {
	case KindWeaviate:
		return openWeaviate(cfg)
	case KindBadger:
		return openBadger(cfg)
	case KindMemory:
		return openMemory(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}
