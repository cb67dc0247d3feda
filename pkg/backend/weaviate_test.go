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
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
)

func TestClassNameFor(t *testing.T) {
	tests := []struct {
		namespace string
		want      string
	}{
		{"docs", "VbDocs"},
		{"my-namespace", "VbMyNamespace"},
		{"snake_case_01", "VbSnakeCase01"},
		{"Already", "VbAlready"},
	}
	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			assert.Equal(t, tt.want, classNameFor(tt.namespace))
		})
	}
}

func TestObjectUUID(t *testing.T) {
	id := objectUUID("VbDocs", "docs-000042")

	assert.True(t, strfmt.IsUUID(string(id)), "weaviate only accepts RFC 4122 object IDs")
	assert.Equal(t, id, objectUUID("VbDocs", "docs-000042"), "derivation is deterministic")
	assert.NotEqual(t, id, objectUUID("VbDocs", "docs-000043"))
	assert.NotEqual(t, id, objectUUID("VbCode", "docs-000042"), "same record ID in another class maps elsewhere")
}

func TestGetString(t *testing.T) {
	m := map[string]interface{}{"text": "hello", "count": 3}
	assert.Equal(t, "hello", getString(m, "text"))
	assert.Equal(t, "", getString(m, "count"))
	assert.Equal(t, "", getString(m, "missing"))
}
