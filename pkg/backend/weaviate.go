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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// weaviateBackend maps namespaces onto Weaviate classes, one class per
// namespace, with externally supplied vectors (vectorizer "none").
type weaviateBackend struct {
	client *weaviate.Client
	logger *slog.Logger
}

func openWeaviate(cfg Config) (*weaviateBackend, error) {
	if cfg.WeaviateURL == "" {
		return nil, fmt.Errorf("%w: weaviate backend requires a URL", ErrPermanent)
	}
	u, err := url.Parse(cfg.WeaviateURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid weaviate URL %q", ErrPermanent, cfg.WeaviateURL)
	}

	client := weaviate.New(weaviate.Config{
		Host:   u.Host,
		Scheme: u.Scheme,
	})
	return &weaviateBackend{client: client, logger: cfg.Logger}, nil
}

func (b *weaviateBackend) Kind() Kind { return KindWeaviate }

func (b *weaviateBackend) Close() error { return nil }

func (b *weaviateBackend) Namespace(name string) Namespace {
	return &weaviateNamespace{
		backend:   b,
		name:      name,
		className: classNameFor(name),
	}
}

// classNameFor maps a namespace onto a Weaviate class name. Class names
// must start with an uppercase letter and stay alphanumeric, so the
// namespace is prefixed and stripped of anything else.
func classNameFor(namespace string) string {
	var sb strings.Builder
	sb.WriteString("Vb")
	upperNext := true
	for _, r := range namespace {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upperNext = true
			continue
		}
		if upperNext {
			sb.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// objectUUID derives the Weaviate object ID for a logical record ID.
// Weaviate only accepts RFC 4122 UUIDs as object IDs, so the record ID
// is hashed into one deterministically; re-upserting the same record
// overwrites the same object. The logical ID stays on the recordId
// property.
func objectUUID(className, recordID string) strfmt.UUID {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(className+"/"+recordID))
	return strfmt.UUID(id.String())
}

// mapError translates client failures into the backend taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var wce *fault.WeaviateClientError
	if errors.As(err, &wce) {
		if wce.StatusCode >= 400 {
			return &StatusError{Code: wce.StatusCode, Message: wce.Msg}
		}
		// Connection-level failure with no usable status. Worth retrying.
		return fmt.Errorf("%w: %s", ErrTransient, wce.Error())
	}
	return err
}

type weaviateNamespace struct {
	backend   *weaviateBackend
	name      string
	className string
}

// ensureSchema creates the namespace's class if absent. Idempotent.
func (n *weaviateNamespace) ensureSchema(ctx context.Context) error {
	client := n.backend.client

	_, err := client.Schema().ClassGetter().WithClassName(n.className).Do(ctx)
	if err == nil {
		return nil
	}

	class := &models.Class{
		Class:       n.className,
		Description: fmt.Sprintf("vectorbench namespace %s", n.name),
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:         "recordId",
				DataType:     []string{"text"},
				Tokenization: "field",
			},
			{
				Name:         "text",
				DataType:     []string{"text"},
				Tokenization: "word",
			},
		},
	}

	n.backend.logger.Info("creating weaviate class",
		slog.String("namespace", n.name),
		slog.String("class", n.className),
	)
	if err := client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("creating class %s: %w", n.className, mapError(err))
	}
	return nil
}

func (n *weaviateNamespace) Upsert(ctx context.Context, records []Record, firstBatch bool) error {
	if firstBatch {
		if err := n.ensureSchema(ctx); err != nil {
			return err
		}
	}

	objects := make([]*models.Object, len(records))
	for i, rec := range records {
		objects[i] = &models.Object{
			Class:  n.className,
			ID:     objectUUID(n.className, rec.ID),
			Vector: models.C11yVector(rec.Vector),
			Properties: map[string]interface{}{
				"recordId": rec.ID,
				"text":     rec.Text,
			},
		}
	}

	resp, err := n.backend.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch upsert: %w", mapError(err))
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("%w: batch object rejected: %s",
				ErrPermanent, obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

func (n *weaviateNamespace) Query(ctx context.Context, vec []float32, topK int, includeVector bool) ([]Result, error) {
	client := n.backend.client

	additional := []graphql.Field{{Name: "id"}, {Name: "distance"}}
	if includeVector {
		additional = append(additional, graphql.Field{Name: "vector"})
	}
	fields := []graphql.Field{
		{Name: "recordId"},
		{Name: "text"},
		{Name: "_additional", Fields: additional},
	}

	nearVector := client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	resp, err := client.GraphQL().Get().
		WithClassName(n.className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("near-vector query: %w", mapError(err))
	}
	if len(resp.Errors) > 0 {
		msg := resp.Errors[0].Message
		if strings.Contains(msg, "no graphql provider") || strings.Contains(msg, "could not find class") {
			return nil, fmt.Errorf("%w: namespace %s: %s", ErrNotFound, n.name, msg)
		}
		return nil, fmt.Errorf("%w: query error: %s", ErrPermanent, msg)
	}

	data, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: namespace %s", ErrNotFound, n.name)
	}
	objects, ok := data[n.className].([]interface{})
	if !ok || len(objects) == 0 {
		return nil, fmt.Errorf("%w: namespace %s is empty", ErrNotFound, n.name)
	}

	results := make([]Result, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		r := Result{
			ID:   getString(m, "recordId"),
			Text: getString(m, "text"),
		}
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			if id := getString(add, "id"); r.ID == "" {
				r.ID = id
			}
			if dist, ok := add["distance"].(float64); ok {
				// Cosine distance back to similarity.
				r.Score = float32(1 - dist)
			}
			if raw, ok := add["vector"].([]interface{}); ok {
				v := make([]float32, 0, len(raw))
				for _, c := range raw {
					if f, ok := c.(float64); ok {
						v = append(v, float32(f))
					}
				}
				r.Vector = v
			}
		}
		results = append(results, r)
	}
	return results, nil
}

func (n *weaviateNamespace) FetchByID(ctx context.Context, id string) (*Result, error) {
	objects, err := n.backend.client.Data().ObjectsGetter().
		WithClassName(n.className).
		WithID(string(objectUUID(n.className, id))).
		WithVector().
		Do(ctx)
	if err != nil {
		mapped := mapError(err)
		if IsNotFound(mapped) {
			return nil, fmt.Errorf("%w: record %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("fetch by id: %w", mapped)
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("%w: record %s", ErrNotFound, id)
	}

	obj := objects[0]
	r := &Result{ID: id, Vector: obj.Vector}
	if props, ok := obj.Properties.(map[string]interface{}); ok {
		r.Text = getString(props, "text")
	}
	return r, nil
}

func (n *weaviateNamespace) Stats(ctx context.Context) (*NamespaceStats, error) {
	resp, err := n.backend.client.GraphQL().Aggregate().
		WithClassName(n.className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate count: %w", mapError(err))
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: namespace %s: %s", ErrNotFound, n.name, resp.Errors[0].Message)
	}

	count := int64(0)
	if agg, ok := resp.Data["Aggregate"].(map[string]interface{}); ok {
		if rows, ok := agg[n.className].([]interface{}); ok && len(rows) > 0 {
			if row, ok := rows[0].(map[string]interface{}); ok {
				if meta, ok := row["meta"].(map[string]interface{}); ok {
					if c, ok := meta["count"].(float64); ok {
						count = int64(c)
					}
				}
			}
		}
	}
	return &NamespaceStats{ApproxRowCount: count}, nil
}

// DeleteAll drops and recreates the class: Weaviate batch deletion needs a
// where filter, while dropping the class removes every object in one call.
func (n *weaviateNamespace) DeleteAll(ctx context.Context) error {
	err := n.backend.client.Schema().ClassDeleter().WithClassName(n.className).Do(ctx)
	if err != nil {
		mapped := mapError(err)
		if IsNotFound(mapped) {
			return nil
		}
		return fmt.Errorf("deleting class %s: %w", n.className, mapped)
	}
	return nil
}

// getString safely extracts a string from a decoded JSON map.
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
