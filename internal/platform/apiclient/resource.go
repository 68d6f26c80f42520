package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/referral/referral/pkg/pagination"
)

// List fetches one page from path. The item array is read from itemsKey,
// falling back to "data"; either may also sit inside a "data" object.
func List[T any](ctx context.Context, c *Client, path string, params url.Values, itemsKey string) ([]T, pagination.Meta, error) {
	data, err := c.get(ctx, path, params)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return decodeList[T](data, itemsKey)
}

// Get fetches a single record. The record may be the whole body or sit
// under key or "data".
func Get[T any](ctx context.Context, c *Client, path, key string) (*T, error) {
	data, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](data, key)
}

// Create POSTs body to path and decodes the created record.
func Create[T any](ctx context.Context, c *Client, path, key string, body interface{}) (*T, error) {
	return write[T](ctx, c, http.MethodPost, path, key, body)
}

// Update PUTs body to path and decodes the updated record.
func Update[T any](ctx context.Context, c *Client, path, key string, body interface{}) (*T, error) {
	return write[T](ctx, c, http.MethodPut, path, key, body)
}

// Patch PATCHes body to path and decodes the updated record.
func Patch[T any](ctx context.Context, c *Client, path, key string, body interface{}) (*T, error) {
	return write[T](ctx, c, http.MethodPatch, path, key, body)
}

// Delete issues a DELETE to path.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.send(ctx, http.MethodDelete, path, nil)
	return err
}

func write[T any](ctx context.Context, c *Client, method, path, key string, body interface{}) (*T, error) {
	data, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return decodeOne[T](data, key)
}

type envelope map[string]json.RawMessage

func decodeList[T any](data []byte, itemsKey string) ([]T, pagination.Meta, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("decode list response: %w", err)
	}

	// {"data": {"<key>": [...], "pagination": {...}}}
	if inner, ok := env["data"]; ok && isObject(inner) {
		var nested envelope
		if err := json.Unmarshal(inner, &nested); err == nil {
			if _, has := env["pagination"]; !has {
				if p, ok := nested["pagination"]; ok {
					env["pagination"] = p
				}
			}
			if _, ok := nested[itemsKey]; ok {
				env[itemsKey] = nested[itemsKey]
			}
		}
	}

	raw, ok := env[itemsKey]
	if !ok {
		raw, ok = env["data"]
	}
	if !ok {
		return nil, pagination.Meta{}, fmt.Errorf("decode list response: no %q array", itemsKey)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("decode %s: %w", itemsKey, err)
	}

	var meta pagination.Meta
	if p, ok := env["pagination"]; ok {
		if err := json.Unmarshal(p, &meta); err != nil {
			return nil, pagination.Meta{}, fmt.Errorf("decode pagination: %w", err)
		}
	} else {
		meta = pagination.Meta{Current: 1, Pages: 1, Total: len(items)}
		if len(items) == 0 {
			meta.Pages = 0
		}
	}
	return items, meta, nil
}

func decodeOne[T any](data []byte, key string) (*T, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	raw := json.RawMessage(data)
	if v, ok := env[key]; ok && key != "" && isObject(v) {
		raw = v
	} else if v, ok := env["data"]; ok && isObject(v) {
		raw = v
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &out, nil
}

func isObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// backendMessage extracts {"message": ...} or {"error": ...} from an error body.
func backendMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
