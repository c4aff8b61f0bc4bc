package api

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Transport is the subset of the HTTP client the collaborators need.
type Transport interface {
	GetJSON(ctx context.Context, path string, query url.Values, target any) error
	PostJSON(ctx context.Context, path string, body, target any) error
}

// Item is a single resource as returned by the server.
type Item map[string]any

// Page is a server-side page of items.
type Page struct {
	Content       []Item `json:"content"`
	TotalElements int64  `json:"totalElements"`
	TotalPages    int    `json:"totalPages"`
	Number        int    `json:"number"`
	Size          int    `json:"size"`
}

// ListOptions controls paging and filtering of list endpoints.
// Zero values are omitted from the query.
type ListOptions struct {
	Page    int
	Size    int
	Sort    string
	Filters map[string]string
}

// Query encodes the options as URL query parameters.
func (o ListOptions) Query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Size > 0 {
		q.Set("size", strconv.Itoa(o.Size))
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	for k, v := range o.Filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// Connectors are the external systems the server can sync with.
var Connectors = []string{"asana", "linear", "github"}

// PMConnectors are the connectors with sync operations.
var PMConnectors = []string{"asana", "linear"}

func checkConnector(name string, allowed []string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if slices.Contains(allowed, name) {
		return name, nil
	}
	return "", fmt.Errorf("unknown connector %q (valid: %s)", name, strings.Join(allowed, ", "))
}

func pathID(id int64) string {
	return strconv.FormatInt(id, 10)
}
