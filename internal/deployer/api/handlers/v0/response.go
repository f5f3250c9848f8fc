// Package v0 holds the HTTP handlers of the deployer API.
package v0

// Response is a generic wrapper for Huma responses.
type Response[T any] struct {
	Body T
}

// ListBody wraps a collection with its size.
type ListBody[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) ListBody[T] {
	if items == nil {
		items = []T{}
	}
	return ListBody[T]{Items: items, Count: len(items)}
}
