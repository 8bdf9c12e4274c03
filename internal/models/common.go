// internal/models/common.go
package models

import (
	"time"
)

// Base model with common fields
type BaseModel struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enums
type SearchSource string

const (
	SearchSourceRemote SearchSource = "remote"
	SearchSourceStore  SearchSource = "store"
)

// FallbackReason records why a search was answered from the local store
// instead of the upstream API.
type FallbackReason string

const (
	FallbackTransportFailure FallbackReason = "transport_failure"
	FallbackParseFailure     FallbackReason = "parse_failure"
	FallbackNoResults        FallbackReason = "no_results"
	FallbackNoUsableItems    FallbackReason = "no_usable_items"
)

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}
