package domain

import (
	"strings"
	"time"
)

// AddressGroup is a named, reusable list of addresses referenced from the
// target side of policies.
type AddressGroup struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Addresses   []string  `json:"addresses"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks required fields.
func (g AddressGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	for _, a := range g.Addresses {
		if strings.TrimSpace(a) == "" {
			return &ValidationError{Field: "addresses", Reason: "contains an empty address"}
		}
	}
	return nil
}

// DomainGroup is a named, reusable list of domain entries referenced from
// the block side of policies.
type DomainGroup struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Entries     []DomainEntry `json:"entries"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Validate checks required fields and every entry.
func (g DomainGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	for _, e := range g.Entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}
