package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDomainEntry(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		wantName string
		wantKind DomainEntryKind
		wantErr  bool
	}{
		{
			name:     "exact domain",
			pattern:  "ads.example.com",
			wantName: "ads.example.com",
			wantKind: EntryExact,
		},
		{
			name:     "wildcard domain",
			pattern:  "*.tracker.example.com",
			wantName: "tracker.example.com",
			wantKind: EntryWildcard,
		},
		{
			name:     "uppercase and trailing dot are canonicalized",
			pattern:  "ADS.Example.COM.",
			wantName: "ads.example.com",
			wantKind: EntryExact,
		},
		{
			name:     "surrounding whitespace",
			pattern:  "  ads.example.com  ",
			wantName: "ads.example.com",
			wantKind: EntryExact,
		},
		{
			name:    "empty pattern",
			pattern: "",
			wantErr: true,
		},
		{
			name:    "bare wildcard",
			pattern: "*.",
			wantErr: true,
		},
		{
			name:    "wildcard over a bare public suffix",
			pattern: "*.co.uk",
			wantErr: true,
		},
		{
			name:    "embedded wildcard",
			pattern: "ads.*.example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseDomainEntry(tt.pattern)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %+v", tt.pattern, e)
				}
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.Name != tt.wantName {
				t.Errorf("name = %q, want %q", e.Name, tt.wantName)
			}
			if e.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", e.Kind, tt.wantKind)
			}
		})
	}
}

func TestDomainEntry_Matches(t *testing.T) {
	tests := []struct {
		name  string
		entry DomainEntry
		qname string
		want  bool
	}{
		{
			name:  "exact match",
			entry: DomainEntry{Name: "ads.example.com", Kind: EntryExact},
			qname: "ads.example.com",
			want:  true,
		},
		{
			name:  "exact does not match subdomain",
			entry: DomainEntry{Name: "example.com", Kind: EntryExact},
			qname: "www.example.com",
			want:  false,
		},
		{
			name:  "wildcard matches apex",
			entry: DomainEntry{Name: "example.com", Kind: EntryWildcard},
			qname: "example.com",
			want:  true,
		},
		{
			name:  "wildcard matches deep subdomain",
			entry: DomainEntry{Name: "example.com", Kind: EntryWildcard},
			qname: "a.b.example.com",
			want:  true,
		},
		{
			name:  "wildcard does not match suffix collision",
			entry: DomainEntry{Name: "example.com", Kind: EntryWildcard},
			qname: "notexample.com",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Matches(tt.qname); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.qname, got, tt.want)
			}
		})
	}
}

func TestDomainEntry_JSONRoundTrip(t *testing.T) {
	entries := []DomainEntry{
		{Name: "ads.example.com", Kind: EntryExact},
		{Name: "tracker.example.com", Kind: EntryWildcard},
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `["ads.example.com","*.tracker.example.com"]` {
		t.Errorf("unexpected encoding: %s", raw)
	}
	var back []DomainEntry
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 2 || back[0] != entries[0] || back[1] != entries[1] {
		t.Errorf("round trip mismatch: %+v", back)
	}
}
