package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BlockKind identifies what a policy blocks for its targeted addresses.
type BlockKind uint8

const (
	// BlockFullInternet blocks everything.
	BlockFullInternet BlockKind = iota
	// BlockDomains blocks a literal list of domain entries.
	BlockDomains
	// BlockGroup blocks the entries of one domain group.
	BlockGroup
	// BlockGroups blocks the union of several domain groups.
	BlockGroups
)

// String returns the wire name of the block kind.
func (k BlockKind) String() string {
	switch k {
	case BlockFullInternet:
		return "full_internet"
	case BlockDomains:
		return "specific_domains"
	case BlockGroup:
		return "domain_group"
	case BlockGroups:
		return "multiple_domain_groups"
	default:
		return fmt.Sprintf("BlockKind(%d)", k)
	}
}

// Block is the closed tagged variant mirror of Target for the blocking side.
// The zero value is BlockFullInternet.
type Block struct {
	kind     BlockKind
	entries  []DomainEntry
	groupID  string
	groupIDs []string
}

// FullInternetBlock blocks all domains.
func FullInternetBlock() Block {
	return Block{kind: BlockFullInternet}
}

// DomainsBlock blocks a literal list of domain entries.
func DomainsBlock(entries []DomainEntry) (Block, error) {
	if len(entries) == 0 {
		return Block{}, &ValidationError{Field: "block", Reason: "domain list must not be empty"}
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return Block{}, err
		}
	}
	return Block{kind: BlockDomains, entries: append([]DomainEntry(nil), entries...)}, nil
}

// DomainGroupBlock blocks the entries of one domain group.
func DomainGroupBlock(groupID string) (Block, error) {
	if strings.TrimSpace(groupID) == "" {
		return Block{}, &ValidationError{Field: "block", Reason: "group id must not be empty"}
	}
	return Block{kind: BlockGroup, groupID: groupID}, nil
}

// DomainGroupsBlock blocks the union of several domain groups.
func DomainGroupsBlock(groupIDs []string) (Block, error) {
	if len(groupIDs) == 0 {
		return Block{}, &ValidationError{Field: "block", Reason: "group id list must not be empty"}
	}
	for _, id := range groupIDs {
		if strings.TrimSpace(id) == "" {
			return Block{}, &ValidationError{Field: "block", Reason: "group id list contains an empty id"}
		}
	}
	return Block{kind: BlockGroups, groupIDs: append([]string(nil), groupIDs...)}, nil
}

// Kind returns the block kind.
func (b Block) Kind() BlockKind { return b.kind }

// Entries returns the literal domain entries (BlockDomains only).
func (b Block) Entries() []DomainEntry { return b.entries }

// GroupID returns the group reference payload (BlockGroup only).
func (b Block) GroupID() string { return b.groupID }

// GroupIDs returns the multi-group reference payload (BlockGroups only).
func (b Block) GroupIDs() []string { return b.groupIDs }

// ReferencesGroup reports whether the block references the given domain
// group, directly or through the multi-group list.
func (b Block) ReferencesGroup(groupID string) bool {
	switch b.kind {
	case BlockGroup:
		return b.groupID == groupID
	case BlockGroups:
		for _, id := range b.groupIDs {
			if id == groupID {
				return true
			}
		}
	}
	return false
}

// blockDoc is the stored JSON shape of a Block.
type blockDoc struct {
	Type     string        `json:"type"`
	Domains  []DomainEntry `json:"domains,omitempty"`
	GroupID  string        `json:"group_id,omitempty"`
	GroupIDs []string      `json:"group_ids,omitempty"`
}

// MarshalJSON writes the tag plus only the payload matching it.
func (b Block) MarshalJSON() ([]byte, error) {
	doc := blockDoc{Type: b.kind.String()}
	switch b.kind {
	case BlockDomains:
		doc.Domains = b.entries
	case BlockGroup:
		doc.GroupID = b.groupID
	case BlockGroups:
		doc.GroupIDs = b.groupIDs
	}
	return json.Marshal(doc)
}

// UnmarshalJSON rebuilds the variant through its constructor.
func (b *Block) UnmarshalJSON(data []byte) error {
	var doc blockDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var (
		parsed Block
		err    error
	)
	switch doc.Type {
	case "full_internet":
		parsed = FullInternetBlock()
	case "specific_domains":
		parsed, err = DomainsBlock(doc.Domains)
	case "domain_group":
		parsed, err = DomainGroupBlock(doc.GroupID)
	case "multiple_domain_groups":
		parsed, err = DomainGroupsBlock(doc.GroupIDs)
	default:
		return &ValidationError{Field: "block", Reason: fmt.Sprintf("unsupported block type %q", doc.Type)}
	}
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
