package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TargetKind identifies which addresses a policy applies to.
type TargetKind uint8

const (
	// TargetAll applies the policy to every address on the network.
	TargetAll TargetKind = iota
	// TargetSingle applies the policy to one address.
	TargetSingle
	// TargetMultiple applies the policy to a literal address list.
	TargetMultiple
	// TargetGroup applies the policy to the members of one address group.
	TargetGroup
	// TargetGroups applies the policy to the union of several address groups.
	TargetGroups
)

// String returns the wire name of the target kind.
func (k TargetKind) String() string {
	switch k {
	case TargetAll:
		return "all"
	case TargetSingle:
		return "single_address"
	case TargetMultiple:
		return "multiple_addresses"
	case TargetGroup:
		return "address_group"
	case TargetGroups:
		return "multiple_address_groups"
	default:
		return fmt.Sprintf("TargetKind(%d)", k)
	}
}

// Target is a closed tagged variant: the payload carried is fixed by the
// kind, so a "single_address policy carrying a list" cannot be constructed.
// The zero value is TargetAll.
type Target struct {
	kind      TargetKind
	address   string
	addresses []string
	groupID   string
	groupIDs  []string
}

// AllAddressesTarget targets every address.
func AllAddressesTarget() Target {
	return Target{kind: TargetAll}
}

// SingleAddressTarget targets one address.
func SingleAddressTarget(addr string) (Target, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return Target{}, &ValidationError{Field: "target", Reason: "address must not be empty"}
	}
	return Target{kind: TargetSingle, address: addr}, nil
}

// MultipleAddressesTarget targets a literal list of addresses.
func MultipleAddressesTarget(addrs []string) (Target, error) {
	if len(addrs) == 0 {
		return Target{}, &ValidationError{Field: "target", Reason: "address list must not be empty"}
	}
	clean := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			return Target{}, &ValidationError{Field: "target", Reason: "address list contains an empty address"}
		}
		clean = append(clean, a)
	}
	return Target{kind: TargetMultiple, addresses: clean}, nil
}

// AddressGroupTarget targets the members of one address group.
func AddressGroupTarget(groupID string) (Target, error) {
	if strings.TrimSpace(groupID) == "" {
		return Target{}, &ValidationError{Field: "target", Reason: "group id must not be empty"}
	}
	return Target{kind: TargetGroup, groupID: groupID}, nil
}

// AddressGroupsTarget targets the union of several address groups.
func AddressGroupsTarget(groupIDs []string) (Target, error) {
	if len(groupIDs) == 0 {
		return Target{}, &ValidationError{Field: "target", Reason: "group id list must not be empty"}
	}
	for _, id := range groupIDs {
		if strings.TrimSpace(id) == "" {
			return Target{}, &ValidationError{Field: "target", Reason: "group id list contains an empty id"}
		}
	}
	return Target{kind: TargetGroups, groupIDs: append([]string(nil), groupIDs...)}, nil
}

// Kind returns the target kind.
func (t Target) Kind() TargetKind { return t.kind }

// Address returns the single address payload (TargetSingle only).
func (t Target) Address() string { return t.address }

// Addresses returns the literal address list payload (TargetMultiple only).
func (t Target) Addresses() []string { return t.addresses }

// GroupID returns the group reference payload (TargetGroup only).
func (t Target) GroupID() string { return t.groupID }

// GroupIDs returns the multi-group reference payload (TargetGroups only).
func (t Target) GroupIDs() []string { return t.groupIDs }

// ReferencesGroup reports whether the target references the given address
// group, directly or through the multi-group list.
func (t Target) ReferencesGroup(groupID string) bool {
	switch t.kind {
	case TargetGroup:
		return t.groupID == groupID
	case TargetGroups:
		for _, id := range t.groupIDs {
			if id == groupID {
				return true
			}
		}
	}
	return false
}

// targetDoc is the stored JSON shape of a Target.
type targetDoc struct {
	Type      string   `json:"type"`
	Address   string   `json:"address,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
	GroupID   string   `json:"group_id,omitempty"`
	GroupIDs  []string `json:"group_ids,omitempty"`
}

// MarshalJSON writes the tag plus only the payload matching it.
func (t Target) MarshalJSON() ([]byte, error) {
	doc := targetDoc{Type: t.kind.String()}
	switch t.kind {
	case TargetSingle:
		doc.Address = t.address
	case TargetMultiple:
		doc.Addresses = t.addresses
	case TargetGroup:
		doc.GroupID = t.groupID
	case TargetGroups:
		doc.GroupIDs = t.groupIDs
	}
	return json.Marshal(doc)
}

// UnmarshalJSON rebuilds the variant through its constructor, so a document
// whose payload does not match its tag is rejected rather than half-loaded.
func (t *Target) UnmarshalJSON(data []byte) error {
	var doc targetDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var (
		parsed Target
		err    error
	)
	switch doc.Type {
	case "all":
		parsed = AllAddressesTarget()
	case "single_address":
		parsed, err = SingleAddressTarget(doc.Address)
	case "multiple_addresses":
		parsed, err = MultipleAddressesTarget(doc.Addresses)
	case "address_group":
		parsed, err = AddressGroupTarget(doc.GroupID)
	case "multiple_address_groups":
		parsed, err = AddressGroupsTarget(doc.GroupIDs)
	default:
		return &ValidationError{Field: "target", Reason: fmt.Sprintf("unsupported target type %q", doc.Type)}
	}
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
