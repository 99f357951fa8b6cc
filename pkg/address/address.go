// Package address implements the structured addressing scheme used on the
// mesh's telemetry namespace.
//
// Address format: {group}/{node}[/{device}]
// Topic format:   spBv1.0/{group}/{kind}/{node}[/{device}]
//
// Examples:
//
//	FactoryPlus/Line1           (node address)
//	FactoryPlus/Line1/Press1    (device address)
//	spBv1.0/FactoryPlus/DATA/Line1/Press1
//
// Any segment may be the wildcard "+". Wildcards only take effect on the
// pattern side of Matches: a pattern segment "+" accepts any value, and a
// pattern device "+" accepts any device but never a plain node.
package address

import (
	"fmt"
	"strings"
)

// Prefix is the fixed namespace prefix for every topic on the mesh.
const Prefix = "spBv1.0"

// Wildcard is the segment that matches any value in a pattern.
const Wildcard = "+"

// ParseError describes a malformed address or topic string. Parse functions
// in this package fail with a *ParseError and never return partial values.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}

// Address identifies a node or a device below a node. A node address has an
// empty Device; group and node (and device, when present) are never empty in
// an Address produced by this package.
type Address struct {
	Group  string // top-level group, e.g. "FactoryPlus"
	Node   string // edge node within the group, e.g. "Line1"
	Device string // device below the node; empty for node addresses
}

// Node constructs a node-level address.
func Node(group, node string) (Address, error) {
	if group == "" || node == "" {
		return Address{}, &ParseError{Input: group + "/" + node, Reason: "empty segment"}
	}
	return Address{Group: group, Node: node}, nil
}

// Device constructs a device-level address.
func Device(group, node, device string) (Address, error) {
	if group == "" || node == "" || device == "" {
		return Address{}, &ParseError{Input: group + "/" + node + "/" + device, Reason: "empty segment"}
	}
	return Address{Group: group, Node: node, Device: device}, nil
}

// Parse parses "group/node" or "group/node/device". Any other segment count,
// or any empty segment, is a *ParseError.
func Parse(s string) (Address, error) {
	parts := strings.Split(s, "/")
	for _, p := range parts {
		if p == "" {
			return Address{}, &ParseError{Input: s, Reason: "empty segment"}
		}
	}
	switch len(parts) {
	case 2:
		return Address{Group: parts[0], Node: parts[1]}, nil
	case 3:
		return Address{Group: parts[0], Node: parts[1], Device: parts[2]}, nil
	default:
		return Address{}, &ParseError{Input: s, Reason: "want 2 or 3 segments"}
	}
}

// MustParse parses an address and panics on error. Useful in tests and
// program init.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the canonical "group/node" or "group/node/device" form.
// It is the exact inverse of Parse.
func (a Address) String() string {
	if a.Device == "" {
		return a.Group + "/" + a.Node
	}
	return a.Group + "/" + a.Node + "/" + a.Device
}

// IsDevice reports whether a addresses a device rather than a node.
func (a Address) IsDevice() bool {
	return a.Device != ""
}

// Matches reports whether candidate falls within the pattern a. Matching is
// asymmetric: wildcards in a take effect, wildcards in candidate are treated
// as literal text. A pattern device "+" accepts any device address under the
// matched node but never the node itself.
func (a Address) Matches(candidate Address) bool {
	wild := func(pattern, value string) bool {
		return pattern == value || pattern == Wildcard
	}
	device := a.Device == candidate.Device ||
		(a.Device == Wildcard && candidate.Device != "")
	return wild(a.Group, candidate.Group) && wild(a.Node, candidate.Node) && device
}

// ParentNode returns the node-level address for a. For a node address this
// is the address itself.
func (a Address) ParentNode() Address {
	return Address{Group: a.Group, Node: a.Node}
}

// ChildDevice returns the address of the named device below a node address.
// It fails on a device address: devices do not nest.
func (a Address) ChildDevice(device string) (Address, error) {
	if a.IsDevice() {
		return Address{}, fmt.Errorf("device address %q cannot have child devices", a)
	}
	if device == "" {
		return Address{}, fmt.Errorf("empty device name under %q", a)
	}
	return Address{Group: a.Group, Node: a.Node, Device: device}, nil
}

// IsChildOf reports whether a's parent node equals parent.
func (a Address) IsChildOf(parent Address) bool {
	return a.ParentNode() == parent
}

// Topic returns the topic for messages of the given kind at this address.
func (a Address) Topic(kind MessageKind) Topic {
	return Topic{Address: a, Kind: kind}
}

// MarshalText encodes the address in its canonical string form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the canonical string form in place.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
