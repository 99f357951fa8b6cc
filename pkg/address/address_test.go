package address_test

import (
	"errors"
	"testing"

	"github.com/plantmesh/plantmesh-go/pkg/address"
)

func TestParse_valid(t *testing.T) {
	cases := []struct {
		input  string
		group  string
		node   string
		device string
	}{
		{input: "FactoryPlus/Line1", group: "FactoryPlus", node: "Line1"},
		{input: "FactoryPlus/Line1/Press1", group: "FactoryPlus", node: "Line1", device: "Press1"},
		{input: "+/+/+", group: "+", node: "+", device: "+"},
		{input: "Cell-3/edge_node/PLC.01", group: "Cell-3", node: "edge_node", device: "PLC.01"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			a, err := address.Parse(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.Group != tc.group {
				t.Errorf("Group: got %q, want %q", a.Group, tc.group)
			}
			if a.Node != tc.node {
				t.Errorf("Node: got %q, want %q", a.Node, tc.node)
			}
			if a.Device != tc.device {
				t.Errorf("Device: got %q, want %q", a.Device, tc.device)
			}
			if a.IsDevice() != (tc.device != "") {
				t.Errorf("IsDevice: got %v", a.IsDevice())
			}
		})
	}
}

func TestParse_invalid(t *testing.T) {
	cases := []string{
		"FactoryPlus",               // one segment
		"a/b/c/d",                   // four segments
		"",                          // empty
		"/Line1",                    // empty group
		"FactoryPlus//Press1",       // empty node
		"FactoryPlus/Line1/",        // trailing slash → empty device
		"FactoryPlus/Line1/Press1/", // trailing slash after device
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc, func(t *testing.T) {
			_, err := address.Parse(tc)
			if err == nil {
				t.Fatalf("expected error for %q but got nil", tc)
			}
			var perr *address.ParseError
			if !errors.As(err, &perr) {
				t.Errorf("expected *ParseError, got %T", err)
			}
		})
	}
}

func TestAddress_String_roundTrip(t *testing.T) {
	for _, raw := range []string{"FactoryPlus/Line1", "FactoryPlus/Line1/Press1"} {
		a, err := address.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := a.String(); got != raw {
			t.Errorf("String(): got %q, want %q", got, raw)
		}
	}
}

func TestAddress_Matches(t *testing.T) {
	cases := []struct {
		pattern   string
		candidate string
		want      bool
	}{
		// Exact matches.
		{"FactoryPlus/Line1", "FactoryPlus/Line1", true},
		{"FactoryPlus/Line1/Press1", "FactoryPlus/Line1/Press1", true},
		{"FactoryPlus/Line1", "FactoryPlus/Line2", false},
		{"FactoryPlus/Line1/Press1", "FactoryPlus/Line1/Press2", false},

		// Node pattern never matches a device and vice versa.
		{"FactoryPlus/Line1", "FactoryPlus/Line1/Press1", false},
		{"FactoryPlus/Line1/Press1", "FactoryPlus/Line1", false},

		// Group/node wildcards.
		{"+/Line1", "FactoryPlus/Line1", true},
		{"FactoryPlus/+", "FactoryPlus/Line1", true},
		{"+/+", "FactoryPlus/Line1", true},
		{"+/+", "FactoryPlus/Line1/Press1", false},

		// Device wildcard matches any device, never a node.
		{"FactoryPlus/Line1/+", "FactoryPlus/Line1/Press1", true},
		{"FactoryPlus/Line1/+", "FactoryPlus/Line1", false},
		{"+/+/+", "FactoryPlus/Line1/Press1", true},
		{"+/+/+", "FactoryPlus/Line1", false},

		// Wildcards are literal on the candidate side.
		{"FactoryPlus/Line1", "+/Line1", false},
		{"FactoryPlus/Line1/Press1", "FactoryPlus/Line1/+", false},
		{"+/+", "+/+", true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.pattern+" vs "+tc.candidate, func(t *testing.T) {
			p := address.MustParse(tc.pattern)
			c := address.MustParse(tc.candidate)
			if got := p.Matches(c); got != tc.want {
				t.Errorf("Matches: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAddress_ParentNode(t *testing.T) {
	dev := address.MustParse("FactoryPlus/Line1/Press1")
	parent := dev.ParentNode()
	if parent.String() != "FactoryPlus/Line1" {
		t.Errorf("ParentNode: got %q", parent)
	}

	node := address.MustParse("FactoryPlus/Line1")
	if node.ParentNode() != node {
		t.Errorf("ParentNode of a node should be itself, got %q", node.ParentNode())
	}
}

func TestAddress_ChildDevice(t *testing.T) {
	node := address.MustParse("FactoryPlus/Line1")

	dev, err := node.ChildDevice("Press1")
	if err != nil {
		t.Fatalf("ChildDevice: %v", err)
	}
	if dev.String() != "FactoryPlus/Line1/Press1" {
		t.Errorf("ChildDevice: got %q", dev)
	}
	if !dev.IsChildOf(node) {
		t.Error("expected device to be a child of its node")
	}
	if dev.IsChildOf(address.MustParse("FactoryPlus/Line2")) {
		t.Error("device must not be a child of a different node")
	}

	if _, err := dev.ChildDevice("Nested"); err == nil {
		t.Error("expected error for child of a device address")
	}
	if _, err := node.ChildDevice(""); err == nil {
		t.Error("expected error for empty device name")
	}
}

func TestNodeDevice_constructors(t *testing.T) {
	if _, err := address.Node("FactoryPlus", ""); err == nil {
		t.Error("expected error for empty node segment")
	}
	if _, err := address.Device("FactoryPlus", "Line1", ""); err == nil {
		t.Error("expected error for empty device segment")
	}
	a, err := address.Device("FactoryPlus", "Line1", "Press1")
	if err != nil {
		t.Fatal(err)
	}
	if !a.IsDevice() {
		t.Error("expected a device address")
	}
}

func TestAddress_textMarshalling(t *testing.T) {
	a := address.MustParse("FactoryPlus/Line1/Press1")
	text, err := a.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var back address.Address
	if err := back.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if back != a {
		t.Errorf("round trip: got %q, want %q", back, a)
	}
	if err := back.UnmarshalText([]byte("nonsense")); err == nil {
		t.Error("expected error for malformed text")
	}
}

func TestMustParse_panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustParse to panic on a malformed address")
		}
	}()
	address.MustParse("only-one-segment")
}
