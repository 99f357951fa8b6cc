package address_test

import (
	"testing"

	"github.com/plantmesh/plantmesh-go/pkg/address"
)

func TestParseTopic_valid(t *testing.T) {
	cases := []struct {
		input string
		addr  string
		kind  address.MessageKind
	}{
		{
			input: "spBv1.0/FactoryPlus/DATA/Line1",
			addr:  "FactoryPlus/Line1",
			kind:  address.KindData,
		},
		{
			input: "spBv1.0/FactoryPlus/DATA/Line1/Press1",
			addr:  "FactoryPlus/Line1/Press1",
			kind:  address.KindData,
		},
		{
			input: "spBv1.0/FactoryPlus/BIRTH/Line1",
			addr:  "FactoryPlus/Line1",
			kind:  address.KindBirth,
		},
		{
			input: "spBv1.0/FactoryPlus/CMD/Line1/Press1",
			addr:  "FactoryPlus/Line1/Press1",
			kind:  address.KindCommand,
		},
		{
			input: "spBv1.0/+/+/+",
			addr:  "+/+",
			kind:  address.KindAny,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			topic, err := address.ParseTopic(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := topic.Address.String(); got != tc.addr {
				t.Errorf("Address: got %q, want %q", got, tc.addr)
			}
			if topic.Kind != tc.kind {
				t.Errorf("Kind: got %q, want %q", topic.Kind, tc.kind)
			}
		})
	}
}

func TestParseTopic_invalid(t *testing.T) {
	cases := []string{
		"spBv1.0/FactoryPlus/DATA",        // three segments
		"spBv1.0/FactoryPlus/DATA/a/b/c",  // six segments
		"spAv1.0/FactoryPlus/DATA/Line1",  // wrong prefix
		"FactoryPlus/DATA/Line1/Press1",   // missing prefix
		"spBv1.0/FactoryPlus/NDATA/Line1", // unknown kind
		"spBv1.0//DATA/Line1",             // empty group
		"spBv1.0/FactoryPlus/DATA/Line1/", // empty device
		"",
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc, func(t *testing.T) {
			if _, err := address.ParseTopic(tc); err == nil {
				t.Errorf("expected error for %q but got nil", tc)
			}
		})
	}
}

func TestTopic_String_roundTrip(t *testing.T) {
	raws := []string{
		"spBv1.0/FactoryPlus/DATA/Line1/Press1",
		"spBv1.0/FactoryPlus/DEATH/Line1",
		"spBv1.0/+/+/+/+",
	}
	for _, raw := range raws {
		topic, err := address.ParseTopic(raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := topic.String(); got != raw {
			t.Errorf("String(): got %q, want %q", got, raw)
		}
	}
}

func TestAddress_Topic(t *testing.T) {
	a := address.MustParse("FactoryPlus/Line1/Press1")
	topic := a.Topic(address.KindBirth)
	if got := topic.String(); got != "spBv1.0/FactoryPlus/BIRTH/Line1/Press1" {
		t.Errorf("Topic: got %q", got)
	}

	node := address.MustParse("FactoryPlus/Line1")
	if got := node.Topic(address.KindAny).String(); got != "spBv1.0/FactoryPlus/+/Line1" {
		t.Errorf("Topic: got %q", got)
	}
}

func TestParseMessageKind(t *testing.T) {
	for _, s := range []string{"+", "BIRTH", "CMD", "DATA", "DEATH"} {
		k, err := address.ParseMessageKind(s)
		if err != nil {
			t.Fatalf("ParseMessageKind(%q): %v", s, err)
		}
		if string(k) != s {
			t.Errorf("kind: got %q, want %q", k, s)
		}
	}
	if _, err := address.ParseMessageKind("COMMAND"); err == nil {
		t.Error("expected error for unknown kind token")
	}
}
