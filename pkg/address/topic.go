package address

import "strings"

// MessageKind is the message-class segment of a topic. The values are the
// exact wire tokens.
type MessageKind string

const (
	KindAny     MessageKind = Wildcard
	KindBirth   MessageKind = "BIRTH"
	KindCommand MessageKind = "CMD"
	KindData    MessageKind = "DATA"
	KindDeath   MessageKind = "DEATH"
)

// ParseMessageKind parses a kind segment against the fixed vocabulary.
func ParseMessageKind(s string) (MessageKind, error) {
	switch k := MessageKind(s); k {
	case KindAny, KindBirth, KindCommand, KindData, KindDeath:
		return k, nil
	default:
		return "", &ParseError{Input: s, Reason: "unknown message kind"}
	}
}

// Topic is an address paired with a message kind under the fixed namespace
// prefix.
type Topic struct {
	Address Address
	Kind    MessageKind
}

// ParseTopic parses "spBv1.0/{group}/{kind}/{node}" or
// "spBv1.0/{group}/{kind}/{node}/{device}". Any other shape, a wrong prefix,
// an unknown kind, or an empty segment is a *ParseError.
func ParseTopic(s string) (Topic, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 4 && len(parts) != 5 {
		return Topic{}, &ParseError{Input: s, Reason: "want 4 or 5 segments"}
	}
	if parts[0] != Prefix {
		return Topic{}, &ParseError{Input: s, Reason: "missing " + Prefix + " prefix"}
	}
	kind, err := ParseMessageKind(parts[2])
	if err != nil {
		return Topic{}, &ParseError{Input: s, Reason: "unknown message kind " + parts[2]}
	}

	addr := parts[1] + "/" + parts[3]
	if len(parts) == 5 {
		addr += "/" + parts[4]
	}
	a, err := Parse(addr)
	if err != nil {
		return Topic{}, &ParseError{Input: s, Reason: "empty segment"}
	}
	return Topic{Address: a, Kind: kind}, nil
}

// String returns the canonical topic string. It is the exact inverse of
// ParseTopic.
func (t Topic) String() string {
	s := Prefix + "/" + t.Address.Group + "/" + string(t.Kind) + "/" + t.Address.Node
	if t.Address.Device != "" {
		s += "/" + t.Address.Device
	}
	return s
}
