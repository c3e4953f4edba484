package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// TopicLength is the size of a relay routing tag in bytes.
	TopicLength = 4
	// VaspCodeLength is the size of a VASP code in bytes.
	VaspCodeLength = 4
)

// Topic is a relay-network routing tag.
type Topic [TopicLength]byte

// ParseTopic decodes a hex topic, with or without a 0x prefix.
func ParseTopic(s string) (Topic, error) {
	var t Topic
	b, err := decodeFixedHex(s, TopicLength)
	if err != nil {
		return t, fmt.Errorf("topic %q: %w", s, err)
	}
	copy(t[:], b)
	return t, nil
}

// String returns the 0x-prefixed hex form of the topic.
func (t Topic) String() string { return hexutil.Encode(t[:]) }

// IsZero reports whether the topic was never assigned.
func (t Topic) IsZero() bool { return t == Topic{} }

// MarshalText encodes the topic as 0x-prefixed hex.
func (t Topic) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses a hex topic of exactly TopicLength bytes.
func (t *Topic) UnmarshalText(b []byte) error {
	parsed, err := ParseTopic(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// VaspCode identifies a VASP. It is the last four bytes of the VASP's
// on-chain address and doubles as the VASP's handshake topic.
type VaspCode [VaspCodeLength]byte

// ParseVaspCode decodes an 8 character hex VASP code.
func ParseVaspCode(s string) (VaspCode, error) {
	var c VaspCode
	b, err := decodeFixedHex(s, VaspCodeLength)
	if err != nil {
		return c, fmt.Errorf("vasp code %q: %w", s, err)
	}
	copy(c[:], b)
	return c, nil
}

// VaspCodeFromAddress takes the trailing bytes of an on-chain address.
func VaspCodeFromAddress(addr common.Address) VaspCode {
	var c VaspCode
	copy(c[:], addr[common.AddressLength-VaspCodeLength:])
	return c
}

// VaspCodeFromTopic is the inverse of VaspCode.Topic.
func VaspCodeFromTopic(t Topic) VaspCode { return VaspCode(t) }

// Topic returns the handshake topic owned by the VASP.
func (c VaspCode) Topic() Topic { return Topic(c) }

// MatchesAddress reports whether addr ends with the code.
func (c VaspCode) MatchesAddress(addr common.Address) bool {
	return VaspCodeFromAddress(addr) == c
}

// String returns the code as 8 lowercase hex characters.
func (c VaspCode) String() string { return hex.EncodeToString(c[:]) }

// IsZero reports whether the code was never assigned.
func (c VaspCode) IsZero() bool { return c == VaspCode{} }

// MarshalText encodes the code as bare hex.
func (c VaspCode) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText parses a hex VASP code.
func (c *VaspCode) UnmarshalText(b []byte) error {
	parsed, err := ParseVaspCode(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// EncryptionKind selects the relay key primitive for a topic.
type EncryptionKind int

const (
	// Asymmetric uses a public/private key pair.
	Asymmetric EncryptionKind = iota
	// Symmetric uses a shared symmetric key.
	Symmetric
)

func (k EncryptionKind) String() string {
	switch k {
	case Asymmetric:
		return "asymmetric"
	case Symmetric:
		return "symmetric"
	default:
		return fmt.Sprintf("EncryptionKind(%d)", int(k))
	}
}

// Role is the side a session plays in a transfer.
type Role string

const (
	RoleOriginator  Role = "originator"
	RoleBeneficiary Role = "beneficiary"
)

// String returns the string form of the role.
func (r Role) String() string { return string(r) }

func decodeFixedHex(s string, n int) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*n {
		return nil, fmt.Errorf("want %d hex characters, got %d", 2*n, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return b, nil
}
