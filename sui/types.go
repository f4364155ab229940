package sui

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/vocdoni/rui-backend/util"
)

// AddressLength is the size of addresses and object ids.
const AddressLength = 32

// Address is a Sui account address or object id.
type Address [AddressLength]byte

// ObjectID identifies a ledger object.
type ObjectID = Address

// ParseAddress parses a hex address, with or without the 0x prefix. Short
// forms such as 0x2 are left padded with zeros.
func ParseAddress(s string) (Address, error) {
	var a Address
	h := util.TrimHex(strings.TrimSpace(s))
	if len(h) == 0 || len(h) > 2*AddressLength {
		return a, fmt.Errorf("invalid address length: %q", s)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(a[AddressLength-len(b):], b)
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error. It is meant for
// constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the full 0x prefixed hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(data []byte) error {
	parsed, err := ParseAddress(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Digest is a 32 byte object or transaction digest. It is base58 encoded in
// the JSON-RPC API.
type Digest [32]byte

// ParseDigest decodes a base58 digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := base58.Decode(s)
	if err != nil {
		return d, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("invalid digest length %d", len(b))
	}
	copy(d[:], b)
	return d, nil
}

func (d Digest) String() string {
	return base58.Encode(d[:])
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(data []byte) error {
	parsed, err := ParseDigest(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ObjectRef is a reference to a specific version of an object.
type ObjectRef struct {
	ObjectID ObjectID `json:"objectId"`
	Version  uint64   `json:"version,string"`
	Digest   Digest   `json:"digest"`
}

// OwnerKind is the ownership class of an object.
type OwnerKind int

const (
	OwnerAddress OwnerKind = iota
	OwnerObject
	OwnerShared
	OwnerImmutable
)

// Owner is the decoded owner field of an object.
type Owner struct {
	Kind OwnerKind
	// Address is the owner for OwnerAddress and OwnerObject.
	Address Address
	// InitialSharedVersion is set for OwnerShared.
	InitialSharedVersion uint64
}

// UnmarshalJSON decodes the owner forms the node returns:
// {"AddressOwner": "0x.."}, {"ObjectOwner": "0x.."},
// {"Shared": {"initial_shared_version": n}} and "Immutable".
func (o *Owner) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "Immutable" {
			return fmt.Errorf("unknown owner %q", s)
		}
		*o = Owner{Kind: OwnerImmutable}
		return nil
	}
	var raw struct {
		AddressOwner *Address `json:"AddressOwner"`
		ObjectOwner  *Address `json:"ObjectOwner"`
		Shared       *struct {
			InitialSharedVersion json.RawMessage `json:"initial_shared_version"`
		} `json:"Shared"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.AddressOwner != nil:
		*o = Owner{Kind: OwnerAddress, Address: *raw.AddressOwner}
	case raw.ObjectOwner != nil:
		*o = Owner{Kind: OwnerObject, Address: *raw.ObjectOwner}
	case raw.Shared != nil:
		version, err := parseUint(raw.Shared.InitialSharedVersion)
		if err != nil {
			return fmt.Errorf("invalid initial shared version: %w", err)
		}
		*o = Owner{Kind: OwnerShared, InitialSharedVersion: version}
	default:
		return fmt.Errorf("unknown owner %s", data)
	}
	return nil
}

// MarshalJSON encodes the owner in the node format.
func (o Owner) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OwnerAddress:
		return json.Marshal(map[string]Address{"AddressOwner": o.Address})
	case OwnerObject:
		return json.Marshal(map[string]Address{"ObjectOwner": o.Address})
	case OwnerShared:
		return json.Marshal(map[string]any{"Shared": map[string]uint64{"initial_shared_version": o.InitialSharedVersion}})
	case OwnerImmutable:
		return json.Marshal("Immutable")
	}
	return nil, fmt.Errorf("unknown owner kind %d", o.Kind)
}

// parseUint accepts numbers encoded as JSON numbers or strings, the node
// uses both forms for u64 values.
func parseUint(data json.RawMessage) (uint64, error) {
	s := strings.Trim(string(data), `"`)
	return strconv.ParseUint(s, 10, 64)
}
