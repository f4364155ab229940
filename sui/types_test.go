package sui

import (
	"encoding/json"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseAddress(t *testing.T) {
	c := qt.New(t)
	a, err := ParseAddress("0x2")
	c.Assert(err, qt.IsNil)
	c.Assert(a[AddressLength-1], qt.Equals, byte(2))
	c.Assert(a.String(), qt.Equals, "0x"+strings.Repeat("0", 63)+"2")

	full := "0x" + strings.Repeat("ab", AddressLength)
	a, err = ParseAddress(full)
	c.Assert(err, qt.IsNil)
	c.Assert(a.String(), qt.Equals, full)

	b, err := ParseAddress(strings.TrimPrefix(full, "0x"))
	c.Assert(err, qt.IsNil)
	c.Assert(b, qt.Equals, a)

	for _, invalid := range []string{"", "0x", "0xzz", full + "00"} {
		_, err := ParseAddress(invalid)
		c.Assert(err, qt.Not(qt.IsNil), qt.Commentf("address %q", invalid))
	}

	var decoded struct {
		ID ObjectID `json:"id"`
	}
	c.Assert(json.Unmarshal([]byte(`{"id":"0x2"}`), &decoded), qt.IsNil)
	c.Assert(decoded.ID, qt.Equals, MustParseAddress("0x02"))
}

func TestDigest(t *testing.T) {
	c := qt.New(t)
	d := Digest{1, 2, 3, 255}
	parsed, err := ParseDigest(d.String())
	c.Assert(err, qt.IsNil)
	c.Assert(parsed, qt.Equals, d)

	_, err = ParseDigest("3mJr7AoUXx2Wqd")
	c.Assert(err, qt.ErrorMatches, "invalid digest length .*")
	_, err = ParseDigest("0OIl")
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestOwnerJSON(t *testing.T) {
	c := qt.New(t)
	addr := MustParseAddress("0x77")
	for _, tc := range []struct {
		in   string
		want Owner
	}{
		{`{"AddressOwner":"0x77"}`, Owner{Kind: OwnerAddress, Address: addr}},
		{`{"ObjectOwner":"0x77"}`, Owner{Kind: OwnerObject, Address: addr}},
		{`{"Shared":{"initial_shared_version":12}}`, Owner{Kind: OwnerShared, InitialSharedVersion: 12}},
		{`{"Shared":{"initial_shared_version":"12"}}`, Owner{Kind: OwnerShared, InitialSharedVersion: 12}},
		{`"Immutable"`, Owner{Kind: OwnerImmutable}},
	} {
		var o Owner
		c.Assert(json.Unmarshal([]byte(tc.in), &o), qt.IsNil, qt.Commentf("owner %s", tc.in))
		c.Assert(o, qt.Equals, tc.want)

		encoded, err := json.Marshal(o)
		c.Assert(err, qt.IsNil)
		var again Owner
		c.Assert(json.Unmarshal(encoded, &again), qt.IsNil)
		c.Assert(again, qt.Equals, o)
	}

	var o Owner
	c.Assert(json.Unmarshal([]byte(`"Nobody"`), &o), qt.ErrorMatches, `unknown owner "Nobody"`)
	c.Assert(json.Unmarshal([]byte(`{"Consensus":{}}`), &o), qt.ErrorMatches, "unknown owner .*")
}

func TestObjectDataJSON(t *testing.T) {
	c := qt.New(t)
	data := `{
		"objectId": "0x5",
		"version": "42",
		"digest": "` + (Digest{4}).String() + `",
		"type": "0x1::semaphore::Group",
		"owner": {"Shared": {"initial_shared_version": 3}},
		"content": {"dataType": "moveObject", "type": "0x1::semaphore::Group", "fields": {"members": []}}
	}`
	var obj ObjectData
	c.Assert(json.Unmarshal([]byte(data), &obj), qt.IsNil)
	c.Assert(obj.Version, qt.Equals, uint64(42))
	c.Assert(obj.Ref(), qt.Equals, ObjectRef{ObjectID: MustParseAddress("0x5"), Version: 42, Digest: Digest{4}})
	c.Assert(obj.Owner.Kind, qt.Equals, OwnerShared)
	c.Assert(string(obj.Content.Fields["members"]), qt.Equals, "[]")

	arg, err := objectCallArg(&obj, false)
	c.Assert(err, qt.IsNil)
	c.Assert(arg.Object.ImmOrOwned, qt.IsNil)
	c.Assert(arg.Object.InitialSharedVersion, qt.Equals, uint64(3))
}
