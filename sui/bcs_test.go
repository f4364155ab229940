package sui

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/fardream/go-bcs/bcs"
	qt "github.com/frankban/quicktest"
)

func TestVectorLengthPrefix(t *testing.T) {
	c := qt.New(t)
	// vector lengths are ULEB128
	for _, tc := range []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16384, []byte{0x80, 0x80, 0x01}},
	} {
		encoded := PureBytes(make([]byte, tc.n))
		c.Assert(encoded[:len(tc.want)], qt.DeepEquals, tc.want, qt.Commentf("length %d", tc.n))
		c.Assert(encoded, qt.HasLen, len(tc.want)+tc.n)
	}
}

func TestPureValues(t *testing.T) {
	c := qt.New(t)
	c.Assert(PureBytes([]byte{0xaa, 0xbb}), qt.DeepEquals, []byte{0x02, 0xaa, 0xbb})
	c.Assert(PureBytes(nil), qt.DeepEquals, []byte{0x00})
	c.Assert(PureString("yes"), qt.DeepEquals, []byte{0x03, 'y', 'e', 's'})
	c.Assert(PureU64(258), qt.DeepEquals, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0})

	long := bytes.Repeat([]byte{7}, 200)
	encoded := PureBytes(long)
	c.Assert(encoded[:2], qt.DeepEquals, []byte{0xc8, 0x01})
	c.Assert(encoded[2:], qt.DeepEquals, long)
}

func TestTransactionDataBytes(t *testing.T) {
	c := qt.New(t)
	pkg := MustParseAddress("0xabc")
	shared := MustParseAddress("0x5")
	sender := MustParseAddress("0x1234")
	coin := ObjectRef{ObjectID: MustParseAddress("0x99"), Version: 7, Digest: Digest{1, 2, 3}}

	tx := &TransactionData{
		Sender: sender,
		Call: NewMoveCall(pkg, "board", "add_answer",
			PureArg(PureBytes([]byte{0xaa, 0xbb})),
			SharedObjectArg(shared, 3, true),
		),
		Gas: GasData{Payment: []ObjectRef{coin}, Owner: sender, Price: 1000, Budget: 5_000_000},
	}
	got, err := tx.Bytes()
	c.Assert(err, qt.IsNil)

	u64 := func(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }
	var want []byte
	want = append(want, 0x00, 0x00, 0x02)
	// pure input
	want = append(want, 0x00, 0x03, 0x02, 0xaa, 0xbb)
	// shared object input
	want = append(want, 0x01, 0x01)
	want = append(want, shared[:]...)
	want = append(want, u64(3)...)
	want = append(want, 0x01)
	// one move call
	want = append(want, 0x01, 0x00)
	want = append(want, pkg[:]...)
	want = append(want, 0x05)
	want = append(want, "board"...)
	want = append(want, 0x0a)
	want = append(want, "add_answer"...)
	want = append(want, 0x00, 0x02, 0x01, 0x00, 0x00, 0x01, 0x01, 0x00)
	want = append(want, sender[:]...)
	// gas data
	want = append(want, 0x01)
	want = append(want, coin.ObjectID[:]...)
	want = append(want, u64(7)...)
	want = append(want, 0x20)
	want = append(want, coin.Digest[:]...)
	want = append(want, sender[:]...)
	want = append(want, u64(1000)...)
	want = append(want, u64(5_000_000)...)
	want = append(want, 0x00)
	c.Assert(got, qt.DeepEquals, want)

	digest, err := tx.Digest()
	c.Assert(err, qt.IsNil)
	c.Assert(digest, qt.Equals, TransactionDigest(got))
	c.Assert(SigningDigest(got), qt.Not(qt.Equals), [32]byte(digest))
	c.Assert(tx.Call.Name(), qt.Equals, "board::add_answer")
}

func TestTransactionDataInvalid(t *testing.T) {
	c := qt.New(t)
	_, err := (&TransactionData{}).Bytes()
	c.Assert(err, qt.ErrorMatches, "transaction without move call")

	ref := ObjectRef{}
	arg := CallArg{Pure: []byte{0}, Object: &ObjectArg{ImmOrOwned: &ref}}
	_, err = (&TransactionData{Call: NewMoveCall(Address{}, "m", "f", arg)}).Bytes()
	c.Assert(err, qt.ErrorMatches, "argument 0: argument is both pure and object")
}

func TestOwnedObjectArgEncoding(t *testing.T) {
	c := qt.New(t)
	ref := ObjectRef{ObjectID: MustParseAddress("0x1"), Version: 2, Digest: Digest{9}}
	arg, err := newBCSCallArg(OwnedObjectArg(ref))
	c.Assert(err, qt.IsNil)
	b, err := bcs.Marshal(arg)
	c.Assert(err, qt.IsNil)
	c.Assert(b, qt.HasLen, 2+32+8+1+32)
	c.Assert(b[:2], qt.DeepEquals, []byte{0x01, 0x00})
	c.Assert(b[2:34], qt.DeepEquals, ref.ObjectID[:])
	c.Assert(b[34:42], qt.DeepEquals, []byte{2, 0, 0, 0, 0, 0, 0, 0})
	c.Assert(b[42], qt.Equals, byte(32))
	c.Assert(b[43:], qt.DeepEquals, ref.Digest[:])
}

func TestEmptyPureArgEncoding(t *testing.T) {
	c := qt.New(t)
	arg, err := newBCSCallArg(CallArg{})
	c.Assert(err, qt.IsNil)
	b, err := bcs.Marshal(arg)
	c.Assert(err, qt.IsNil)
	c.Assert(b, qt.DeepEquals, []byte{0x00, 0x00})
}
