package sui

import (
	"fmt"

	"github.com/fardream/go-bcs/bcs"
)

// The types below mirror the Sui TransactionData V1 layout for bcs.Marshal.
// Enums are structs of pointers with exactly one field set, the field index
// is the variant index. Unit variants point to an empty struct.

type bcsUnit struct{}

type bcsTransactionData struct {
	V1 *bcsTransactionDataV1
}

func (bcsTransactionData) IsBcsEnum() {}

type bcsTransactionDataV1 struct {
	Kind       bcsTransactionKind
	Sender     Address
	GasData    bcsGasData
	Expiration bcsTransactionExpiration
}

type bcsTransactionKind struct {
	ProgrammableTransaction *bcsProgrammableTransaction
}

func (bcsTransactionKind) IsBcsEnum() {}

type bcsProgrammableTransaction struct {
	Inputs   []bcsCallArg
	Commands []bcsCommand
}

type bcsCallArg struct {
	Pure   *[]byte
	Object *bcsObjectArg
}

func (bcsCallArg) IsBcsEnum() {}

type bcsObjectArg struct {
	ImmOrOwnedObject *bcsObjectRef
	SharedObject     *bcsSharedObject
}

func (bcsObjectArg) IsBcsEnum() {}

type bcsObjectRef struct {
	ObjectID ObjectID
	Version  uint64
	// object digests are encoded as vector<u8>
	Digest []byte
}

type bcsSharedObject struct {
	ID                   ObjectID
	InitialSharedVersion uint64
	Mutable              bool
}

type bcsCommand struct {
	MoveCall *bcsMoveCall
}

func (bcsCommand) IsBcsEnum() {}

type bcsMoveCall struct {
	Package       ObjectID
	Module        string
	Function      string
	TypeArguments []bcsUnit
	Arguments     []bcsArgument
}

type bcsArgument struct {
	GasCoin *bcsUnit
	Input   *uint16
}

func (bcsArgument) IsBcsEnum() {}

type bcsGasData struct {
	Payment []bcsObjectRef
	Owner   Address
	Price   uint64
	Budget  uint64
}

type bcsTransactionExpiration struct {
	None  *bcsUnit
	Epoch *uint64
}

func (bcsTransactionExpiration) IsBcsEnum() {}

func newBCSObjectRef(ref ObjectRef) bcsObjectRef {
	return bcsObjectRef{ObjectID: ref.ObjectID, Version: ref.Version, Digest: ref.Digest[:]}
}

func newBCSCallArg(arg CallArg) (bcsCallArg, error) {
	switch {
	case arg.Object != nil && arg.Pure != nil:
		return bcsCallArg{}, fmt.Errorf("argument is both pure and object")
	case arg.Object == nil:
		pure := arg.Pure
		if pure == nil {
			pure = []byte{}
		}
		return bcsCallArg{Pure: &pure}, nil
	case arg.Object.ImmOrOwned != nil:
		ref := newBCSObjectRef(*arg.Object.ImmOrOwned)
		return bcsCallArg{Object: &bcsObjectArg{ImmOrOwnedObject: &ref}}, nil
	default:
		return bcsCallArg{Object: &bcsObjectArg{SharedObject: &bcsSharedObject{
			ID:                   arg.Object.SharedID,
			InitialSharedVersion: arg.Object.InitialSharedVersion,
			Mutable:              arg.Object.Mutable,
		}}}, nil
	}
}

// mustMarshal encodes primitive values, which bcs.Marshal always accepts.
func mustMarshal(v any) []byte {
	b, err := bcs.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("bcs: cannot encode %T: %v", v, err))
	}
	return b
}

// PureBytes returns the BCS encoding of a vector<u8> Move argument.
func PureBytes(b []byte) []byte {
	if b == nil {
		b = []byte{}
	}
	return mustMarshal(b)
}

// PureString returns the BCS encoding of a string Move argument.
func PureString(s string) []byte {
	return mustMarshal(s)
}

// PureU64 returns the BCS encoding of a u64 Move argument.
func PureU64(v uint64) []byte {
	return mustMarshal(v)
}
