package sui

import (
	"fmt"

	"github.com/fardream/go-bcs/bcs"
	"golang.org/x/crypto/blake2b"
)

const (
	transactionDataDigestTag = "TransactionData::"
	transactionIntentScope   = 0
	transactionIntentVersion = 0
	transactionIntentAppID   = 0
)

// CallArg is an input of a programmable transaction: pure bytes or an object.
type CallArg struct {
	// Pure holds the BCS encoded value of a pure argument.
	Pure []byte
	// Object is set for object arguments.
	Object *ObjectArg
}

// ObjectArg is an object input, passed by reference if owned or immutable,
// or by its initial shared version if shared.
type ObjectArg struct {
	// ImmOrOwned is set for owned and immutable objects.
	ImmOrOwned *ObjectRef
	// Shared objects are identified by id and initial shared version.
	SharedID             ObjectID
	InitialSharedVersion uint64
	Mutable              bool
}

// PureArg returns a pure call argument.
func PureArg(bcs []byte) CallArg {
	return CallArg{Pure: bcs}
}

// OwnedObjectArg returns an argument for an owned or immutable object.
func OwnedObjectArg(ref ObjectRef) CallArg {
	return CallArg{Object: &ObjectArg{ImmOrOwned: &ref}}
}

// SharedObjectArg returns an argument for a shared object.
func SharedObjectArg(id ObjectID, initialSharedVersion uint64, mutable bool) CallArg {
	return CallArg{Object: &ObjectArg{
		SharedID:             id,
		InitialSharedVersion: initialSharedVersion,
		Mutable:              mutable,
	}}
}

// MoveCall is a call of package::module::function with positional
// arguments. Every argument becomes its own transaction input, in order.
type MoveCall struct {
	Package   ObjectID
	Module    string
	Function  string
	Arguments []CallArg
}

// NewMoveCall returns the call of pkg::module::function with the arguments
// provided. Arguments are positional: their order must match the Move
// function parameters, nothing here checks it.
func NewMoveCall(pkg ObjectID, module, function string, args ...CallArg) *MoveCall {
	return &MoveCall{Package: pkg, Module: module, Function: function, Arguments: args}
}

// Name returns module::function.
func (m *MoveCall) Name() string {
	return m.Module + "::" + m.Function
}

// GasData selects the coin paying the transaction and its price and budget.
type GasData struct {
	Payment []ObjectRef
	Owner   Address
	Price   uint64
	Budget  uint64
}

// TransactionData is an unsigned programmable transaction with a single
// move call.
type TransactionData struct {
	Sender Address
	Call   *MoveCall
	Gas    GasData
}

// Bytes returns the BCS encoding of the transaction, the value that is
// signed and submitted.
func (tx *TransactionData) Bytes() ([]byte, error) {
	if tx.Call == nil {
		return nil, fmt.Errorf("transaction without move call")
	}
	if len(tx.Call.Arguments) > 1<<16-1 {
		return nil, fmt.Errorf("too many arguments: %d", len(tx.Call.Arguments))
	}
	inputs := make([]bcsCallArg, len(tx.Call.Arguments))
	arguments := make([]bcsArgument, len(tx.Call.Arguments))
	for i, arg := range tx.Call.Arguments {
		input, err := newBCSCallArg(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		inputs[i] = input
		// every argument is its own input
		index := uint16(i)
		arguments[i] = bcsArgument{Input: &index}
	}
	payment := make([]bcsObjectRef, len(tx.Gas.Payment))
	for i, ref := range tx.Gas.Payment {
		payment[i] = newBCSObjectRef(ref)
	}
	call := &bcsMoveCall{
		Package:       tx.Call.Package,
		Module:        tx.Call.Module,
		Function:      tx.Call.Function,
		TypeArguments: []bcsUnit{},
		Arguments:     arguments,
	}
	gas := bcsGasData{
		Payment: payment,
		Owner:   tx.Gas.Owner,
		Price:   tx.Gas.Price,
		Budget:  tx.Gas.Budget,
	}
	program := &bcsProgrammableTransaction{
		Inputs:   inputs,
		Commands: []bcsCommand{{MoveCall: call}},
	}
	data := bcsTransactionData{V1: &bcsTransactionDataV1{
		Kind:       bcsTransactionKind{ProgrammableTransaction: program},
		Sender:     tx.Sender,
		GasData:    gas,
		Expiration: bcsTransactionExpiration{None: &bcsUnit{}},
	}}
	b, err := bcs.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("cannot encode transaction data: %w", err)
	}
	return b, nil
}

// Digest returns the transaction digest, the hash that identifies it once
// executed.
func (tx *TransactionData) Digest() (Digest, error) {
	b, err := tx.Bytes()
	if err != nil {
		return Digest{}, err
	}
	return TransactionDigest(b), nil
}

// TransactionDigest computes the digest of BCS encoded transaction data.
func TransactionDigest(txBytes []byte) Digest {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(transactionDataDigestTag))
	h.Write(txBytes)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// SigningDigest returns the message a transaction signature signs: the
// blake2b hash of the transaction intent followed by the transaction bytes.
func SigningDigest(txBytes []byte) [32]byte {
	msg := make([]byte, 0, 3+len(txBytes))
	msg = append(msg, transactionIntentScope, transactionIntentVersion, transactionIntentAppID)
	msg = append(msg, txBytes...)
	return blake2b.Sum256(msg)
}
