package sui

// Signer holds the credential signing every transaction of the process. It
// is loaded once at startup and never changes.
type Signer interface {
	// Address is the sender of the transactions.
	Address() Address
	// SignTransaction signs the intent digest of the BCS transaction bytes
	// and returns the base64 serialized signature (flag, signature, public
	// key).
	SignTransaction(txBytes []byte) (string, error)
}
