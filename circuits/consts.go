package circuits

// SerializedFieldSize is the size in bytes of a serialized BN254 scalar.
const SerializedFieldSize = 32 // bytes
