package sui

import "encoding/json"

// GasCoinType is the type of the native coin paying for gas.
const GasCoinType = "0x2::coin::Coin<0x2::sui::SUI>"

// ObjectDataOptions selects the object fields returned by the node.
type ObjectDataOptions struct {
	ShowType    bool `json:"showType,omitempty"`
	ShowOwner   bool `json:"showOwner,omitempty"`
	ShowContent bool `json:"showContent,omitempty"`
}

// ObjectResponseQuery is the query of suix_getOwnedObjects.
type ObjectResponseQuery struct {
	Filter  any                `json:"filter,omitempty"`
	Options *ObjectDataOptions `json:"options,omitempty"`
}

// ObjectResponseError is the error of an object that cannot be returned.
type ObjectResponseError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id,omitempty"`
}

// ObjectData is an object as returned by the node.
type ObjectData struct {
	ObjectID ObjectID    `json:"objectId"`
	Version  uint64      `json:"version,string"`
	Digest   Digest      `json:"digest"`
	Type     string      `json:"type,omitempty"`
	Owner    *Owner      `json:"owner,omitempty"`
	Content  *MoveObject `json:"content,omitempty"`
}

// Ref returns the reference of the object version.
func (o *ObjectData) Ref() ObjectRef {
	return ObjectRef{ObjectID: o.ObjectID, Version: o.Version, Digest: o.Digest}
}

// MoveObject is the parsed content of a Move object.
type MoveObject struct {
	DataType string                     `json:"dataType"`
	Type     string                     `json:"type"`
	Fields   map[string]json.RawMessage `json:"fields"`
}

// ObjectResponse is the response of sui_getObject and the items of
// suix_getOwnedObjects.
type ObjectResponse struct {
	Data  *ObjectData          `json:"data,omitempty"`
	Error *ObjectResponseError `json:"error,omitempty"`
}

// ObjectsPage is a page of suix_getOwnedObjects.
type ObjectsPage struct {
	Data        []ObjectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

// TransactionBlockResponseOptions selects the fields returned after
// executing a transaction.
type TransactionBlockResponseOptions struct {
	ShowEffects bool `json:"showEffects,omitempty"`
}

// ExecutionStatus is the status of an executed transaction.
type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// GasCostSummary is the gas charged to an executed transaction. Values are
// decimal strings.
type GasCostSummary struct {
	ComputationCost         string `json:"computationCost"`
	StorageCost             string `json:"storageCost"`
	StorageRebate           string `json:"storageRebate"`
	NonRefundableStorageFee string `json:"nonRefundableStorageFee"`
}

// TransactionEffects holds the effects of an executed transaction.
type TransactionEffects struct {
	Status  ExecutionStatus `json:"status"`
	GasUsed GasCostSummary  `json:"gasUsed"`
}

// TransactionBlockResponse is the response of sui_executeTransactionBlock.
type TransactionBlockResponse struct {
	Digest  string              `json:"digest"`
	Effects *TransactionEffects `json:"effects,omitempty"`
}

const (
	executionStatusSuccess = "success"
	waitForLocalExecution  = "WaitForLocalExecution"
)

const (
	methodGetObject             = "sui_getObject"
	methodGetOwnedObjects       = "suix_getOwnedObjects"
	methodGetReferenceGasPrice  = "suix_getReferenceGasPrice"
	methodExecuteTransaction    = "sui_executeTransactionBlock"
	defaultOwnedObjectsPageSize = 50
)
