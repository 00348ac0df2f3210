package sorobanrpc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Transaction statuses reported by the gateway.
const (
	StatusPending       = "PENDING"
	StatusDuplicate     = "DUPLICATE"
	StatusTryAgainLater = "TRY_AGAIN_LATER"
	StatusError         = "ERROR"
	StatusSuccess       = "SUCCESS"
	StatusNotFound      = "NOT_FOUND"
	StatusFailed        = "FAILED"
)

const (
	jsonRPCVersion      = "2.0"
	contentTypeJSON     = "application/json"
	friendbotAddressKey = "addr"

	methodBuild          = "buildInvocation"
	methodSimulate       = "simulateInvocation"
	methodSend           = "sendTransaction"
	methodGetTransaction = "getTransaction"
	methodGetAccount     = "getAccount"
)

// Argument types understood by the gateway when encoding contract arguments.
const (
	ArgumentString  = "string"
	ArgumentAddress = "address"
	ArgumentU32     = "u32"
	ArgumentU64     = "u64"
	ArgumentI128    = "i128"
)

// Argument is one typed contract argument.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// String encodes a string argument.
func String(value string) Argument {
	return Argument{Type: ArgumentString, Value: value}
}

// Address encodes an account address argument.
func Address(value string) Argument {
	return Argument{Type: ArgumentAddress, Value: value}
}

// U32 encodes an unsigned 32-bit argument.
func U32(value uint32) Argument {
	return Argument{Type: ArgumentU32, Value: strconv.FormatUint(uint64(value), 10)}
}

// U64 encodes an unsigned 64-bit argument.
func U64(value uint64) Argument {
	return Argument{Type: ArgumentU64, Value: strconv.FormatUint(value, 10)}
}

// I128 encodes a signed 128-bit argument from an int64.
func I128(value int64) Argument {
	return Argument{Type: ArgumentI128, Value: strconv.FormatInt(value, 10)}
}

// Invocation is a contract call.
type Invocation struct {
	Source     string     `json:"source,omitempty"`
	ContractID string     `json:"contractId"`
	Method     string     `json:"method"`
	Args       []Argument `json:"args"`
}

// SendResult is the gateway's answer to a submission.
type SendResult struct {
	Status         string `json:"status"`
	Hash           string `json:"hash"`
	ErrorResultXDR string `json:"errorResultXdr,omitempty"`
}

// TransactionResult is the gateway's view of a submitted transaction.
type TransactionResult struct {
	Status        string          `json:"status"`
	ResultMetaXDR string          `json:"resultMetaXdr,omitempty"`
	ReturnValue   json.RawMessage `json:"returnValue,omitempty"`
}

// AccountBalance is one balance line of a ledger account.
type AccountBalance struct {
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code,omitempty"`
	AssetIssuer string `json:"asset_issuer,omitempty"`
	Balance     string `json:"balance"`
}

// Account is a ledger account.
type Account struct {
	ID       string           `json:"id"`
	Sequence string           `json:"sequence"`
	Balances []AccountBalance `json:"balances"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error formats the RPC error.
func (rpcError *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", rpcError.Code, rpcError.Message)
}

type buildResult struct {
	TransactionXDR string `json:"transactionXdr"`
}

type simulateResult struct {
	Result json.RawMessage `json:"result"`
}

type sendParams struct {
	Transaction string `json:"transaction"`
}

type hashParams struct {
	Hash string `json:"hash"`
}

type accountParams struct {
	AccountID string `json:"accountId"`
}
