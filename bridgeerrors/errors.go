package bridgeerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Bridge (B) Errors
var (
	ErrProvider       = errors.New("B1|ProviderError: Native ledger provider call failed.")
	ErrDecode         = errors.New("B2|DecodeError: Result or event violates the expected encoding.")
	ErrTranslation    = errors.New("B3|TranslationError: Resolution produced no usable result and no fallback applies.")
	ErrNotBridgeEvent = errors.New("B4|NotBridgeEvent: Event was not emitted by the interpreter contract.")
	ErrMalformedEvent = errors.New("B5|MalformedEvent: Event is inconsistent with the bridge encoding.")
	ErrSignature      = errors.New("B6|SignatureError: Transaction signer recovery failed.")
	ErrNotSupported   = errors.New("B7|NotSupported: Operation is not supported by the bridge.")
	ErrEmptyPayload   = errors.New("B8|EmptyPayload: Transaction payload is empty.")
)

var kinds = []error{
	ErrProvider,
	ErrDecode,
	ErrTranslation,
	ErrNotBridgeEvent,
	ErrMalformedEvent,
	ErrSignature,
	ErrNotSupported,
	ErrEmptyPayload,
}

// OpError attaches the failing operation and the offending value to one of
// the bridge error kinds. errors.Is matches both Kind and the cause.
type OpError struct {
	Op    string
	Kind  error
	Value interface{}
	Err   error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(GetErrorName(e.Kind))
	if e.Value != nil {
		fmt.Fprintf(&b, " (value=%v)", e.Value)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New returns an *OpError. value and cause may be nil.
func New(op string, kind error, value interface{}, cause error) error {
	return &OpError{Op: op, Kind: kind, Value: value, Err: cause}
}

// Newf is New with a formatted cause.
func Newf(op string, kind error, value interface{}, format string, args ...interface{}) error {
	return New(op, kind, value, fmt.Errorf(format, args...))
}

// Kind returns the bridge error kind carried by err, or nil.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsCancellation reports whether err stems from a cancelled or expired context.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// JSON-RPC error codes returned to Ethereum clients.
const (
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeServer         = -32000
	CodeNotSupported   = -32004
	CodeProviderFailed = -32010
)

// RPCCode maps err onto the JSON-RPC error code reported to clients.
func RPCCode(err error) int {
	switch Kind(err) {
	case ErrDecode, ErrSignature, ErrEmptyPayload:
		return CodeInvalidParams
	case ErrNotSupported:
		return CodeNotSupported
	case ErrProvider:
		return CodeProviderFailed
	case nil:
		return CodeInternal
	default:
		return CodeServer
	}
}

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if k := Kind(err); k != nil {
		err = k
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorDesc extracts the error description from the error message.
func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	if k := Kind(err); k != nil {
		err = k
	}
	parts := strings.SplitN(err.Error(), ":", 2)
	if len(parts) < 2 {
		return "DESC NOT SET"
	}
	return strings.TrimSpace(parts[1])
}
