package bridgeerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpErrorMatchesKindAndCause(t *testing.T) {
	err := New("eth_call", ErrProvider, "0xabc", context.Canceled)

	assert.True(t, errors.Is(err, ErrProvider))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrDecode))
	assert.True(t, IsCancellation(err))
	assert.Equal(t, "eth_call: ProviderError (value=0xabc): context canceled", err.Error())

	var op *OpError
	assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &op))
	assert.Equal(t, "eth_call", op.Op)
}

func TestKindAndCodes(t *testing.T) {
	cases := []struct {
		kind error
		code string
		name string
		rpc  int
	}{
		{ErrProvider, "B1", "ProviderError", CodeProviderFailed},
		{ErrDecode, "B2", "DecodeError", CodeInvalidParams},
		{ErrTranslation, "B3", "TranslationError", CodeServer},
		{ErrNotBridgeEvent, "B4", "NotBridgeEvent", CodeServer},
		{ErrMalformedEvent, "B5", "MalformedEvent", CodeServer},
		{ErrSignature, "B6", "SignatureError", CodeInvalidParams},
		{ErrNotSupported, "B7", "NotSupported", CodeNotSupported},
		{ErrEmptyPayload, "B8", "EmptyPayload", CodeInvalidParams},
	}
	for _, c := range cases {
		err := Newf("op", c.kind, nil, "detail %d", 1)
		assert.Equal(t, c.kind, Kind(err))
		assert.Equal(t, c.code, GetErrorCode(err))
		assert.Equal(t, c.name, GetErrorName(c.kind))
		assert.Equal(t, c.rpc, RPCCode(err))
		assert.NotEqual(t, "DESC NOT SET", GetErrorDesc(err))
	}

	plain := errors.New("boom")
	assert.Nil(t, Kind(plain))
	assert.Equal(t, CodeInternal, RPCCode(plain))
	assert.Equal(t, "", GetErrorCode(plain))
}
