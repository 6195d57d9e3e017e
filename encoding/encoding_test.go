package encoding

import (
	"encoding/base64"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpcsubscriptions/ledger"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"base64", Base64},
		{"jsonParsed", JSONParsed},
		{"base58", Base58},
		{"", Base58},
		{"bogus", Base58},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseKind(tt.in), tt.in)
	}
}

func TestAccountEncodingBase58AndBase64(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	acc := ledger.Account{Data: data, Owner: "someProgram"}

	got, err := Account(acc, Base58)
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(data), got)

	got, err = Account(acc, Base64)
	require.NoError(t, err)
	pair, ok := got.([2]string)
	require.True(t, ok)
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), pair[0])
	assert.Equal(t, "base64", pair[1])
}

func TestAccountEncodingJSONParsedFallsBackWithoutParser(t *testing.T) {
	data := []byte{1, 2, 3}
	acc := ledger.Account{Data: data, Owner: "someOtherProgram"}

	got, err := Account(acc, JSONParsed)
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(data), got, "jsonParsed falls back to base58 when no parser is registered for the owner")
}

func TestAccountEncodingJSONParsedSPLToken(t *testing.T) {
	owner := SPLTokenProgramID
	acc := ledger.Account{Owner: owner, Data: make([]byte, tokenAccountLen)}

	got, err := Account(acc, JSONParsed)
	require.NoError(t, err)
	parsed, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "spl-token", parsed["program"])
	assert.Equal(t, tokenAccountLen, parsed["space"])

	info, ok := parsed["parsed"].(map[string]any)["info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, owner, info["owner"], "owner must pass through as its existing base58 pubkey string, not be re-encoded")
}

func TestAccountEncodingJSONParsedSPLTokenTooShortIsAnEncodeError(t *testing.T) {
	acc := ledger.Account{Owner: SPLTokenProgramID, Data: make([]byte, tokenAccountLen-1)}

	_, err := Account(acc, JSONParsed)
	assert.Error(t, err, "data shorter than a real SPL-token account layout must be rejected, not silently parsed")
}

func TestApplySlice(t *testing.T) {
	data := []byte("0123456789")

	assert.Equal(t, data, ApplySlice(data, nil))
	assert.Equal(t, []byte("234"), ApplySlice(data, &Slice{Offset: 2, Length: 3}))
	assert.Equal(t, []byte("89"), ApplySlice(data, &Slice{Offset: 8, Length: 100}), "clamps to the data's end")
	assert.Nil(t, ApplySlice(data, &Slice{Offset: 100, Length: 1}), "offset past the end yields nothing")
}
