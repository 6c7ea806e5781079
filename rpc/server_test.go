package rpc

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/colorfulnotion/evmbridge/bridge"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/native/memprovider"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"github.com/nsf/jsondiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

const testChainID = 1337

var (
	testInterpreter = felt.MustHex("0x7ea7e2")
	testToken       = felt.MustHex("0x70ce")
)

func newTestServer(t *testing.T) (*httptest.Server, *memprovider.Devnet) {
	t.Helper()
	d := memprovider.NewDevnet(testInterpreter, testToken)
	client, err := bridge.NewClient(d, bridge.Config{
		InterpreterAddress: testInterpreter,
		NativeTokenAddress: testToken,
		ChainID:            testChainID,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(NewHandler(client, "evm-bridge/test")).Handler())
	t.Cleanup(srv.Close)
	return srv, d
}

func post(t *testing.T, url, body string) []byte {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return out
}

// assertJSON checks that got holds at least the fields of want.
func assertJSON(t *testing.T, want string, got []byte) {
	t.Helper()
	opts := jsondiff.DefaultConsoleOptions()
	diff, explain := jsondiff.Compare(got, []byte(want), &opts)
	if diff != jsondiff.FullMatch && diff != jsondiff.SupersetMatch {
		t.Fatalf("response does not match:\n%s", explain)
	}
}

// assertJSONExact fails with a readable delta when got differs from want.
// Both sides must be JSON objects.
func assertJSONExact(t *testing.T, want string, got []byte) {
	t.Helper()
	delta, err := gojsondiff.New().Compare([]byte(want), got)
	require.NoError(t, err)
	if delta.Modified() {
		var left map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(want), &left))
		text, _ := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{ShowArrayIndex: true}).Format(delta)
		t.Fatalf("response differs:\n%s", text)
	}
}

func result(t *testing.T, body []byte, dst interface{}) {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Nil(t, resp.Error, "unexpected error %v", resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, dst))
}

func TestMetadataMethods(t *testing.T) {
	srv, _ := newTestServer(t)

	assertJSONExact(t, `{"jsonrpc":"2.0","id":1,"result":"0x539"}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_chainId","params":[],"id":1}`))
	assertJSONExact(t, `{"jsonrpc":"2.0","id":"a","result":"1337"}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"net_version","id":"a"}`))
	assertJSONExact(t, `{"jsonrpc":"2.0","id":2,"result":"0x0"}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_blockNumber","params":[],"id":2}`))
	assertJSONExact(t, `{"jsonrpc":"2.0","id":3,"result":false}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_syncing","params":[],"id":3}`))
	assertJSONExact(t, `{"jsonrpc":"2.0","id":4,"result":"0x1"}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_gasPrice","params":[],"id":4}`))
	assertJSONExact(t, `{"jsonrpc":"2.0","id":5,"result":"0x0"}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_maxPriorityFeePerGas","params":[],"id":5}`))
}

func TestFeeHistoryResponse(t *testing.T) {
	srv, _ := newTestServer(t)
	got := post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_feeHistory","params":[4,"0x64",[]],"id":1}`)
	assertJSONExact(t, `{"jsonrpc":"2.0","id":1,"result":{
		"oldestBlock":"0x60",
		"baseFeePerGas":["0x1","0x1","0x1","0x1","0x1"],
		"gasUsedRatio":[0.9,0.9,0.9,0.9]}}`, got)
}

func TestBatch(t *testing.T) {
	srv, _ := newTestServer(t)
	got := post(t, srv.URL, `[
		{"jsonrpc":"2.0","method":"eth_chainId","params":[],"id":1},
		{"jsonrpc":"2.0","method":"eth_mining","params":[],"id":2},
		{"jsonrpc":"2.0","method":"eth_estimateGas","params":[{"to":"0x0000000000000000000000000000000000000001"}],"id":3}
	]`)
	assertJSON(t, `[
		{"jsonrpc":"2.0","id":1,"result":"0x539"},
		{"jsonrpc":"2.0","id":2,"error":{"code":-32601}},
		{"jsonrpc":"2.0","id":3,"error":{"code":-32004,"data":"B7"}}
	]`, got)

	assertJSON(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32600}}`, post(t, srv.URL, `[]`))
	assertJSON(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700}}`, post(t, srv.URL, `{"jsonrpc":`))
}

func TestErrorCodes(t *testing.T) {
	srv, _ := newTestServer(t)

	// missing address
	assertJSON(t, `{"id":1,"error":{"code":-32602,"data":"B2"}}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_getBalance","params":[],"id":1}`))
	// unknown transaction
	assertJSON(t, `{"id":2,"error":{"code":-32010,"data":"B1"}}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_getTransactionReceipt","params":["0x00000000000000000000000000000000000000000000000000000000000000aa"],"id":2}`))
	// no native transaction has a hash above the field modulus
	for _, method := range []string{"eth_getTransactionReceipt", "eth_getTransactionByHash"} {
		assertJSONExact(t, `{"jsonrpc":"2.0","id":5,"result":null}`,
			post(t, srv.URL, `{"jsonrpc":"2.0","method":"`+method+`","params":["0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"],"id":5}`))
	}
	// not a payload
	assertJSON(t, `{"id":3,"error":{"code":-32602,"data":"B8"}}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_sendRawTransaction","params":["0x"],"id":3}`))
	assertJSON(t, `{"id":4,"error":{"code":-32602}}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_chainId","params":{"a":1},"id":4}`))

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestBlockByNumber(t *testing.T) {
	srv, _ := newTestServer(t)
	got := post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_getBlockByNumber","params":["0x0",false],"id":1}`)
	assertJSON(t, `{"jsonrpc":"2.0","id":1,"result":{
		"hash":"0x0000000000000000000000000000000000000000000000000000000000001000",
		"number":"0x0",
		"gasLimit":"0x1c9c380",
		"baseFeePerGas":"0x1",
		"sha3Uncles":"0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347",
		"uncles":[],
		"transactions":[]}}`, got)

	got = post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_getBlockTransactionCountByHash","params":["0x0000000000000000000000000000000000000000000000000000000000001000"],"id":2}`)
	assertJSONExact(t, `{"jsonrpc":"2.0","id":2,"result":"0x0"}`, got)
}

func TestSendAndReceipt(t *testing.T) {
	srv, d := newTestServer(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	d.Deploy(from, nil, big.NewInt(1_000_000))

	to := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	chainID := big.NewInt(testChainID)
	tx, err := types.SignNewTx(key, types.LatestSignerForChainID(chainID), &types.DynamicFeeTx{
		ChainID:   chainID,
		GasTipCap: big.NewInt(0),
		GasFeeCap: big.NewInt(1),
		Gas:       21_000,
		To:        &to,
		Value:     big.NewInt(1),
	})
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	var hash common.Hash
	result(t, post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_sendRawTransaction","params":["`+hexutil.Encode(raw)+`"],"id":1}`), &hash)
	assert.NotEqual(t, common.Hash{}, hash)

	// pending: receipt is null, transaction has no block
	assertJSONExact(t, `{"jsonrpc":"2.0","id":2,"result":null}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_getTransactionReceipt","params":["`+hash.Hex()+`"],"id":2}`))
	assertJSON(t, `{"result":{"blockHash":null,"from":"`+strings.ToLower(from.Hex())+`"}}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_getTransactionByHash","params":["`+hash.Hex()+`"],"id":3}`))

	d.Seal(1700000000)

	var receipt bridge.Receipt
	result(t, post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_getTransactionReceipt","params":["`+hash.Hex()+`"],"id":4}`), &receipt)
	assert.Equal(t, hash, receipt.TransactionHash)
	assert.Equal(t, uint64(1), uint64(receipt.Status))
	assert.Equal(t, uint64(1), uint64(receipt.BlockNumber))
	assert.Equal(t, from, receipt.From)
	assert.Empty(t, receipt.Logs)

	assertJSONExact(t, `{"jsonrpc":"2.0","id":5,"result":"0x1"}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_getTransactionCount","params":["`+from.Hex()+`","latest"],"id":5}`))
	assertJSON(t, `{"result":{"hash":"`+hash.Hex()+`","transactionIndex":"0x0","blockNumber":"0x1"}}`,
		post(t, srv.URL, `{"jsonrpc":"2.0","method":"eth_getTransactionByBlockNumberAndIndex","params":["latest","0x0"],"id":6}`))
}

func TestWebSocket(t *testing.T) {
	srv, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","method":"eth_chainId","params":[],"id":7}`)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assertJSONExact(t, `{"jsonrpc":"2.0","id":7,"result":"0x539"}`, msg)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`[{"jsonrpc":"2.0","method":"eth_blockNumber","id":8}]`)))
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assertJSON(t, `[{"jsonrpc":"2.0","id":8,"result":"0x0"}]`, msg)
}
