// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package greetervm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/greetervm/contracts/greeter"
)

func newRequest() *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", nil)
}

func TestServiceCallFlow(t *testing.T) {
	require := require.New(t)
	_, service, _ := newTestVM(t, testGenesis(t), nil)

	submitReply := &SubmitTxReply{}
	require.NoError(service.SubmitTx(newRequest(), &SubmitTxArgs{
		Signer:   alice,
		Receiver: greeterAcct,
		Method:   "set_greeting",
		Args:     mustJSON(t, &greeter.SetGreetingArgs{Message: "from rpc"}),
	}, submitReply))
	require.NotEqual(ids.Empty, submitReply.TxID)

	pending := &GetTxResultReply{}
	require.NoError(service.GetTxResult(newRequest(), &TxIDArgs{TxID: submitReply.TxID}, pending))
	require.Equal("pending", pending.Status)

	built := &BuildBlockReply{}
	require.NoError(service.BuildBlock(newRequest(), nil, built))
	require.EqualValues(1, built.Height)

	done := &GetTxResultReply{}
	require.NoError(service.GetTxResult(newRequest(), &TxIDArgs{TxID: submitReply.TxID}, done))
	require.Equal("success", done.Status)
	require.Equal([]string{"Saving greeting from rpc"}, done.Logs)

	viewReply := &ViewReply{}
	require.NoError(service.View(newRequest(), &ViewArgs{Receiver: greeterAcct, Method: "get_greeting"}, viewReply))
	require.JSONEq(`"from rpc"`, string(viewReply.Result))

	health := &HealthReply{}
	require.NoError(service.Health(newRequest(), nil, health))
	require.EqualValues(1, health.Height)
}

func TestServiceSubmitTxInvalid(t *testing.T) {
	tests := []struct {
		name string
		args *SubmitTxArgs
	}{
		{
			name: "bad deposit",
			args: &SubmitTxArgs{Signer: alice, Receiver: greeterAcct, Method: "transfer", Deposit: "one"},
		},
		{
			name: "bad signer",
			args: &SubmitTxArgs{Signer: "Alice", Receiver: greeterAcct, Method: "transfer"},
		},
		{
			name: "no method",
			args: &SubmitTxArgs{Signer: alice, Receiver: greeterAcct},
		},
		{
			name: "args too large",
			args: &SubmitTxArgs{
				Signer:   alice,
				Receiver: greeterAcct,
				Method:   "set_greeting",
				Args:     mustJSON(t, string(make([]byte, maxArgsLen))),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, service, _ := newTestVM(t, testGenesis(t), nil)
			require.Error(t, service.SubmitTx(newRequest(), test.args, &SubmitTxReply{}))
		})
	}
}

func TestServiceGetAccount(t *testing.T) {
	require := require.New(t)
	_, service, _ := newTestVM(t, testGenesis(t), nil)

	reply := &GetAccountReply{}
	require.NoError(service.GetAccount(newRequest(), &GetAccountArgs{ID: greeterAcct}, reply))
	require.Equal(greeterAcct, reply.ID)
	require.Equal("10", reply.Balance)
	require.Equal(greeter.Name, reply.Contract)

	err := service.GetAccount(newRequest(), &GetAccountArgs{ID: "nobody.test"}, &GetAccountReply{})
	require.ErrorIs(err, errUnknownAccount)
}

// The handlers returned by CreateHandlers speak JSON-RPC 2.0 with lowercase
// method names.
func TestHandlers(t *testing.T) {
	require := require.New(t)
	vm, _, _ := newTestVM(t, testGenesis(t), nil)

	handlers, err := vm.CreateHandlers(context.Background())
	require.NoError(err)
	server := httptest.NewServer(handlers[""].Handler)
	defer server.Close()

	body, err := json2.EncodeClientRequest(Name+".getAccount", &GetAccountArgs{ID: alice})
	require.NoError(err)
	resp, err := http.Post(server.URL, "application/json", bytes.NewReader(body))
	require.NoError(err)
	defer resp.Body.Close()

	reply := &GetAccountReply{}
	require.NoError(json2.DecodeClientResponse(resp.Body, reply))
	require.Equal("1000", reply.Balance)

	raw, err := json.Marshal(reply)
	require.NoError(err)
	require.JSONEq(`{"id":"alice.test","balance":"1000","contract":""}`, string(raw))
}
