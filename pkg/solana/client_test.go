package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureStatus(t *testing.T) {
	zero, one := 0, 1

	testCases := []struct {
		s         SignatureStatus
		confirmed bool
		finalized bool
	}{
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: "",
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: "random",
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusProcessed,
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &one,
				ConfirmationStatus: "",
			},
			confirmed: true,
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusConfirmed,
			},
			confirmed: true,
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusFinalized,
			},
			confirmed: true,
			finalized: true,
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.confirmed, tc.s.Confirmed())
		assert.Equal(t, tc.finalized, tc.s.Finalized())
	}
}

type rpcHandler func(params json.RawMessage) (result interface{}, rpcErr map[string]interface{})

// rpcServer serves canned JSON RPC responses and counts calls per method.
type rpcServer struct {
	sync.Mutex
	handlers map[string]rpcHandler
	calls    map[string]int
}

func newTestClient(t *testing.T, handlers map[string]rpcHandler) (Client, *rpcServer) {
	s := &rpcServer{
		handlers: handlers,
		calls:    make(map[string]int),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int             `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		s.Lock()
		s.calls[req.Method]++
		handler, ok := s.handlers[req.Method]
		s.Unlock()
		if !assert.True(t, ok, "unexpected method %s", req.Method) {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		result, rpcErr := handler(req.Params)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)

	return New(server.URL), s
}

func (s *rpcServer) count(method string) int {
	s.Lock()
	defer s.Unlock()
	return s.calls[method]
}

func TestClient_GetLatestBlockhash(t *testing.T) {
	expected := Blockhash(sha256.Sum256([]byte("block")))

	client, server := newTestClient(t, map[string]rpcHandler{
		"getLatestBlockhash": func(json.RawMessage) (interface{}, map[string]interface{}) {
			return map[string]interface{}{
				"context": map[string]interface{}{"slot": 10},
				"value": map[string]interface{}{
					"blockhash":            base58.Encode(expected[:]),
					"lastValidBlockHeight": 160,
				},
			}, nil
		},
	})

	for i := 0; i < 3; i++ {
		actual, err := client.GetLatestBlockhash()
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	// Blockhashes are cached for a short window.
	assert.Equal(t, 1, server.count("getLatestBlockhash"))
}

func TestClient_GetAccountInfo(t *testing.T) {
	owner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	existing, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	missing, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	client, _ := newTestClient(t, map[string]rpcHandler{
		"getAccountInfo": func(params json.RawMessage) (interface{}, map[string]interface{}) {
			var args []interface{}
			assert.NoError(t, json.Unmarshal(params, &args))

			if len(args) == 0 || args[0] != base58.Encode(existing) {
				return map[string]interface{}{"value": nil}, nil
			}
			return map[string]interface{}{
				"value": map[string]interface{}{
					"lamports":   946560,
					"owner":      base58.Encode(owner),
					"data":       []string{base64.StdEncoding.EncodeToString([]byte{3, 0, 0, 0, 0, 0, 0, 0}), "base64"},
					"executable": false,
				},
			}, nil
		},
	})

	info, err := client.GetAccountInfo(existing, CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, owner, info.Owner)
	assert.EqualValues(t, 946560, info.Lamports)
	assert.Equal(t, []byte{3, 0, 0, 0, 0, 0, 0, 0}, info.Data)
	assert.False(t, info.Executable)

	_, err = client.GetAccountInfo(missing, CommitmentConfirmed)
	assert.Equal(t, ErrNoAccountInfo, err)
}

func TestClient_GetBalanceAndAirdrop(t *testing.T) {
	account, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	sig := Signature{1, 2, 3}

	client, _ := newTestClient(t, map[string]rpcHandler{
		"getBalance": func(json.RawMessage) (interface{}, map[string]interface{}) {
			return map[string]interface{}{
				"context": map[string]interface{}{"slot": 10},
				"value":   1_000_000,
			}, nil
		},
		"requestAirdrop": func(params json.RawMessage) (interface{}, map[string]interface{}) {
			var args []interface{}
			assert.NoError(t, json.Unmarshal(params, &args))
			assert.Equal(t, []interface{}{base58.Encode(account), 5000.0, map[string]interface{}{"commitment": "confirmed"}}, args)

			return base58.Encode(sig[:]), nil
		},
	})

	balance, err := client.GetBalance(account)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, balance)

	actual, err := client.RequestAirdrop(account, 5000, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, sig, actual)
}

func TestClient_SubmitTransaction(t *testing.T) {
	payer := generateKeys(t, 1)[0]

	txn := NewTransaction(public(payer), NewInstruction(public(payer), []byte{1}))
	require.NoError(t, txn.Sign(payer))

	var reject bool
	client, _ := newTestClient(t, map[string]rpcHandler{
		"sendTransaction": func(params json.RawMessage) (interface{}, map[string]interface{}) {
			var args []interface{}
			assert.NoError(t, json.Unmarshal(params, &args))
			if assert.Len(t, args, 2) {
				assert.Equal(t, base58.Encode(txn.Marshal()), args[0])
			}

			if reject {
				return nil, map[string]interface{}{
					"code":    -32002,
					"message": "Transaction simulation failed",
					"data": map[string]interface{}{
						"err": map[string]interface{}{
							"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 1}},
						},
					},
				}
			}
			return base58.Encode(txn.Signatures[0][:]), nil
		},
	})

	sig, err := client.SubmitTransaction(txn, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, txn.Signatures[0], sig)

	reject = true
	_, err = client.SubmitTransaction(txn, CommitmentConfirmed)
	txErr, ok := err.(*TransactionError)
	require.True(t, ok, "unexpected error: %v", err)
	require.NotNil(t, txErr.InstructionError())
	assert.Equal(t, 0, txErr.InstructionError().Index)
	require.NotNil(t, txErr.InstructionError().CustomError())
	assert.Equal(t, CustomError(1), *txErr.InstructionError().CustomError())
}

func TestClient_GetSignatureStatuses(t *testing.T) {
	client, _ := newTestClient(t, map[string]rpcHandler{
		"getSignatureStatuses": func(params json.RawMessage) (interface{}, map[string]interface{}) {
			var args []json.RawMessage
			assert.NoError(t, json.Unmarshal(params, &args))
			var sigs []string
			if assert.Len(t, args, 2) {
				assert.NoError(t, json.Unmarshal(args[0], &sigs))
			}

			values := []interface{}{
				map[string]interface{}{
					"slot":               11,
					"confirmations":      nil,
					"confirmationStatus": confirmationStatusFinalized,
					"err":                nil,
				},
				nil,
				map[string]interface{}{
					"slot":               12,
					"confirmations":      1,
					"confirmationStatus": confirmationStatusConfirmed,
					"err":                "AccountInUse",
				},
			}
			return map[string]interface{}{
				"context": map[string]interface{}{"slot": 12},
				"value":   values[:len(sigs)],
			}, nil
		},
	})

	statuses, err := client.GetSignatureStatuses([]Signature{{1}, {2}, {3}})
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	require.NotNil(t, statuses[0])
	assert.EqualValues(t, 11, statuses[0].Slot)
	assert.True(t, statuses[0].Finalized())
	assert.Nil(t, statuses[0].ErrorResult)

	assert.Nil(t, statuses[1])

	require.NotNil(t, statuses[2])
	assert.True(t, statuses[2].Confirmed())
	assert.False(t, statuses[2].Finalized())
	require.NotNil(t, statuses[2].ErrorResult)
	assert.Equal(t, TransactionErrorAccountInUse, statuses[2].ErrorResult.ErrorKey())

	status, err := client.GetSignatureStatus(Signature{1}, CommitmentFinalized)
	require.NoError(t, err)
	assert.EqualValues(t, 11, status.Slot)
}
