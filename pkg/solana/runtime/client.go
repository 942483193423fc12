package runtime

import (
	"context"
	"crypto/ed25519"

	"github.com/code-payments/counter-program/pkg/ledger"
	"github.com/code-payments/counter-program/pkg/solana"
)

// localClient serves the solana.Client API from a Runtime, so code written
// against an RPC node can run in process.
type localClient struct {
	ctx context.Context
	rt  *Runtime
}

// Client returns a solana.Client backed by the runtime. Calls run with ctx.
func (r *Runtime) Client(ctx context.Context) solana.Client {
	return &localClient{ctx: ctx, rt: r}
}

func (c *localClient) GetAccountInfo(account ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	info, err := c.rt.GetAccount(c.ctx, account)
	if err == ledger.ErrAccountNotFound {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	} else if err != nil {
		return solana.AccountInfo{}, err
	}
	return *info, nil
}

func (c *localClient) GetBalance(account ed25519.PublicKey) (uint64, error) {
	return c.rt.GetBalance(c.ctx, account)
}

func (c *localClient) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	return c.rt.Rent(c.ctx).MinimumBalance(size), nil
}

func (c *localClient) GetLatestBlockhash() (solana.Blockhash, error) {
	return c.rt.GetLatestBlockhash(), nil
}

func (c *localClient) GetSignatureStatus(sig solana.Signature, _ solana.Commitment) (*solana.SignatureStatus, error) {
	status, err := c.rt.GetSignatureStatus(sig)
	if err == ErrSignatureNotFound {
		return nil, solana.ErrSignatureNotFound
	}
	return status, err
}

func (c *localClient) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		status, err := c.rt.GetSignatureStatus(sig)
		if err == ErrSignatureNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		statuses[i] = status
	}
	return statuses, nil
}

func (c *localClient) GetSlot(_ solana.Commitment) (uint64, error) {
	return c.rt.GetSlot(), nil
}

func (c *localClient) RequestAirdrop(account ed25519.PublicKey, lamports uint64, _ solana.Commitment) (solana.Signature, error) {
	return c.rt.RequestAirdrop(c.ctx, account, lamports)
}

func (c *localClient) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	return c.rt.SubmitTransaction(c.ctx, txn)
}
