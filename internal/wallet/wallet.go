package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/crypto"
	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// ChainClient is the subset of the chain API the wallet needs.
type ChainClient interface {
	Network() string
	CallReadOnly(ctx context.Context, contractAddr, contractName, function, sender string, args []string) (string, error)
	Broadcast(ctx context.Context, rawTx []byte) (string, error)
}

// ContractCall describes one public contract function invocation.
type ContractCall struct {
	ContractAddr string   `json:"contractAddr"`
	ContractName string   `json:"contractName"`
	Function     string   `json:"function"`
	Args         []string `json:"args"`
}

// Wallet holds the signing key and connection state. Every signing or
// contract-call operation fails fast with domain.ErrNotConnected until
// Connect has succeeded; nothing is lazily connected on first use.
type Wallet struct {
	mu      sync.RWMutex
	session *domain.WalletSession

	address string
	signer  *crypto.Signer
	store   SessionStore
	chain   ChainClient
	logger  *slog.Logger
}

// New creates a Wallet for the configured address. The wallet starts
// disconnected; call Restore to pick up a persisted session, or Connect to
// establish a new one.
func New(address string, signer *crypto.Signer, store SessionStore, chain ChainClient, logger *slog.Logger) *Wallet {
	return &Wallet{
		address: address,
		signer:  signer,
		store:   store,
		chain:   chain,
		logger:  logger.With("component", "wallet"),
	}
}

// Restore loads a persisted session, if any. A session saved for a different
// address or network is discarded rather than adopted.
func (w *Wallet) Restore() error {
	session, ok, err := w.store.Load()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if session.Address != w.address || session.Network != w.chain.Network() {
		w.logger.Warn("discarding stale wallet session",
			"saved_address", session.Address,
			"saved_network", session.Network)
		return w.store.Clear()
	}

	w.mu.Lock()
	w.session = &session
	w.mu.Unlock()
	w.logger.Info("wallet session restored", "address", session.Address)
	return nil
}

// Connect establishes the wallet session and persists it. Calling Connect
// while already connected returns the existing session unchanged.
func (w *Wallet) Connect(ctx context.Context) (domain.WalletSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session != nil {
		return *w.session, nil
	}
	if err := ctx.Err(); err != nil {
		return domain.WalletSession{}, fmt.Errorf("wallet: connect: %w", domain.ErrContextDone)
	}

	session := domain.WalletSession{
		Address:     w.address,
		PublicKey:   w.signer.PublicKey(),
		Network:     w.chain.Network(),
		ConnectedAt: time.Now().UTC(),
	}
	if err := w.store.Save(session); err != nil {
		return domain.WalletSession{}, err
	}

	w.session = &session
	w.logger.Info("wallet connected", "address", session.Address, "network", session.Network)
	return session, nil
}

// Disconnect drops the session and clears the persisted copy. Disconnecting
// an already-disconnected wallet is a no-op.
func (w *Wallet) Disconnect() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session == nil {
		return nil
	}
	if err := w.store.Clear(); err != nil {
		return err
	}
	w.session = nil
	w.logger.Info("wallet disconnected", "address", w.address)
	return nil
}

// Connected reports whether a session is active.
func (w *Wallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.session != nil
}

// Session returns the active session, or ErrNotConnected.
func (w *Wallet) Session() (domain.WalletSession, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.session == nil {
		return domain.WalletSession{}, domain.ErrNotConnected
	}
	return *w.session, nil
}

// Address returns the connected address, or ErrNotConnected.
func (w *Wallet) Address() (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.session == nil {
		return "", domain.ErrNotConnected
	}
	return w.session.Address, nil
}

// SignDigest signs a hex-encoded 32-byte digest with the wallet key.
func (w *Wallet) SignDigest(digestHex string) (signature, publicKey string, err error) {
	if !w.Connected() {
		return "", "", fmt.Errorf("wallet: sign digest: %w", domain.ErrNotConnected)
	}

	sig, err := w.signer.SignDigest(digestHex)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}
	return sig, w.signer.PublicKey(), nil
}

// ReadContract performs a read-only contract call as the connected address.
func (w *Wallet) ReadContract(ctx context.Context, contractAddr, contractName, function string, args []string) (string, error) {
	addr, err := w.Address()
	if err != nil {
		return "", fmt.Errorf("wallet: read contract: %w", err)
	}
	return w.chain.CallReadOnly(ctx, contractAddr, contractName, function, addr, args)
}

// CallContract signs and broadcasts a public contract call, returning the
// transaction id. The call envelope carries the canonical call digest
// signature so the node can attribute the transaction to the sender.
func (w *Wallet) CallContract(ctx context.Context, call ContractCall) (string, error) {
	addr, err := w.Address()
	if err != nil {
		return "", fmt.Errorf("wallet: call contract: %w", err)
	}

	envelope := struct {
		Sender    string       `json:"sender"`
		Call      ContractCall `json:"call"`
		Nonce     int64        `json:"nonce"`
		Signature string       `json:"signature"`
		PublicKey string       `json:"publicKey"`
	}{
		Sender: addr,
		Call:   call,
		Nonce:  time.Now().UnixNano(),
	}

	canonical, err := json.Marshal(struct {
		Sender string       `json:"sender"`
		Call   ContractCall `json:"call"`
		Nonce  int64        `json:"nonce"`
	}{envelope.Sender, envelope.Call, envelope.Nonce})
	if err != nil {
		return "", fmt.Errorf("wallet: marshal call: %w", err)
	}
	digest := sha256.Sum256(canonical)

	sig, pub, err := w.SignDigest(hex.EncodeToString(digest[:]))
	if err != nil {
		return "", fmt.Errorf("wallet: call %s.%s: %w", call.ContractName, call.Function, err)
	}
	envelope.Signature = sig
	envelope.PublicKey = pub

	rawTx, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("wallet: marshal envelope: %w", err)
	}

	txID, err := w.chain.Broadcast(ctx, rawTx)
	if err != nil {
		return "", fmt.Errorf("wallet: call %s.%s: %w", call.ContractName, call.Function, err)
	}

	w.logger.Info("contract call broadcast",
		"contract", call.ContractName,
		"function", call.Function,
		"tx_id", txID)
	return txID, nil
}
