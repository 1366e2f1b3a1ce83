package wallet

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oddsdesk/oddsdesk/internal/crypto"
	"github.com/oddsdesk/oddsdesk/internal/domain"
)

const testAddress = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

type fakeChain struct {
	network     string
	broadcasted [][]byte
}

func (c *fakeChain) Network() string { return c.network }

func (c *fakeChain) CallReadOnly(_ context.Context, _, _, _, _ string, _ []string) (string, error) {
	return "(ok u1)", nil
}

func (c *fakeChain) Broadcast(_ context.Context, rawTx []byte) (string, error) {
	c.broadcasted = append(c.broadcasted, rawTx)
	return "0xtx1", nil
}

func newTestWallet(t *testing.T) (*Wallet, *FileSessionStore) {
	t.Helper()
	signer, err := crypto.NewSigner(strings.Repeat("a", 64))
	require.NoError(t, err)

	store := NewFileSessionStore(filepath.Join(t.TempDir(), "session.json"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(testAddress, signer, store, &fakeChain{network: "devnet"}, logger), store
}

func TestDisconnectedWalletFailsFast(t *testing.T) {
	w, _ := newTestWallet(t)

	require.False(t, w.Connected())

	_, err := w.Address()
	require.ErrorIs(t, err, domain.ErrNotConnected)

	_, err = w.Session()
	require.ErrorIs(t, err, domain.ErrNotConnected)

	_, _, err = w.SignDigest(strings.Repeat("0", 64))
	require.ErrorIs(t, err, domain.ErrNotConnected)

	_, err = w.CallContract(context.Background(), ContractCall{ContractName: "prediction-market", Function: "split"})
	require.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestConnectIsIdempotent(t *testing.T) {
	w, _ := newTestWallet(t)

	first, err := w.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, testAddress, first.Address)
	require.Equal(t, "devnet", first.Network)
	require.NotEmpty(t, first.PublicKey)

	second, err := w.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestConnectThenSign(t *testing.T) {
	w, _ := newTestWallet(t)

	_, err := w.Connect(context.Background())
	require.NoError(t, err)

	sig, pub, err := w.SignDigest(strings.Repeat("ab", 32))
	require.NoError(t, err)
	require.NotEmpty(t, sig)
	require.NotEmpty(t, pub)
}

func TestDisconnectIsNoOpWhenDisconnected(t *testing.T) {
	w, _ := newTestWallet(t)
	require.NoError(t, w.Disconnect())
}

func TestDisconnectClearsPersistedSession(t *testing.T) {
	w, store := newTestWallet(t)

	_, err := w.Connect(context.Background())
	require.NoError(t, err)

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, w.Disconnect())
	require.False(t, w.Connected())

	_, ok, err = store.Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRestoreRoundTrip(t *testing.T) {
	w, store := newTestWallet(t)

	saved, err := w.Connect(context.Background())
	require.NoError(t, err)

	// A fresh wallet on the same store picks the session back up.
	signer, err := crypto.NewSigner(strings.Repeat("a", 64))
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fresh := New(testAddress, signer, store, &fakeChain{network: "devnet"}, logger)

	require.NoError(t, fresh.Restore())
	require.True(t, fresh.Connected())

	session, err := fresh.Session()
	require.NoError(t, err)
	require.Equal(t, saved.Address, session.Address)
}

func TestRestoreDiscardsMismatchedSession(t *testing.T) {
	w, store := newTestWallet(t)

	_, err := w.Connect(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name    string
		address string
		network string
	}{
		{"different address", "SP000000000000000000002Q6VF78", "devnet"},
		{"different network", testAddress, "mainnet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, ok, err := store.Load()
			if !ok {
				// Re-seed the store; the previous subtest cleared it.
				session = domain.WalletSession{Address: testAddress, Network: "devnet"}
			}
			require.NoError(t, err)
			require.NoError(t, store.Save(session))

			signer, err := crypto.NewSigner(strings.Repeat("a", 64))
			require.NoError(t, err)
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			fresh := New(tt.address, signer, store, &fakeChain{network: tt.network}, logger)

			require.NoError(t, fresh.Restore())
			require.False(t, fresh.Connected())

			_, ok, err = store.Load()
			require.NoError(t, err)
			require.False(t, ok, "stale session must be cleared from disk")
		})
	}
}

func TestCallContractBroadcastsSignedEnvelope(t *testing.T) {
	signer, err := crypto.NewSigner(strings.Repeat("a", 64))
	require.NoError(t, err)

	chain := &fakeChain{network: "devnet"}
	store := NewFileSessionStore(filepath.Join(t.TempDir(), "session.json"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := New(testAddress, signer, store, chain, logger)

	_, err = w.Connect(context.Background())
	require.NoError(t, err)

	txID, err := w.CallContract(context.Background(), ContractCall{
		ContractAddr: "SP1DEPLOYER",
		ContractName: "prediction-market",
		Function:     "split-position",
		Args:         []string{"0xcond", "u1000000"},
	})
	require.NoError(t, err)
	require.Equal(t, "0xtx1", txID)
	require.Len(t, chain.broadcasted, 1)

	raw := string(chain.broadcasted[0])
	require.Contains(t, raw, `"sender":"`+testAddress+`"`)
	require.Contains(t, raw, `"function":"split-position"`)
	require.Contains(t, raw, `"signature":"`)
	require.Contains(t, raw, `"publicKey":"`)
}
