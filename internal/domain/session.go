package domain

import "time"

// WalletSession is the persisted state of a connected wallet. It is created
// by an explicit Connect, restored on boot, and destroyed on Disconnect —
// never implicitly.
type WalletSession struct {
	Address     string    `json:"address"`
	PublicKey   string    `json:"public_key"`
	Network     string    `json:"network"`
	ConnectedAt time.Time `json:"connected_at"`
}
