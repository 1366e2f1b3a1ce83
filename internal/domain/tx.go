package domain

import "time"

// TxStatus is the chain API's view of a submitted transaction.
type TxStatus string

const (
	TxStatusPending              TxStatus = "pending"
	TxStatusSuccess              TxStatus = "success"
	TxStatusAbortByResponse      TxStatus = "abort_by_response"
	TxStatusAbortByPostCondition TxStatus = "abort_by_post_condition"
	TxStatusDropped              TxStatus = "dropped"
)

// Terminal reports whether the status will never change again.
func (s TxStatus) Terminal() bool {
	switch s {
	case TxStatusSuccess, TxStatusAbortByResponse, TxStatusAbortByPostCondition, TxStatusDropped:
		return true
	default:
		return false
	}
}

// TxReceipt is a transaction status snapshot from the chain API.
type TxReceipt struct {
	TxID        string
	Status      TxStatus
	BlockHeight uint64
	Result      string // contract return value, when available
	ObservedAt  time.Time
}
