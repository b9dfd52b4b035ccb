package ledger

import (
	"strings"
	"time"
)

// Signer identifies a cheque signatory either by user id or by free-text name.
type Signer struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Satisfied reports whether the signer is identified by either form.
func (s Signer) Satisfied() bool {
	return strings.TrimSpace(s.UserID) != "" || strings.TrimSpace(s.Name) != ""
}

// Instrument is the payment instrument (cheque) issued for a transaction.
// It is keyed by TransactionID, so at most one exists per transaction.
type Instrument struct {
	TransactionID string        `json:"transactionId"`
	Number        string        `json:"number"`
	Method        PaymentMethod `json:"method"`
	Signers       []Signer      `json:"signers"`
	IssuedBy      string        `json:"issuedBy"`
	IssuedAt      time.Time     `json:"issuedAt"`
	Version       int64         `json:"version"`
}

func (i *Instrument) GetVersion() int64  { return i.Version }
func (i *Instrument) SetVersion(v int64) { i.Version = v }

// Clone returns a deep copy.
func (i *Instrument) Clone() *Instrument {
	ret := *i
	ret.Signers = append([]Signer(nil), i.Signers...)
	return &ret
}
