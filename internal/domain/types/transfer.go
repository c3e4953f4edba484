package types

import "github.com/shopspring/decimal"

// Originator describes the customer sending value.
type Originator struct {
	Name          string `json:"name"`
	VAAN          string `json:"vaan"`
	PostalAddress string `json:"postaladdr,omitempty"`
	CustomerID    string `json:"customernr,omitempty"`
}

// Beneficiary describes the customer receiving value.
type Beneficiary struct {
	Name string `json:"name"`
	VAAN string `json:"vaan"`
}

// Transfer holds the terms of a transfer.
type Transfer struct {
	Asset       string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination,omitempty"`
}

// Transaction references the on-chain transaction of a dispatched transfer.
type Transaction struct {
	TxID           string `json:"txid"`
	DateTime       string `json:"datetime,omitempty"`
	SendingAddress string `json:"sendingadr,omitempty"`
}

// TransferInfo is the transfer context accumulated by a session and copied
// forward on every transfer message.
type TransferInfo struct {
	Originator  *Originator  `json:"originator,omitempty"`
	Beneficiary *Beneficiary `json:"beneficiary,omitempty"`
	Transfer    *Transfer    `json:"transfer,omitempty"`
	Tx          *Transaction `json:"tx,omitempty"`
}

// Clone returns a deep copy.
func (ti TransferInfo) Clone() TransferInfo {
	var out TransferInfo
	if ti.Originator != nil {
		o := *ti.Originator
		out.Originator = &o
	}
	if ti.Beneficiary != nil {
		b := *ti.Beneficiary
		out.Beneficiary = &b
	}
	if ti.Transfer != nil {
		t := *ti.Transfer
		out.Transfer = &t
	}
	if ti.Tx != nil {
		tx := *ti.Tx
		out.Tx = &tx
	}
	return out
}

// Merge fills the fields of ti that are unset with those from other.
func (ti *TransferInfo) Merge(other TransferInfo) {
	other = other.Clone()
	if ti.Originator == nil {
		ti.Originator = other.Originator
	}
	if ti.Beneficiary == nil {
		ti.Beneficiary = other.Beneficiary
	}
	if ti.Transfer == nil {
		ti.Transfer = other.Transfer
	}
	if ti.Tx == nil {
		ti.Tx = other.Tx
	}
}

// Update overwrites the fields of ti with those set in other.
func (ti *TransferInfo) Update(other TransferInfo) {
	other = other.Clone()
	if other.Originator != nil {
		ti.Originator = other.Originator
	}
	if other.Beneficiary != nil {
		ti.Beneficiary = other.Beneficiary
	}
	if other.Transfer != nil {
		ti.Transfer = other.Transfer
	}
	if other.Tx != nil {
		ti.Tx = other.Tx
	}
}
