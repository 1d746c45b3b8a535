/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrMalformedRecord marks an input record that could not be decoded. Readers
// wrap it so that consumers can skip the record and keep going.
var ErrMalformedRecord = errors.New("malformed record")

// ClientId identifies a client account
type ClientId = uint16

// TransactionId identifies a deposit or withdrawal in the input stream
type TransactionId = uint32

// AmountPrecision is the number of fractional digits carried by every amount
const AmountPrecision = 4

// TransactionKind tags a transaction record
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindDispute    TransactionKind = "dispute"
	KindResolve    TransactionKind = "resolve"
	KindChargeback TransactionKind = "chargeback"
)

// AllKinds lists every transaction kind in input-format order
var AllKinds = []TransactionKind{KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback}

// ParseTransactionKind maps the wire name of a kind to its TransactionKind
func ParseTransactionKind(s string) (TransactionKind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

// CarriesAmount reports whether records of this kind have an amount of their own.
// Dispute, resolve and chargeback records refer to the amount of another transaction.
func (k TransactionKind) CarriesAmount() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// Transaction is one immutable input event. Amount is zero for kinds that do not carry one.
type Transaction struct {
	Kind     TransactionKind
	ClientId ClientId
	TxId     TransactionId
	Amount   decimal.Decimal
}

func NewDeposit(client ClientId, tx TransactionId, amount decimal.Decimal) Transaction {
	return Transaction{Kind: KindDeposit, ClientId: client, TxId: tx, Amount: amount.Round(AmountPrecision)}
}

func NewWithdrawal(client ClientId, tx TransactionId, amount decimal.Decimal) Transaction {
	return Transaction{Kind: KindWithdrawal, ClientId: client, TxId: tx, Amount: amount.Round(AmountPrecision)}
}

func NewDispute(client ClientId, tx TransactionId) Transaction {
	return Transaction{Kind: KindDispute, ClientId: client, TxId: tx}
}

func NewResolve(client ClientId, tx TransactionId) Transaction {
	return Transaction{Kind: KindResolve, ClientId: client, TxId: tx}
}

func NewChargeback(client ClientId, tx TransactionId) Transaction {
	return Transaction{Kind: KindChargeback, ClientId: client, TxId: tx}
}

func (t Transaction) String() string {
	if t.Kind.CarriesAmount() {
		return fmt.Sprintf("%s(client=%d, tx=%d, amount=%s)", t.Kind, t.ClientId, t.TxId, t.Amount.String())
	}
	return fmt.Sprintf("%s(client=%d, tx=%d)", t.Kind, t.ClientId, t.TxId)
}
