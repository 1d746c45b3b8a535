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

package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"payments-engine-go/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	columnType   = "type"
	columnClient = "client"
	columnTx     = "tx"
	columnAmount = "amount"
)

// csvRow is one raw input row after whitespace trimming
type csvRow struct {
	Type   string `validate:"required,oneof=deposit withdrawal dispute resolve chargeback"`
	Client string `validate:"required,number"`
	Tx     string `validate:"required,number"`
	Amount string
}

// Decoder reads transactions from CSV with a `type,client,tx,amount` header.
// Column order follows the header; the amount column may be omitted from
// rows that do not need it.
type Decoder struct {
	reader   *csv.Reader
	validate *validator.Validate
	columns  map[string]int
}

// NewDecoder reads the header row and prepares to decode records
func NewDecoder(r io.Reader) (*Decoder, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read header row: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{columnType, columnClient, columnTx} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("header is missing column %q", required)
		}
	}

	return &Decoder{
		reader:   reader,
		validate: validator.New(),
		columns:  columns,
	}, nil
}

// Next decodes the next record. It returns io.EOF at the end of input and an
// error wrapping models.ErrMalformedRecord for rows that cannot be decoded;
// decoding may continue after such an error.
func (d *Decoder) Next() (models.Transaction, error) {
	record, err := d.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.Transaction{}, io.EOF
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return models.Transaction{}, fmt.Errorf("%w: %w", models.ErrMalformedRecord, err)
		}
		return models.Transaction{}, fmt.Errorf("unable to read input: %w", err)
	}

	line, _ := d.reader.FieldPos(0)
	row := csvRow{
		Type:   d.field(record, columnType),
		Client: d.field(record, columnClient),
		Tx:     d.field(record, columnTx),
		Amount: d.field(record, columnAmount),
	}

	tx, err := d.decode(row)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%w: line %d: %w", models.ErrMalformedRecord, line, err)
	}
	return tx, nil
}

func (d *Decoder) field(record []string, column string) string {
	i, ok := d.columns[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (d *Decoder) decode(row csvRow) (models.Transaction, error) {
	if err := d.validate.Struct(&row); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return models.Transaction{}, describeValidationErrors(validationErrs)
		}
		return models.Transaction{}, err
	}

	kind, err := models.ParseTransactionKind(row.Type)
	if err != nil {
		return models.Transaction{}, err
	}
	client, err := strconv.ParseUint(row.Client, 10, 16)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid client %q: %w", row.Client, err)
	}
	txId, err := strconv.ParseUint(row.Tx, 10, 32)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid tx %q: %w", row.Tx, err)
	}

	switch kind {
	case models.KindDeposit, models.KindWithdrawal:
		amount, err := parseAmount(row.Amount)
		if err != nil {
			return models.Transaction{}, err
		}
		if kind == models.KindDeposit {
			return models.NewDeposit(models.ClientId(client), models.TransactionId(txId), amount), nil
		}
		return models.NewWithdrawal(models.ClientId(client), models.TransactionId(txId), amount), nil
	case models.KindDispute:
		// Any amount given on a reference row is ignored
		return models.NewDispute(models.ClientId(client), models.TransactionId(txId)), nil
	case models.KindResolve:
		return models.NewResolve(models.ClientId(client), models.TransactionId(txId)), nil
	case models.KindChargeback:
		return models.NewChargeback(models.ClientId(client), models.TransactionId(txId)), nil
	}
	return models.Transaction{}, fmt.Errorf("unsupported transaction kind %q", kind)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("missing amount")
	}
	// Exponent forms such as 1e2000000000 would expand to huge fixed-point strings
	if strings.ContainsAny(raw, "eE") {
		return decimal.Zero, fmt.Errorf("invalid amount %q: exponent notation is not accepted", raw)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %s", raw)
	}
	return amount, nil
}

func describeValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		switch fieldErr.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("missing %s", strings.ToLower(fieldErr.Field())))
		case "oneof":
			messages = append(messages, fmt.Sprintf("unknown %s %q", strings.ToLower(fieldErr.Field()), fieldErr.Value()))
		case "number":
			messages = append(messages, fmt.Sprintf("%s %q is not an unsigned integer", strings.ToLower(fieldErr.Field()), fieldErr.Value()))
		default:
			messages = append(messages, fieldErr.Error())
		}
	}
	return errors.New(strings.Join(messages, "; "))
}
