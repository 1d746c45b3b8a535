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

package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"payments-engine-go/internal/models"

	"gopkg.in/yaml.v2"
)

type Format string

const (
	FormatCsv  Format = "csv"
	FormatJson Format = "json"
	FormatYaml Format = "yaml"
)

// ParseFormat maps a configuration value to a Format
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatCsv, FormatJson, FormatYaml:
		return f, nil
	case "":
		return FormatCsv, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", value)
	}
}

// row renders decimals with exactly four fractional digits
type row struct {
	Client    models.ClientId `json:"client" yaml:"client"`
	Available string          `json:"available" yaml:"available"`
	Held      string          `json:"held" yaml:"held"`
	Total     string          `json:"total" yaml:"total"`
	Locked    bool            `json:"locked" yaml:"locked"`
}

func newRow(s models.AccountSnapshot) row {
	return row{
		Client:    s.Client,
		Available: s.Available.StringFixed(models.AmountPrecision),
		Held:      s.Held.StringFixed(models.AmountPrecision),
		Total:     s.Total.StringFixed(models.AmountPrecision),
		Locked:    s.Locked,
	}
}

// Write renders the snapshot rows to w in the given format
func Write(w io.Writer, format Format, rows iter.Seq[models.AccountSnapshot]) error {
	switch format {
	case FormatCsv:
		return writeCsv(w, rows)
	case FormatJson:
		return writeJson(w, rows)
	case FormatYaml:
		return writeYaml(w, rows)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// writeCsv streams one line per account without buffering the snapshot
func writeCsv(w io.Writer, rows iter.Seq[models.AccountSnapshot]) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return fmt.Errorf("unable to write header: %w", err)
	}

	for snapshot := range rows {
		r := newRow(snapshot)
		record := []string{
			strconv.FormatUint(uint64(r.Client), 10),
			r.Available,
			r.Held,
			r.Total,
			strconv.FormatBool(r.Locked),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("unable to write client %d: %w", r.Client, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func collect(rows iter.Seq[models.AccountSnapshot]) []row {
	out := []row{}
	for snapshot := range rows {
		out = append(out, newRow(snapshot))
	}
	return out
}

func writeJson(w io.Writer, rows iter.Seq[models.AccountSnapshot]) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(collect(rows)); err != nil {
		return fmt.Errorf("unable to encode json: %w", err)
	}
	return nil
}

func writeYaml(w io.Writer, rows iter.Seq[models.AccountSnapshot]) error {
	data, err := yaml.Marshal(collect(rows))
	if err != nil {
		return fmt.Errorf("unable to encode yaml: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("unable to write yaml: %w", err)
	}
	return nil
}
