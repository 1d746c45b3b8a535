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

package metrics

import (
	"sort"

	"payments-engine-go/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Recorder counts processed records. Each run gets its own registry so tests
// and repeated runs never share counters.
type Recorder struct {
	registry *prometheus.Registry

	transactions  *prometheus.CounterVec
	decodeErrors  prometheus.Counter
	ledgerErrors  prometheus.Counter
	lockedClients prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_transactions_total",
				Help: "Transactions applied by the engine, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		decodeErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "engine_decode_errors_total",
				Help: "Input records skipped because they could not be decoded",
			},
		),
		ledgerErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "engine_ledger_errors_total",
				Help: "Ledger backend failures while applying a transaction",
			},
		),
		lockedClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "engine_locked_accounts",
				Help: "Accounts locked by a chargeback",
			},
		),
	}
}

// Registry exposes the underlying registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveTransaction counts one applied record. A nil Recorder ignores it.
func (r *Recorder) ObserveTransaction(kind models.TransactionKind, outcome models.Outcome) {
	if r == nil {
		return
	}
	r.transactions.WithLabelValues(string(kind), string(outcome)).Inc()
	switch outcome {
	case models.OutcomeLedgerFailure:
		r.ledgerErrors.Inc()
	case models.OutcomeAccepted:
		if kind == models.KindChargeback {
			r.lockedClients.Inc()
		}
	}
}

func (r *Recorder) ObserveDecodeError() {
	if r == nil {
		return
	}
	r.decodeErrors.Inc()
}

// Summary is a flattened view of the counters for logging at the end of a run
type Summary struct {
	Records      int
	Accepted     int
	Rejected     map[models.Outcome]int
	DecodeErrors int
	Locked       int
}

// RejectedTotal sums every rejection reason
func (s Summary) RejectedTotal() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

// RejectionReasons returns the rejection reasons seen, sorted by name
func (s Summary) RejectionReasons() []models.Outcome {
	reasons := make([]models.Outcome, 0, len(s.Rejected))
	for reason := range s.Rejected {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons
}

// Summarize gathers the registry into a Summary
func (r *Recorder) Summarize() (Summary, error) {
	summary := Summary{Rejected: make(map[models.Outcome]int)}

	families, err := r.registry.Gather()
	if err != nil {
		return summary, err
	}

	for _, family := range families {
		switch family.GetName() {
		case "engine_transactions_total":
			for _, m := range family.GetMetric() {
				n := int(m.GetCounter().GetValue())
				outcome := models.Outcome(labelValue(m, "outcome"))
				summary.Records += n
				if outcome.Accepted() {
					summary.Accepted += n
				} else {
					summary.Rejected[outcome] += n
				}
			}
		case "engine_decode_errors_total":
			for _, m := range family.GetMetric() {
				summary.DecodeErrors += int(m.GetCounter().GetValue())
			}
		case "engine_locked_accounts":
			for _, m := range family.GetMetric() {
				summary.Locked += int(m.GetGauge().GetValue())
			}
		}
	}
	return summary, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, label := range m.GetLabel() {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}
