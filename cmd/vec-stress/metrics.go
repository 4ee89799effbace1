// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	ops         *prometheus.CounterVec
	faults      prometheus.Counter
	divergences prometheus.Counter
	rounds      prometheus.Counter
}

// newMetrics creates the stress collectors and registers them with reg when
// it is not nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seqvec",
				Subsystem: "stress",
				Name:      "ops_total",
				Help:      "Total vector operations issued, by operation.",
			}, []string{"op"}),
		faults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "seqvec",
				Subsystem: "stress",
				Name:      "injected_faults_total",
				Help:      "Total element constructions failed on purpose.",
			}),
		divergences: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "seqvec",
				Subsystem: "stress",
				Name:      "divergences_total",
				Help:      "Total disagreements between a vector and its model.",
			}),
		rounds: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "seqvec",
				Subsystem: "stress",
				Name:      "rounds_total",
				Help:      "Total finished rounds.",
			}),
	}
	if reg != nil {
		reg.MustRegister(m.ops, m.faults, m.divergences, m.rounds)
	}
	return m
}
