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

package malloc

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsAllocator reports allocation volume to prometheus. Any of the
// collectors may be nil.
type MetricsAllocator[U Allocator] struct {
	upstream U

	allocateBytesCounter   prometheus.Counter
	inuseBytesGauge        prometheus.Gauge
	allocateObjectsCounter prometheus.Counter
	inuseObjectsGauge      prometheus.Gauge
}

func NewMetricsAllocator[U Allocator](
	upstream U,
	allocateBytesCounter prometheus.Counter,
	inuseBytesGauge prometheus.Gauge,
	allocateObjectsCounter prometheus.Counter,
	inuseObjectsGauge prometheus.Gauge,
) *MetricsAllocator[U] {
	return &MetricsAllocator[U]{
		upstream:               upstream,
		allocateBytesCounter:   allocateBytesCounter,
		inuseBytesGauge:        inuseBytesGauge,
		allocateObjectsCounter: allocateObjectsCounter,
		inuseObjectsGauge:      inuseObjectsGauge,
	}
}

var _ Allocator = new(MetricsAllocator[Allocator])

func (m *MetricsAllocator[U]) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	block, dec, err := m.upstream.Allocate(size, hints)
	if err != nil {
		return nil, nil, err
	}
	if m.allocateBytesCounter != nil {
		m.allocateBytesCounter.Add(float64(size))
	}
	if m.inuseBytesGauge != nil {
		m.inuseBytesGauge.Add(float64(size))
	}
	if m.allocateObjectsCounter != nil {
		m.allocateObjectsCounter.Inc()
	}
	if m.inuseObjectsGauge != nil {
		m.inuseObjectsGauge.Inc()
	}

	return block, ChainDeallocator(
		dec,
		FuncDeallocator(func(Hints) {
			if m.inuseBytesGauge != nil {
				m.inuseBytesGauge.Sub(float64(size))
			}
			if m.inuseObjectsGauge != nil {
				m.inuseObjectsGauge.Dec()
			}
		}),
	), nil
}

// Collectors groups the four collectors NewMetricsAllocator expects.
type Collectors struct {
	AllocateBytes   prometheus.Counter
	InuseBytes      prometheus.Gauge
	AllocateObjects prometheus.Counter
	InuseObjects    prometheus.Gauge
}

// NewCollectors creates the allocator collectors under namespace/subsystem.
func NewCollectors(namespace, subsystem string) Collectors {
	return Collectors{
		AllocateBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "allocate_bytes_total",
			Help:      "Total bytes handed out by the allocator.",
		}),
		InuseBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inuse_bytes",
			Help:      "Bytes currently held by callers.",
		}),
		AllocateObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "allocate_objects_total",
			Help:      "Total blocks handed out by the allocator.",
		}),
		InuseObjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inuse_objects",
			Help:      "Blocks currently held by callers.",
		}),
	}
}

func (c Collectors) Register(reg prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{
		c.AllocateBytes, c.InuseBytes, c.AllocateObjects, c.InuseObjects,
	} {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func NewMetricsAllocatorWith[U Allocator](upstream U, c Collectors) *MetricsAllocator[U] {
	return NewMetricsAllocator(upstream, c.AllocateBytes, c.InuseBytes, c.AllocateObjects, c.InuseObjects)
}
