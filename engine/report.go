package engine

import (
	"bytes"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/dursunkoc/incubator-samoa/topology"
	"github.com/olekukonko/tablewriter"
)

type instanceStats struct {
	processed  uint64
	emitted    uint64
	dropped    uint64
	terminals  uint64
	terminated uint32
}

// InstanceStats is a snapshot of the counters of one processor instance.
type InstanceStats struct {
	Processor topology.ProcessorID `json:"processor"`
	Instance  int                  `json:"instance"`
	// Processed counts the non terminal events handed to Process
	Processed uint64 `json:"processed"`
	Emitted   uint64 `json:"emitted"`
	// Dropped counts events lost to termination: emitted events refused by a terminated destination
	// and events left in the inbox of this instance when it terminated
	Dropped    uint64 `json:"dropped"`
	Terminals  uint64 `json:"terminals"`
	Terminated bool   `json:"terminated"`
}

func (s *instanceStats) snapshot(addr Address) InstanceStats {
	return InstanceStats{
		Processor:  addr.Processor,
		Instance:   addr.Instance,
		Processed:  atomic.LoadUint64(&s.processed),
		Emitted:    atomic.LoadUint64(&s.emitted),
		Dropped:    atomic.LoadUint64(&s.dropped),
		Terminals:  atomic.LoadUint64(&s.terminals),
		Terminated: atomic.LoadUint32(&s.terminated) == 1,
	}
}

// Report summarises a run per processor instance.
type Report struct {
	Topology  string          `json:"topology"`
	Instances []InstanceStats `json:"instances"`
}

func newReport(name string, stats map[Address]*instanceStats) *Report {
	r := &Report{Topology: name}
	for addr, s := range stats {
		r.Instances = append(r.Instances, s.snapshot(addr))
	}

	sort.Slice(r.Instances, func(i, j int) bool {
		if r.Instances[i].Processor == r.Instances[j].Processor {
			return r.Instances[i].Instance < r.Instances[j].Instance
		}
		return r.Instances[i].Processor < r.Instances[j].Processor
	})

	return r
}

// Instance returns the stats of one instance.
func (r *Report) Instance(id topology.ProcessorID, instance int) (InstanceStats, bool) {
	for _, s := range r.Instances {
		if s.Processor == id && s.Instance == instance {
			return s, true
		}
	}

	return InstanceStats{}, false
}

// Processed sums the processed events of every instance of id.
func (r *Report) Processed(id topology.ProcessorID) uint64 {
	var total uint64
	for _, s := range r.Instances {
		if s.Processor == id {
			total += s.Processed
		}
	}

	return total
}

// Terminated reports whether every instance reached its terminal marker.
func (r *Report) Terminated() bool {
	for _, s := range r.Instances {
		if !s.Terminated {
			return false
		}
	}

	return len(r.Instances) > 0
}

func (r *Report) String() string {
	buf := new(bytes.Buffer)
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{`Processor`, `Instance`, `Processed`, `Emitted`, `Dropped`, `Terminals`, `Terminated`})
	for _, s := range r.Instances {
		table.Append([]string{
			s.Processor.String(),
			fmt.Sprint(s.Instance),
			fmt.Sprint(s.Processed),
			fmt.Sprint(s.Emitted),
			fmt.Sprint(s.Dropped),
			fmt.Sprint(s.Terminals),
			fmt.Sprint(s.Terminated),
		})
	}
	table.Render()

	return buf.String()
}
