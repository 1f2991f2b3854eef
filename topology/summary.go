package topology

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
)

// Summary renders the processors and stream edges of the topology as text tables.
func (t *Topology) Summary() string {
	buf := new(bytes.Buffer)

	processors := tablewriter.NewWriter(buf)
	processors.SetHeader([]string{`ID`, `Type`, `Kind`, `Parallelism`, `Outbound`, `Expected terminals`})
	for _, p := range t.processors {
		kind := `processor`
		if p.Entrance {
			kind = `entrance`
		}
		processors.Append([]string{
			p.ID.String(),
			typeName(p.Node),
			kind,
			fmt.Sprint(p.Parallelism),
			fmt.Sprint(len(t.outbound[p.ID])),
			fmt.Sprint(t.ExpectedTerminals(p.ID)),
		})
	}
	processors.Render()

	streams := tablewriter.NewWriter(buf)
	streams.SetHeader([]string{`Stream`, `Source`, `Destination`, `Grouping`, `Feedback`})
	for _, s := range t.streams {
		for _, e := range s.Edges() {
			streams.Append([]string{
				string(e.Stream),
				e.Source.String(),
				e.Destination.String(),
				e.Grouping.String(),
				fmt.Sprint(t.IsFeedback(e.Stream, e.Destination)),
			})
		}
	}
	streams.Render()

	return buf.String()
}
