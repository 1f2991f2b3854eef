package topology

import (
	"fmt"
	"strings"

	"github.com/awalterschulze/gographviz"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
)

const graphName = `topology`

// Describe renders the topology as a graphviz DOT directed graph.
func (t *Topology) Describe() (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName(graphName); err != nil {
		return ``, err
	}

	if err := g.SetDir(true); err != nil {
		return ``, err
	}

	if err := g.AddAttr(graphName, `label`, quote(t.name)); err != nil {
		return ``, err
	}

	if err := g.AddAttr(graphName, `splines`, `true`); err != nil {
		return ``, err
	}

	for _, p := range t.processors {
		if err := g.AddNode(graphName, nodeName(p.ID), nodeAttributes(p)); err != nil {
			return ``, errors.Wrapf(err, `node %d failed`, p.ID)
		}
	}

	for _, s := range t.streams {
		for _, e := range s.Edges() {
			attrs := map[string]string{
				`label`:    quote(fmt.Sprintf(`%s (%s)`, shortStreamName(s.id), e.Grouping)),
				`fontsize`: `9`,
			}

			if e.Grouping == GroupAll {
				attrs[`penwidth`] = `2`
			}

			if t.IsFeedback(e.Stream, e.Destination) {
				attrs[`style`] = `dashed`
			}

			if err := g.AddEdge(nodeName(e.Source), nodeName(e.Destination), true, attrs); err != nil {
				return ``, errors.Wrapf(err, `edge %s -> %d failed`, s.id, e.Destination)
			}
		}
	}

	return g.String(), nil
}

func nodeName(id ProcessorID) string {
	return fmt.Sprintf(`"p%d"`, id)
}

func nodeAttributes(p ProcessorInfo) map[string]string {
	attrs := map[string]string{
		`fontsize`: `10`,
		`style`:    `filled`,
	}

	if p.Entrance {
		attrs[`label`] = quote(fmt.Sprintf(`%d.Entrance\n%s`, p.ID, typeName(p.Node)))
		attrs[`fillcolor`] = `darkseagreen1`
		attrs[`shape`] = `box`
		attrs[`style`] = `"rounded,filled"`
		return attrs
	}

	attrs[`label`] = quote(fmt.Sprintf(`%d.Processor x%d\n%s`, p.ID, p.Parallelism, typeName(p.Node)))
	attrs[`fillcolor`] = `slateblue4`
	attrs[`fontcolor`] = `grey100`

	return attrs
}

func typeName(n Node) string {
	return strings.TrimPrefix(fmt.Sprintf(`%T`, n), `*`)
}

func shortStreamName(id StreamID) string {
	name := string(id)
	if i := strings.LastIndex(name, `/`); i >= 0 {
		return name[i+1:]
	}

	return name
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
