// Command logicstream-demo runs a small family-tree relation and an
// aggregation query against it, printing both to stdout. It exists to give
// the package something runnable beyond its tests.
package main

import (
	"fmt"

	ls "github.com/dlashua/logicstream/pkg/logicstream"
)

func main() {
	parent := ls.NewFactTable(2, 0)
	parent.AddRow(ls.A("pam"), ls.A("bob"))
	parent.AddRow(ls.A("tom"), ls.A("bob"))
	parent.AddRow(ls.A("tom"), ls.A("liz"))
	parent.AddRow(ls.A("bob"), ls.A("ann"))
	parent.AddRow(ls.A("bob"), ls.A("pat"))

	fmt.Println("children of bob:")
	children := ls.Run(0, func(q *ls.Var) ls.Goal {
		return parent.Rel("parent", []ls.Term{ls.A("bob"), q}, ls.RelOptions{})
	})
	for _, c := range children {
		fmt.Println(" -", c)
	}

	fmt.Println()
	fmt.Println("grandparents grouped by grandchild:")
	q := ls.NewQuery()
	gp, gc := q.V("gp"), q.V("gc")
	mid := q.V("_")
	out := q.V("out")
	q.Where(
		ls.GroupByCollecto(gc, gp,
			ls.And(
				parent.Rel("parent", []ls.Term{gp, mid}, ls.RelOptions{}),
				parent.Rel("parent", []ls.Term{mid, gc}, ls.RelOptions{}),
			),
			out,
		),
	)
	q.Select(out)
	rows, err := q.ToSlice()
	if err != nil {
		fmt.Println("query error:", err)
		return
	}
	for _, row := range rows {
		fmt.Println(" -", row["out"])
	}
}
