package main

import (
	"bufio"
	"fmt"
	"io"

	"bitbucket.org/Davydov/traitsim/tmodel"
	"bitbucket.org/Davydov/traitsim/tsim"
)

// writeStates writes the simulated states as a tab-separated table,
// one trait per line. If indices is false, states are written as
// model labels.
func writeStates(w io.Writer, res *tsim.Result, m tmodel.Model, indices bool) error {
	var names [][]string
	if !indices {
		var err error
		if names, err = res.StateLabels(m); err != nil {
			return err
		}
	}
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "trait")
	for _, l := range res.Labels {
		fmt.Fprint(bw, "\t", l)
	}
	fmt.Fprintln(bw)
	for i, row := range res.States {
		fmt.Fprint(bw, i+1)
		for j, s := range row {
			if indices {
				fmt.Fprintf(bw, "\t%d", s)
			} else {
				fmt.Fprint(bw, "\t", names[i][j])
			}
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}
