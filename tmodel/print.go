package tmodel

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gonum/matrix/mat64"
)

// PrintQ prints a Q or P matrix with state labels. Diagonal elements
// of Q are not independent rates, if diag is true they are printed as
// '*'.
func PrintQ(w io.Writer, Q mat64.Matrix, labels []string, diag bool) error {
	r, c := Q.Dims()
	if r != len(labels) || c != len(labels) {
		return fmt.Errorf("%w: %d labels for %dx%d matrix", ErrLabels, len(labels), r, c)
	}
	var b bytes.Buffer
	for _, l := range labels {
		fmt.Fprint(&b, "\t", l)
	}
	fmt.Fprintln(&b)
	for i, l := range labels {
		fmt.Fprint(&b, l)
		for j := range labels {
			if i == j && diag {
				fmt.Fprint(&b, "\t*")
				continue
			}
			fmt.Fprintf(&b, "\t%0.4f", Q.At(i, j))
		}
		fmt.Fprintln(&b)
	}
	_, err := w.Write(b.Bytes())
	return err
}

// Show prints the model name, its parameters and the rate matrix.
func Show(w io.Writer, m Model) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s:\n", m.Name())
	switch m := m.(type) {
	case *BinaryModel:
		l := m.labels
		fmt.Fprintf(&b, "rate %s→%s α=%g\n", l[0], l[1], m.alpha)
		fmt.Fprintf(&b, "rate %s→%s β=%g\n", l[1], l[0], m.beta)
	case *TwoBinaryModel:
		l, r := m.TraitLabels(), m.rates
		fmt.Fprintf(&b, "rate %s→%s if %s: α1=%g\n", l[0], l[1], l[2], r[0])
		fmt.Fprintf(&b, "rate %s→%s if %s: β1=%g\n", l[1], l[0], l[2], r[1])
		fmt.Fprintf(&b, "rate %s→%s if %s: α2=%g\n", l[0], l[1], l[3], r[2])
		fmt.Fprintf(&b, "rate %s→%s if %s: β2=%g\n", l[1], l[0], l[3], r[3])
		fmt.Fprintf(&b, "rate %s→%s if %s: α3=%g\n", l[2], l[3], l[0], r[4])
		fmt.Fprintf(&b, "rate %s→%s if %s: β3=%g\n", l[3], l[2], l[0], r[5])
		fmt.Fprintf(&b, "rate %s→%s if %s: α4=%g\n", l[2], l[3], l[1], r[6])
		fmt.Fprintf(&b, "rate %s→%s if %s: β4=%g\n", l[3], l[2], l[1], r[7])
	case *EqualRatesModel:
		fmt.Fprintf(&b, "all rates equal to α=%g\n", m.alpha)
		fmt.Fprintf(&b, "%d states\n", m.k)
	default:
		fmt.Fprintf(&b, "rates: %v\n", m.Rates())
	}
	q, err := Q(m)
	if err != nil {
		return err
	}
	fmt.Fprintln(&b, "rate matrix Q:")
	if err := PrintQ(&b, q, m.Labels(), true); err != nil {
		return err
	}
	_, err = w.Write(b.Bytes())
	return err
}

// modelString returns the Show output as a string.
func modelString(m Model) string {
	var b bytes.Buffer
	if err := Show(&b, m); err != nil {
		return m.Name() + ": " + err.Error()
	}
	return b.String()
}
