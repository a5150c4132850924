package solver

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// WriteLP writes p in CPLEX LP format. Display labels that differ from
// the solver names are listed as comments.
func WriteLP(w io.Writer, p *Problem) error {
	bw := bufio.NewWriter(w)
	name := p.Name
	if name == "" {
		name = "model"
	}
	fmt.Fprintf(bw, "\\ Problem: %s\n", name)
	for _, c := range p.cols {
		if c.Label != c.Name {
			fmt.Fprintf(bw, "\\ %s = %s\n", c.Name, strconv.Quote(c.Label))
		}
	}
	for _, r := range p.rows {
		if r.Label != r.Name {
			fmt.Fprintf(bw, "\\ %s = %s\n", r.Name, strconv.Quote(r.Label))
		}
	}
	if p.objConst != 0 {
		fmt.Fprintf(bw, "\\ objective constant: %s\n", number(p.objConst))
	}

	if p.sense == Maximize {
		bw.WriteString("Maximize\n")
	} else {
		bw.WriteString("Minimize\n")
	}
	fmt.Fprintf(bw, " obj:%s\n", linear(p, p.objective))

	bw.WriteString("Subject To\n")
	for _, r := range p.rows {
		fmt.Fprintf(bw, " %s:%s %s %s\n", r.Name, linear(p, r.Terms), r.Rel, number(r.RHS))
	}

	var bounds, general, binary []string
	for _, c := range p.cols {
		switch {
		case c.Binary():
			binary = append(binary, c.Name)
			continue
		case c.Integer:
			general = append(general, c.Name)
		}
		lo, hi := !math.IsInf(c.Lower, -1), !math.IsInf(c.Upper, 1)
		switch {
		case !lo && !hi:
			bounds = append(bounds, c.Name+" free")
		case lo && hi && c.Lower == c.Upper:
			bounds = append(bounds, c.Name+" = "+number(c.Lower))
		case lo && hi:
			bounds = append(bounds, number(c.Lower)+" <= "+c.Name+" <= "+number(c.Upper))
		case !lo:
			bounds = append(bounds, "-inf <= "+c.Name+" <= "+number(c.Upper))
		case c.Lower != 0:
			bounds = append(bounds, c.Name+" >= "+number(c.Lower))
		}
	}
	section(bw, "Bounds", bounds)
	section(bw, "General", general)
	section(bw, "Binary", binary)
	bw.WriteString("End\n")
	return bw.Flush()
}

func section(w *bufio.Writer, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	w.WriteString(title + "\n")
	for _, l := range lines {
		w.WriteString(" " + l + "\n")
	}
}

func linear(p *Problem, terms []Term) string {
	if len(terms) == 0 {
		return " 0"
	}
	var b strings.Builder
	for i, t := range terms {
		coef := t.Coef
		switch {
		case coef < 0:
			b.WriteString(" - ")
			coef = -coef
		case i > 0:
			b.WriteString(" + ")
		default:
			b.WriteString(" ")
		}
		if coef != 1 {
			b.WriteString(number(coef) + " ")
		}
		b.WriteString(p.cols[t.Col].Name)
	}
	return b.String()
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
