package svg

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	minsvg "github.com/tdewolff/minify/v2/svg"
)

const mediaType = "image/svg+xml"

// Optimizer shrinks SVG markup. It is safe for concurrent use.
type Optimizer struct {
	m *minify.M
}

// NewOptimizer builds an Optimizer with the given decimal precision for
// numbers and path data. Zero keeps full precision.
func NewOptimizer(precision int) *Optimizer {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add(mediaType, &minsvg.Minifier{Precision: precision})
	return &Optimizer{m: m}
}

var defaultOptimizer = NewOptimizer(0)

// Optimize runs the default size pass.
func (d *Document) Optimize() error {
	return defaultOptimizer.Optimize(d)
}

// Optimize minifies the document and replaces its tree with the result.
func (o *Optimizer) Optimize(d *Document) error {
	out, err := o.m.String(mediaType, d.String())
	if err != nil {
		return fmt.Errorf("minify svg: %w", err)
	}
	next, err := Parse(out)
	if err != nil {
		return fmt.Errorf("reparse optimized svg: %w", err)
	}
	d.doc, d.root = next.doc, next.root
	return nil
}
