package engine

import (
	"math"

	"github.com/vk/starmirror/internal/render"
	"github.com/vk/starmirror/internal/varmodel"
)

// updateEcho shows a range's current position next to it, mapped onto a
// logarithmic scale when the variable asks for one.
func (e *Engine) updateEcho(b *binding) {
	raw := e.r.Attr(b.node, render.AttrValue)
	text := varmodel.FormatScalar(raw)
	if b.v.Log {
		if f, ok := varmodel.AsFloat(raw); ok {
			text = varmodel.FormatScalar(linearToLogarithm(b.v, f))
		}
	}
	e.r.SetAttr(b.echo, render.AttrText, text)
}

// linearToLogarithm maps a slider position in [min, max] onto a logarithmic
// scale over the same range. min defaults to 0 and max to 255.
func linearToLogarithm(v *varmodel.Variable, value float64) float64 {
	if value == 0 {
		return 0
	}
	minp := floatOr(v.Min, 0)
	maxp := floatOr(v.Max, defaultRangeMax)

	var minv float64
	if minp != 0 {
		minv = math.Log(minp)
	}
	maxv := math.Log(maxp)
	scale := (maxv - minv) / (maxp - minp)
	return math.Round(math.Exp(minv + scale*(value-minp)))
}
