package lsp

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/cw"
)

// DocumentColor handles textDocument/documentColor requests: every rgb, hsv
// and hsv360 block whose components are all numbers gets a swatch.
func (s *Server) DocumentColor(_ context.Context, params *protocol.DocumentColorParams) ([]protocol.ColorInformation, error) {
	s.logger.Debug("DocumentColor", zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Analysis == nil || doc.Analysis.Module == nil {
		return nil, nil
	}

	f := doc.Analysis

	var colors []protocol.ColorInformation

	cw.Inspect(f.Module, func(n cw.Node) bool {
		c, ok := n.(*cw.Color)
		if !ok {
			return true
		}

		if rgba, ok := colorOf(c); ok {
			colors = append(colors, protocol.ColorInformation{
				Range: spanToRange(f, c.Span()),
				Color: rgba,
			})
		}

		return false
	})

	return colors, nil
}

// ColorPresentation handles textDocument/colorPresentation requests.
func (s *Server) ColorPresentation(_ context.Context, params *protocol.ColorPresentationParams) ([]protocol.ColorPresentation, error) {
	c := params.Color

	text := fmt.Sprintf("rgb { %d %d %d }", byte255(c.Red), byte255(c.Green), byte255(c.Blue))
	if c.Alpha < 1 {
		text = fmt.Sprintf("rgb { %d %d %d %d }", byte255(c.Red), byte255(c.Green), byte255(c.Blue), byte255(c.Alpha))
	}

	return []protocol.ColorPresentation{{Label: text}}, nil
}

// colorOf converts a color block to RGBA in [0, 1]. rgb components above 1
// are read on the 0-255 scale; hsv is in [0, 1] and hsv360 uses degrees and
// percentages.
func colorOf(c *cw.Color) (protocol.Color, bool) {
	if len(c.Components) < 3 {
		return protocol.Color{}, false
	}

	v := make([]float64, len(c.Components))

	for i, comp := range c.Components {
		n, ok := comp.(*cw.Number)
		if !ok {
			return protocol.Color{}, false
		}

		f, err := strconv.ParseFloat(n.Text, 64)
		if err != nil {
			return protocol.Color{}, false
		}

		v[i] = f
	}

	alpha := 1.0

	switch c.Kind {
	case "rgb":
		scale := 1.0
		for _, x := range v {
			if x > 1 {
				scale = 255

				break
			}
		}

		if len(v) > 3 {
			alpha = v[3] / scale
		}

		return protocol.Color{Red: clamp(v[0] / scale), Green: clamp(v[1] / scale), Blue: clamp(v[2] / scale), Alpha: clamp(alpha)}, true
	case "hsv":
		if len(v) > 3 {
			alpha = v[3]
		}

		return hsvToRGB(v[0], v[1], v[2], alpha), true
	case "hsv360":
		if len(v) > 3 {
			alpha = v[3] / 100
		}

		return hsvToRGB(v[0]/360, v[1]/100, v[2]/100, alpha), true
	}

	return protocol.Color{}, false
}

func hsvToRGB(h, s, v, a float64) protocol.Color {
	h, s, v = clamp(h), clamp(s), clamp(v)

	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64

	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}

	return protocol.Color{Red: r, Green: g, Blue: b, Alpha: clamp(a)}
}

func clamp(x float64) float64 { return math.Max(0, math.Min(1, x)) }

func byte255(x float64) int { return int(math.Round(clamp(x) * 255)) }
