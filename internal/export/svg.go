package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/hybridsim/internal/sim"
)

type Point struct{ X, Y float64 }

// Hysteresis returns the force against measured displacement of one basic
// direction of an element.
func Hysteresis(res *sim.Result, elementID, dir int) []Point {
	_, measured, force := res.Element(elementID)
	pts := make([]Point, 0, len(force))
	for i := range force {
		if dir >= len(force[i]) || dir >= len(measured[i]) {
			continue
		}
		pts = append(pts, Point{X: measured[i][dir], Y: force[i][dir]})
	}
	return pts
}

// History returns the displacement of one free DOF over time.
func History(res *sim.Result, eq int) []Point {
	pts := make([]Point, 0, len(res.Samples))
	for _, s := range res.Samples {
		if eq < len(s.Disp) {
			pts = append(pts, Point{X: s.Time, Y: s.Disp[eq]})
		}
	}
	return pts
}

// PathSVG draws the points as a polyline scaled to the canvas, with the
// zero axes when they fall inside the plotted range.
func PathSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	sx := func(x float64) float64 { return (x - minX) / rangeX * float64(width) }
	sy := func(y float64) float64 { return float64(height) - (y-minY)/rangeY*float64(height) }

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	if minX < 0 && maxX > 0 {
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="0" x2="%.1f" y2="%d" stroke="#444" stroke-width="1"/>
`, sx(0), sx(0), height))
	}
	if minY < 0 && maxY > 0 {
		sb.WriteString(fmt.Sprintf(`<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444" stroke-width="1"/>
`, sy(0), width, sy(0)))
	}

	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))
	for i, p := range points {
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", sx(p.X), sy(p.Y)))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", sx(p.X), sy(p.Y)))
		}
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
