package api

import (
	"bytes"

	"github.com/fogleman/gg"

	"arena/internal/game"
)

const previewWidth = 360

var biomeFloor = map[game.Biome][3]float64{
	"grass":    {0.18, 0.30, 0.16},
	"desert":   {0.42, 0.36, 0.22},
	"snow":     {0.55, 0.58, 0.62},
	"volcanic": {0.22, 0.12, 0.10},
}

var teamColors = map[int][3]float64{
	0: {0.85, 0.85, 0.85},
	1: {0.30, 0.55, 0.95},
	2: {0.95, 0.40, 0.30},
}

// renderPreview draws a minimap of the match's current state as a PNG.
func renderPreview(m *game.Match) ([]byte, error) {
	init := m.InitialStateFor(0, true)
	snap := m.Snapshot()

	scale := previewWidth / init.WorldW
	w := previewWidth
	h := int(init.WorldH * scale)
	dc := gg.NewContext(w, h)

	// World coordinates are centered with Y up; image coordinates start at
	// the top-left with Y down.
	px := func(x float64) float64 { return (x + init.WorldW/2) * scale }
	py := func(y float64) float64 { return (init.WorldH/2 - y) * scale }

	floor, ok := biomeFloor[init.Biome]
	if !ok {
		floor = biomeFloor["grass"]
	}
	dc.SetRGB(floor[0], floor[1], floor[2])
	dc.Clear()

	dc.SetRGB(0.35, 0.35, 0.35)
	for _, o := range init.Obstacles {
		switch o.Shape {
		case game.ObstacleCircle:
			dc.DrawCircle(px(o.Pos.X), py(o.Pos.Y), o.W/2*scale)
		default:
			dc.DrawRectangle(px(o.Pos.X-o.W/2), py(o.Pos.Y+o.H/2), o.W*scale, o.H*scale)
		}
		dc.Fill()
	}

	for _, z := range snap.Zones {
		c := teamColors[z.Team]
		dc.SetRGBA(c[0], c[1], c[2], 0.35)
		dc.DrawCircle(px(z.Pos.X), py(z.Pos.Y), z.Radius*scale)
		dc.Fill()
	}

	for _, f := range snap.Flags {
		c := teamColors[f.Team]
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawCircle(px(f.Pos.X), py(f.Pos.Y), 3)
		dc.Fill()
	}

	for _, p := range snap.Players {
		if !p.Alive {
			continue
		}
		c := teamColors[p.Team]
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawCircle(px(p.Pos.X), py(p.Pos.Y), 2.5)
		dc.Fill()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
