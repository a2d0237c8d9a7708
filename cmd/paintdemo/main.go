// Command paintdemo paints a small scene with the paint engine and saves it
// as a PNG and, optionally, as a project file.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/paint"
)

func main() {
	var (
		width   = flag.Int("width", 800, "canvas width")
		height  = flag.Int("height", 600, "canvas height")
		output  = flag.String("output", "demo.png", "output PNG file")
		proj    = flag.String("project", "", "also save the layers to this project file")
		config  = flag.String("config", "", "TOML configuration file")
		brushes = flag.String("brushes", "", "ABR brush archive; its first preset paints the ribbon")
		verbose = flag.Bool("v", false, "log engine diagnostics")
	)
	flag.Parse()

	if *verbose {
		paint.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := paint.DefaultConfig()
	if *config != "" {
		c, err := paint.LoadConfig(*config)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = c
	}

	e := paint.NewEngine(*width, *height, paint.WithConfig(cfg))
	defer e.Close()

	drawBackground(e)
	drawShapes(e)
	drawRibbon(e, *brushes)
	drawStar(e)

	if err := e.ExportPNG(*output); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	if *proj != "" {
		if err := e.SaveProject(*proj); err != nil {
			log.Fatalf("Failed to save project: %v", err)
		}
	}
	log.Printf("Demo saved to %s (%dx%d, %d layers)\n", *output, e.Width(), e.Height(), e.LayerCount())
}

func drawBackground(e *paint.Engine) {
	_ = e.SetLayerName(0, "Background")
	steps := 50
	h := e.Height()
	for i := range steps {
		t := float64(i) / float64(steps)
		e.SetColor(paint.RGB(0.1+t*0.4, 0.2+t*0.3, 0.4+t*0.2))
		y := h * i / steps
		e.SelectRect(0, y, e.Width(), h/steps+1, paint.SelectReplace)
		_ = e.FillLayer(0)
	}
	e.Deselect()
}

func drawShapes(e *paint.Engine) {
	_, _ = e.AddLayer("Shapes")
	e.SetProfile(e.Profile().WithSize(6).WithHardness(1))
	for i, c := range []paint.Color{paint.Red, paint.Green, paint.Blue} {
		e.SetColor(c)
		e.SetTool(paint.ToolEllipse)
		x := 100 + float64(i)*50
		gesture(e, [][2]float64{{x, 100}, {x + 120, 220}})
	}
	e.SetColor(paint.RGB(1, 0.8, 0))
	e.SetTool(paint.ToolRect)
	gesture(e, [][2]float64{{350, 100}, {470, 180}})
	e.SetTool(paint.ToolLine)
	gesture(e, [][2]float64{{350, 200}, {470, 260}})
}

func drawRibbon(e *paint.Engine, archive string) {
	i, _ := e.AddLayer("Ribbon")
	_ = e.SetLayerMode(i, paint.Screen)

	pr := e.Profile().WithSize(24).WithHardness(0.4).WithTip("soft")
	if archive != "" {
		data, err := os.ReadFile(archive)
		if err != nil {
			log.Fatalf("Failed to read brushes: %v", err)
		}
		cat, err := e.ImportBrushes(context.Background(), data)
		if err != nil {
			log.Fatalf("Failed to import brushes: %v", err)
		}
		for _, g := range cat.Groups {
			if len(g.Presets) > 0 {
				pr = g.Presets[0].Profile
				log.Printf("Painting with %q from %q", g.Presets[0].Name, g.Name)
				break
			}
		}
	}
	e.SetProfile(pr)
	e.SetTool(paint.ToolBrush)
	e.SetColor(paint.RGB(1, 0.5, 0))

	var pts [][2]float64
	for x := 100.0; x <= 700; x += 5 {
		pts = append(pts, [2]float64{x, 420 + 50*math.Sin(x/50)})
	}
	gesture(e, pts)
}

func drawStar(e *paint.Engine) {
	_, _ = e.AddLayer("Star")
	const points = 5
	var star []paint.Point
	for i := range points * 2 {
		r := 60.0
		if i%2 == 1 {
			r = 30
		}
		a := float64(i)*math.Pi/points - math.Pi/2
		star = append(star, paint.Point{X: 650 + r*math.Cos(a), Y: 150 + r*math.Sin(a)})
	}
	e.SelectPolygon(star, paint.SelectReplace)
	e.SetColor(paint.HSL(50, 1, 0.5))
	_ = e.FillLayer(e.ActiveLayer())
	e.Deselect()

	if err := e.StartTransform(); err == nil {
		_ = e.SetTransform(paint.RotateAt(math.Pi/10, 650, 150))
		_ = e.ApplyTransform()
	}
}

func gesture(e *paint.Engine, pts [][2]float64) {
	e.PointerDown(paint.PointerEvent{X: pts[0][0], Y: pts[0][1], Pressure: 1})
	for _, p := range pts[1:] {
		e.PointerMove(paint.PointerEvent{X: p[0], Y: p[1], Pressure: 1})
	}
	last := pts[len(pts)-1]
	e.PointerUp(paint.PointerEvent{X: last[0], Y: last[1], Pressure: 1})
}
