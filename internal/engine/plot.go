package engine

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plotScores draws the predicted anomaly probabilities over the ground truth
// labels and saves the figure. The format follows the file extension.
func plotScores(path, title string, proba []float64, labels []int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Anomaly score"
	p.Y.Min = 0
	p.Y.Max = 1.05

	truth := make(plotter.XYs, len(labels))
	scores := make(plotter.XYs, len(proba))
	for i := range proba {
		truth[i].X = float64(i)
		truth[i].Y = float64(labels[i])
		scores[i].X = float64(i)
		scores[i].Y = proba[i]
	}

	gt, err := plotter.NewLine(truth)
	if err != nil {
		return err
	}
	gt.Color = color.RGBA{R: 200, G: 50, B: 50, A: 255}
	gt.LineStyle.Width = vg.Points(1)
	p.Add(gt)
	p.Legend.Add("ground truth", gt)

	sc, err := plotter.NewLine(scores)
	if err != nil {
		return err
	}
	sc.Color = color.RGBA{R: 50, G: 50, B: 255, A: 255}
	sc.LineStyle.Width = vg.Points(1.5)
	p.Add(sc)
	p.Legend.Add("anomaly score", sc)
	p.Legend.Top = true

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}
