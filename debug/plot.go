package debug

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"ivcurve/types"
)

// Plot 用 gonum/plot 绘制一条曲线的分析结果
func Plot(a *types.Analysis, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Voltage (V)"
	p.Y.Label.Text = "Current (A)"
	p.Legend.Top = true

	lines := []any{
		"ideal", xys(a.IdealCurve),
		"STC corrected", xys(a.CorrectedCurve),
	}
	for _, ic := range a.IrradianceCurves {
		lines = append(lines, fmt.Sprintf("%g W/m2", ic.Irradiance), xys(ic.Curve))
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, err
	}
	return p, nil
}

// SavePlot 保存为图片，格式由扩展名决定 (png, svg, pdf)
func SavePlot(a *types.Analysis, title, filename string) error {
	p, err := Plot(a, title)
	if err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, filename)
}

func xys(c types.Curve) plotter.XYs {
	pts := make(plotter.XYs, len(c))
	for i, pt := range c {
		pts[i].X, pts[i].Y = pt.V, pt.I
	}
	return pts
}
