package debug

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	ivtypes "ivcurve/types"
)

// Charts 曲线绘制
type Charts struct {
	Record
}

// Render 每条成功曲线输出两张图：实测换算/理想曲线，以及辐照度曲线族
func (c *Charts) Render(w io.Writer) error {
	page := components.NewPage()
	page.SetPageTitle("IV 曲线诊断")
	for n, a := range c.Analyses {
		k := c.Index[n]
		curves := newLine(fmt.Sprintf("曲线 %d", k), faultSubtitle(a.Faults))
		curves.AddSeries("理想曲线", lineData(a.IdealCurve), seriesOpts()...)
		curves.AddSeries("STC 换算曲线", lineData(a.CorrectedCurve), seriesOpts()...)

		family := newLine(fmt.Sprintf("曲线 %d 辐照度曲线族", k), "Voc、Isc 随辐照度变化")
		for _, ic := range a.IrradianceCurves {
			family.AddSeries(fmt.Sprintf("%g W/m²", ic.Irradiance), lineData(ic.Curve), seriesOpts()...)
		}
		page.AddCharts(curves, family)
	}
	return page.Render(w)
}

// Handler 发布到网页面
func (c *Charts) Handler(w http.ResponseWriter, _ *http.Request) {
	if err := c.Render(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func newLine(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "value",
			Name: "V",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Name:  "A",
			Scale: opts.Bool(true),
		}),
	)
	return line
}

func seriesOpts() []charts.SeriesOpts {
	return []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{
			ShowSymbol: opts.Bool(false),
		}),
	}
}

func lineData(c ivtypes.Curve) []opts.LineData {
	items := make([]opts.LineData, len(c))
	for i, p := range c {
		items[i] = opts.LineData{Value: []float64{p.V, p.I}}
	}
	return items
}

func faultSubtitle(faults []string) string {
	switch len(faults) {
	case 0:
		return "未发现故障"
	case 1:
		return faults[0]
	}
	return fmt.Sprintf("%s 等 %d 项", faults[0], len(faults))
}
