package curve

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivcurve/types"
)

func TestSynthesizeAnchors(t *testing.T) {
	c := Synthesize(40, 9, 32, 8.3, 100)
	require.Len(t, c, 100)
	assert.Equal(t, types.Point{V: 0, I: 9}, c[0])
	assert.Equal(t, types.Point{V: 40, I: 0}, c[99])
	for k, p := range c {
		assert.GreaterOrEqual(t, p.I, 0.0, "第 %d 点电流为负", k)
		if k > 0 {
			assert.Greater(t, p.V, c[k-1].V, "电压必须严格递增")
		}
	}
}

func TestSynthesizeMonotone(t *testing.T) {
	anchors := [][4]float64{
		{40, 9, 32, 8.3},
		{0.6, 3.2, 0.48, 3.0},
		{49.5, 11.2, 41.1, 10.7},
		{12, 1, 11.9, 0.2},
	}
	for _, a := range anchors {
		c := Synthesize(a[0], a[1], a[2], a[3], 200)
		for k := 1; k < len(c); k++ {
			assert.LessOrEqual(t, c[k].I, c[k-1].I, "锚点 %v 第 %d 点电流上升", a, k)
		}
		first, _ := c.First()
		last, _ := c.Last()
		assert.Equal(t, types.Point{V: 0, I: a[1]}, first)
		assert.Equal(t, types.Point{V: a[0], I: 0}, last)
	}
}

func TestSynthesizeMinPoints(t *testing.T) {
	c := Synthesize(10, 2, 8, 1.5, 0)
	assert.Equal(t, types.Curve{{V: 0, I: 2}, {V: 10, I: 0}}, c)
}

func TestFamily(t *testing.T) {
	fam := Family(40, 9, 32, 8.3, nil, 50)
	require.Len(t, fam, 5)
	want := []float64{200, 400, 600, 800, 1000}
	for k, ic := range fam {
		assert.Equal(t, want[k], ic.Irradiance)
		assert.Len(t, ic.Curve, 50)
	}

	// 1000 W/m² 下与参考曲线一致
	stc := fam[len(fam)-1].Curve
	if diff := cmp.Diff(Synthesize(40, 9, 32, 8.3, 50), stc); diff != "" {
		t.Errorf("1000 W/m² 曲线不一致 (-want +got):\n%s", diff)
	}

	// 低辐照度下电流按比例缩小
	low := fam[0].Curve
	assert.InDelta(t, 9*0.2, low[0].I, 1e-12)
	last, _ := low.Last()
	assert.Less(t, last.V, 40.0)
	assert.Equal(t, 0.0, last.I)
}

func TestFamilyLevels(t *testing.T) {
	fam := Family(40, 9, 32, 8.3, []float64{500}, 10)
	require.Len(t, fam, 1)
	first, _ := fam[0].Curve.First()
	opt := cmpopts.EquateApprox(0, 1e-12)
	if diff := cmp.Diff(types.Point{V: 0, I: 4.5}, first, opt); diff != "" {
		t.Errorf("首点 (-want +got):\n%s", diff)
	}
}

func TestFamilyLowVoltage(t *testing.T) {
	// 单体电池级别的小电压，平移量超过 Vmpp
	const voc, isc, vmpp, impp = 0.03, 1.0, 0.02, 0.9
	fam := Family(voc, isc, vmpp, impp, nil, 20)
	require.Len(t, fam, 5)
	for _, ic := range fam {
		factor := ic.Irradiance / types.IrradianceSTC
		first, _ := ic.Curve.First()
		last, _ := ic.Curve.Last()
		assert.Equal(t, 0.0, first.V, "%g W/m²", ic.Irradiance)
		assert.InDelta(t, isc*factor, first.I, 1e-12, "%g W/m² 首点应为 (0, Isc)", ic.Irradiance)
		assert.Positive(t, last.V)
		assert.Equal(t, 0.0, last.I)
		for k := 1; k < len(ic.Curve); k++ {
			assert.LessOrEqual(t, ic.Curve[k].I, ic.Curve[k-1].I)
			assert.GreaterOrEqual(t, ic.Curve[k].I, 0.0)
		}
	}
	// 基准辐照度不受影响
	if diff := cmp.Diff(Synthesize(voc, isc, vmpp, impp, 20), fam[4].Curve); diff != "" {
		t.Errorf("1000 W/m² 曲线不一致 (-want +got):\n%s", diff)
	}
}
