package curve

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"ivcurve/types"
)

// Synthesize 由 Voc, Isc, Vmpp, Impp 四个锚点生成理想 IV 曲线
// 调用方保证 0 < vmpp < voc 且 impp > 0。
//
//	v <= Vmpp: I = Isc - (Isc-Impp)*(v/Vmpp)^0.2
//	v >  Vmpp: I = Impp*((Voc-v)/(Voc-Vmpp))^3
//
// 首点为 (0, Isc)，末点固定为 (Voc, 0)。
func Synthesize(voc, isc, vmpp, impp float64, n int) types.Curve {
	if n < 2 {
		n = 2
	}
	voltage := floats.Span(make([]float64, n), 0, voc)
	voltage[n-1] = voc
	c := make(types.Curve, n)
	for k, v := range voltage {
		var i float64
		if v <= vmpp {
			i = isc - (isc-impp)*math.Pow(v/vmpp, 0.2)
		} else {
			i = impp * math.Pow((voc-v)/(voc-vmpp), 3)
		}
		c[k] = types.Point{V: v, I: math.Max(i, 0)}
	}
	c[n-1].I = 0
	return c
}

// Family 在各辐照度下缩放锚点并生成曲线族，基准 1000 W/m²
// Isc、Impp 按比例缩放，Voc、Vmpp 按 Vt*ln(G/1000) 平移。
// 平移后电压不为正时改为按比例缩放，保证 0 < Vmpp < Voc。
func Family(voc, isc, vmpp, impp float64, levels []float64, n int) []types.IrradianceCurve {
	if levels == nil {
		levels = types.IrradianceLevels()
	}
	out := make([]types.IrradianceCurve, 0, len(levels))
	for _, g := range levels {
		factor := g / types.IrradianceSTC
		vo, vm := shifted(voc, vmpp, factor)
		out = append(out, types.IrradianceCurve{
			Irradiance: g,
			Curve:      Synthesize(vo, isc*factor, vm, impp*factor, n),
		})
	}
	return out
}

// shifted 辐照度变化后的 Voc 和 Vmpp
func shifted(voc, vmpp, factor float64) (float64, float64) {
	shift := types.ThermalVoltage * math.Log(factor)
	vo, vm := voc+shift, vmpp+shift
	if vo <= 0 {
		vo = voc * factor
	}
	if vm <= 0 || vm >= vo {
		vm = vo * vmpp / voc
	}
	return vo, vm
}
