package curve

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"ivcurve/types"
)

// ErrEmptyInput 过滤后没有可用采样
var ErrEmptyInput = errors.New("no valid measurements after filtering zero or negative values")

// Filter 去掉电压或电流不为正或非有限的采样，保持原有顺序
func Filter(samples []types.Sample) []types.Sample {
	out := make([]types.Sample, 0, len(samples))
	for _, s := range samples {
		if s.V > 0 && s.I > 0 && !math.IsInf(s.V, 1) && !math.IsInf(s.I, 1) {
			out = append(out, s)
		}
	}
	return out
}

// Extract 由实测采样和铭牌值计算关键参数
// 最大功率点取 V*I 最大的第一个采样；效率按 1000 W/m² 和参考面积 area 计算。
func Extract(voltage, current []float64, voc, isc, pmax, area float64) (types.KeyParams, error) {
	if len(voltage) == 0 || len(voltage) != len(current) {
		return types.KeyParams{}, ErrEmptyInput
	}
	power := make([]float64, len(voltage))
	floats.MulTo(power, voltage, current)
	mpp := floats.MaxIdx(power)
	vmpp, impp := voltage[mpp], current[mpp]
	if area <= 0 {
		area = types.ReferenceArea
	}
	return types.KeyParams{
		Voc:        voc,
		Isc:        isc,
		Vmpp:       vmpp,
		Impp:       impp,
		Pmax:       pmax,
		FF:         (vmpp * impp) / (voc * isc),
		Efficiency: pmax / (types.IrradianceSTC * area) * 100,
	}, nil
}
