package curve

import (
	"errors"
	"fmt"
	"math"

	"ivcurve/types"
)

// ErrIrradiance 辐照度不为正，无法换算到 STC
var ErrIrradiance = errors.New("irradiance must be positive")

// 换算系数
const (
	Alpha            = 0.04   // 电流温度系数 (%/°C)，公式中未使用
	Beta             = -0.3   // 电压温度系数 (%/°C)
	SeriesResistance = 0.5    // 串联电阻 (Ω)
	CurveCorrection  = 0.0004 // 曲线修正系数
)

// Correct 将实测曲线换算到标准测试条件 (1000 W/m², 25 °C)
func Correct(voltage, current []float64, g, t float64) (types.Curve, error) {
	return CorrectTo(voltage, current, g, t, types.IrradianceSTC, types.TemperatureSTC)
}

// CorrectTo 换算到指定的参考条件
//
//	I' = I*Gref/G
//	V' = V + V*β/100*(Tref-T) + Rs*(I'-I) + k*I'*(Tref-T)
func CorrectTo(voltage, current []float64, g, t, gRef, tRef float64) (types.Curve, error) {
	if !(g > 0) || math.IsInf(g, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrIrradiance, g)
	}
	if len(voltage) != len(current) {
		return nil, fmt.Errorf("sample count mismatch: %d voltages, %d currents", len(voltage), len(current))
	}
	dt := tRef - t
	c := make(types.Curve, len(voltage))
	for k, v := range voltage {
		i := current[k]
		iSTC := i * (gRef / g)
		vSTC := v + v*(Beta/100)*dt + SeriesResistance*(iSTC-i) + CurveCorrection*iSTC*dt
		c[k] = types.Point{V: vSTC, I: iSTC}
	}
	return c, nil
}
