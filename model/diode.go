package model

import (
	"math"

	"ivcurve/types"
)

// ThermalVoltage 参考温度下的热电压 Vt = kT/q (V)
var ThermalVoltage = types.Boltzmann * types.ReferenceKelvin / types.ElementaryCharge

// Evaluate 单二极管等效电路的预测电流
//
//	I = I_L - I_0*(exp((V+I*R_s)/(n*V_t)) - 1) - (V+I*R_s)/R_sh
//
// 结果限制在 [0, I_L]，任何输入都返回有限值。
func Evaluate(v, i float64, p types.ModelParams) float64 {
	// 防止除零
	vt := math.Max(ThermalVoltage, types.Epsilon)
	rsh := math.Max(p.Rsh, types.Epsilon)
	n := math.Max(p.N, types.Epsilon)

	vd := v + i*p.Rs
	arg := vd / (n * vt)
	// 限幅防止指数溢出
	if arg > types.ExpLimit {
		arg = types.ExpLimit
	} else if arg < -types.ExpLimit {
		arg = -types.ExpLimit
	}
	result := p.IL - p.I0*(math.Exp(arg)-1) - vd/rsh
	return clamp(result, p.IL)
}

// clamp 限制到 [0, il]，NaN 归零
func clamp(x, il float64) float64 {
	switch {
	case math.IsNaN(x) || x < 0:
		return 0
	case x > il:
		return math.Max(il, 0)
	}
	return x
}

// Predict 对一组采样逐点计算预测电流
func Predict(voltage, current []float64, p types.ModelParams) []float64 {
	out := make([]float64, len(voltage))
	for k := range voltage {
		out[k] = Evaluate(voltage[k], current[k], p)
	}
	return out
}

// Objective 实测电流与预测电流差的绝对值之和
func Objective(voltage, current []float64, p types.ModelParams) float64 {
	var sum float64
	for k := range voltage {
		sum += math.Abs(current[k] - Evaluate(voltage[k], current[k], p))
	}
	return sum
}
