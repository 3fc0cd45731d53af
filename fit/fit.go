package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"ivcurve/maths"
	"ivcurve/model"
	"ivcurve/types"
)

// Settings 拟合参数
type Settings struct {
	DE         maths.DESettings // 全局搜索
	Polish     bool             // 全局搜索收敛后是否做局部精修
	PolishIter int              // 精修最大迭代次数
}

// DefaultSettings 默认拟合参数
func DefaultSettings() Settings {
	return Settings{
		DE:         maths.DefaultDESettings(),
		Polish:     true,
		PolishIter: 500,
	}
}

// Fit 拟合单二极管模型五参数，总是返回结果
// 未收敛或内部异常时返回经验参数，并置 Fallback。
func Fit(voltage, current []float64, set Settings) (res types.FitResult) {
	if len(voltage) == 0 || len(voltage) != len(current) {
		return fallback(voltage, current, fmt.Sprintf("sample count mismatch: %d voltages, %d currents", len(voltage), len(current)))
	}
	if !finite(voltage) || !finite(current) {
		return fallback(voltage, current, "non-finite samples")
	}
	defer func() {
		if r := recover(); r != nil {
			res = fallback(voltage, current, fmt.Sprintf("optimizer panic: %v", r))
		}
	}()

	bounds := types.ParamBounds(floats.Max(current))
	objective := func(x []float64) float64 {
		return model.Objective(voltage, current, types.ModelParamsFrom(x))
	}
	r, err := maths.DE(objective, bounds[:], set.DE)
	if err != nil {
		return fallback(voltage, current, err.Error())
	}
	if !r.Converged {
		res = fallback(voltage, current, "maximum number of iterations has been exceeded")
		res.Iterations, res.Evaluations = r.Iterations, r.Evaluations
		return res
	}

	x, f := r.X, r.F
	evaluations := r.Evaluations
	if set.Polish {
		px, pf, n := polish(objective, bounds, x, set.PolishIter)
		evaluations += n
		if pf < f {
			x, f = px, pf
		}
	}
	res = quality(voltage, current, types.ModelParamsFrom(x).Clamp(bounds))
	res.Converged = true
	res.Iterations = r.Iterations
	res.Evaluations = evaluations
	return res
}

// polish 在单位超立方体内用 Nelder-Mead 局部精修
func polish(objective func([]float64) float64, bounds [5][2]float64, x0 []float64, iter int) ([]float64, float64, int) {
	toX := func(u []float64) []float64 {
		x := make([]float64, len(u))
		for j, b := range bounds {
			x[j] = b[0] + math.Min(math.Max(u[j], 0), 1)*(b[1]-b[0])
		}
		return x
	}
	u0 := make([]float64, len(x0))
	for j, b := range bounds {
		if span := b[1] - b[0]; span > 0 {
			u0[j] = (x0[j] - b[0]) / span
		}
	}
	problem := optimize.Problem{
		Func: func(u []float64) float64 { return objective(toX(u)) },
	}
	settings := &optimize.Settings{
		MajorIterations: iter,
		Concurrent:      1,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Iterations: 50,
		},
	}
	result, err := optimize.Minimize(problem, u0, settings, &optimize.NelderMead{})
	if result == nil || (err != nil && math.IsInf(result.F, 1)) || math.IsNaN(result.F) {
		return x0, math.Inf(1), 0
	}
	return toX(result.X), result.F, result.FuncEvaluations
}

// fallback 经验参数
func fallback(voltage, current []float64, reason string) types.FitResult {
	var maxI float64
	if len(current) > 0 {
		maxI = floats.Max(current)
	}
	if math.IsNaN(maxI) || math.IsInf(maxI, 0) {
		maxI = 0
	}
	var res types.FitResult
	if len(voltage) == len(current) && len(voltage) > 0 && finite(voltage) && finite(current) {
		res = quality(voltage, current, types.FallbackParams(maxI))
	} else {
		res.Params = types.FallbackParams(maxI)
	}
	res.Fallback = true
	res.Reason = reason
	return res
}

// quality 计算残差指标
func quality(voltage, current []float64, p types.ModelParams) types.FitResult {
	predicted := model.Predict(voltage, current, p)
	var sum, sq float64
	for k := range current {
		d := current[k] - predicted[k]
		sum += math.Abs(d)
		sq += d * d
	}
	res := types.FitResult{
		Params:    p,
		Objective: sum,
		RMSE:      math.Sqrt(sq / float64(len(current))),
	}
	if r2 := stat.RSquaredFrom(predicted, current, nil); !math.IsNaN(r2) && !math.IsInf(r2, 0) {
		res.R2 = r2
	}
	return res
}

func finite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
