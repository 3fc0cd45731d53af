package types

import (
	"encoding/json"
	"fmt"
	"math"
)

// Sample 一次采样的电压电流
type Sample struct {
	V float64 // 电压 (V)
	I float64 // 电流 (A)
}

// Point 曲线点，序列化为 [v, i]
type Point struct {
	V float64
	I float64
}

func (p Point) MarshalJSON() ([]byte, error) { return json.Marshal([2]float64{p.V, p.I}) }
func (p Point) MarshalYAML() (any, error)    { return []float64{p.V, p.I}, nil }

func (p *Point) UnmarshalJSON(data []byte) error {
	var v [2]float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.V, p.I = v[0], v[1]
	return nil
}

// Curve 有序的电压电流曲线
type Curve []Point

// Split 拆分为电压列和电流列
func (c Curve) Split() (voltage, current []float64) {
	voltage = make([]float64, len(c))
	current = make([]float64, len(c))
	for i, p := range c {
		voltage[i], current[i] = p.V, p.I
	}
	return voltage, current
}

// First 第一个点
func (c Curve) First() (Point, bool) {
	if len(c) == 0 {
		return Point{}, false
	}
	return c[0], true
}

// Last 最后一个点
func (c Curve) Last() (Point, bool) {
	if len(c) == 0 {
		return Point{}, false
	}
	return c[len(c)-1], true
}

// IrradianceCurve 某一辐照度下的参考曲线
type IrradianceCurve struct {
	Irradiance float64 `json:"irradiance" yaml:"irradiance"`
	Curve      Curve   `json:"curve" yaml:"curve"`
}

// ModelParams 单二极管模型五参数
type ModelParams struct {
	IL  float64 `json:"I_L" yaml:"I_L"`   // 光生电流 (A)
	I0  float64 `json:"I_0" yaml:"I_0"`   // 二极管饱和电流 (A)
	Rs  float64 `json:"R_s" yaml:"R_s"`   // 串联电阻 (Ω)
	Rsh float64 `json:"R_sh" yaml:"R_sh"` // 并联电阻 (Ω)
	N   float64 `json:"n" yaml:"n"`       // 理想因子
}

// Vector 按 I_L, I_0, R_s, R_sh, n 顺序展开
func (p ModelParams) Vector() []float64 { return []float64{p.IL, p.I0, p.Rs, p.Rsh, p.N} }

// ModelParamsFrom 从向量恢复参数
func ModelParamsFrom(x []float64) ModelParams {
	if len(x) != 5 {
		panic(fmt.Sprintf("model params: want 5 values, got %d", len(x)))
	}
	return ModelParams{IL: x[0], I0: x[1], Rs: x[2], Rsh: x[3], N: x[4]}
}

// Clamp 将参数限制在区间内
func (p ModelParams) Clamp(bounds [5][2]float64) ModelParams {
	x := p.Vector()
	for i, b := range bounds {
		x[i] = math.Min(math.Max(x[i], b[0]), b[1])
	}
	return ModelParamsFrom(x)
}

// KeyParams 由实测数据得到的关键参数
type KeyParams struct {
	Voc        float64 `json:"Voc" yaml:"Voc"`
	Isc        float64 `json:"Isc" yaml:"Isc"`
	Vmpp       float64 `json:"Vmpp" yaml:"Vmpp"`
	Impp       float64 `json:"Impp" yaml:"Impp"`
	Pmax       float64 `json:"Pmax" yaml:"Pmax"`
	FF         float64 `json:"FF" yaml:"FF"`                 // 填充因子
	Efficiency float64 `json:"efficiency" yaml:"efficiency"` // 效率 (%)
}

// FitResult 参数拟合结果，Fallback 为真表示使用了经验参数
type FitResult struct {
	Params      ModelParams `json:"-" yaml:"-"`
	Converged   bool        `json:"converged" yaml:"converged"`
	Fallback    bool        `json:"fallback" yaml:"fallback"`
	Iterations  int         `json:"iterations" yaml:"iterations"`
	Evaluations int         `json:"evaluations" yaml:"evaluations"`
	Objective   float64     `json:"objective" yaml:"objective"` // 残差绝对值之和
	RMSE        float64     `json:"rmse" yaml:"rmse"`
	R2          float64     `json:"r2" yaml:"r2"`
	Reason      string      `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Analysis 单条曲线的分析结果
type Analysis struct {
	FittedParams     ModelParams       `json:"fitted_params" yaml:"fitted_params"`
	Fit              FitResult         `json:"fit" yaml:"fit"`
	KeyParams        KeyParams         `json:"key_params" yaml:"key_params"`
	IdealCurve       Curve             `json:"ideal_curve" yaml:"ideal_curve"`
	CorrectedCurve   Curve             `json:"corrected_curve" yaml:"corrected_curve"`
	Faults           []string          `json:"faults" yaml:"faults"`
	IrradianceCurves []IrradianceCurve `json:"irradiance_curves" yaml:"irradiance_curves"`
}

// Result 批处理中一条曲线的输出，成功时 Analysis 非空，否则 Error 描述失败原因
type Result struct {
	Analysis *Analysis
	Error    string
}

type errorRecord struct {
	Error string `json:"error" yaml:"error"`
}

// Failed 是否失败
func (r Result) Failed() bool { return r.Analysis == nil }

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Analysis == nil {
		return json.Marshal(errorRecord{r.Error})
	}
	return json.Marshal(r.Analysis)
}

func (r Result) MarshalYAML() (any, error) {
	if r.Analysis == nil {
		return errorRecord{r.Error}, nil
	}
	return r.Analysis, nil
}
