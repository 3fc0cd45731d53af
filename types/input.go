package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// ErrValidation 输入数据校验失败
var ErrValidation = errors.New("invalid curve data")

var requiredKeys = []string{"measurements", "voc", "isc", "pmax"}

// CurveInput 单条曲线的原始输入
// Measurements 可以是 2N 个数的平铺列表，也可以是 N 个 [电压, 电流] 对。
type CurveInput struct {
	Measurements any
	Voc          *float64
	Isc          *float64
	Pmax         *float64

	// 解码阶段发现的问题，延迟到 Validate 时报告
	decodeErrs []error
	reported   map[string]bool
}

// NewCurveInput 由数值构造输入
func NewCurveInput(measurements any, voc, isc, pmax float64) CurveInput {
	return CurveInput{Measurements: measurements, Voc: &voc, Isc: &isc, Pmax: &pmax}
}

// UnmarshalJSON 解码失败不返回错误，避免一条坏数据中断整批解码
func (c *CurveInput) UnmarshalJSON(data []byte) error {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil || m == nil {
		*c = CurveInput{decodeErrs: []error{errors.New("input 'curve' must be an object")}}
		return nil
	}
	c.fromMap(m)
	return nil
}

func (c *CurveInput) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]any
	if err := value.Decode(&m); err != nil || m == nil {
		*c = CurveInput{decodeErrs: []error{errors.New("input 'curve' must be a mapping")}}
		return nil
	}
	c.fromMap(m)
	return nil
}

func (c *CurveInput) fromMap(m map[string]any) {
	*c = CurveInput{reported: make(map[string]bool)}
	for _, key := range requiredKeys {
		if _, ok := m[key]; !ok {
			c.report(key, fmt.Errorf("missing required key in curve data: %s", key))
		}
	}
	c.Measurements = m["measurements"]
	c.Voc = c.number(m, "voc")
	c.Isc = c.number(m, "isc")
	c.Pmax = c.number(m, "pmax")
}

func (c *CurveInput) number(m map[string]any, key string) *float64 {
	v, ok := m[key]
	if !ok {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		c.report(key, fmt.Errorf("%s must be a number: %v", key, v))
		return nil
	}
	return &f
}

func (c *CurveInput) report(key string, err error) {
	c.decodeErrs = append(c.decodeErrs, err)
	c.reported[key] = true
}

// Measured 校验后的曲线数据
type Measured struct {
	Samples []Sample
	Voc     float64
	Isc     float64
	Pmax    float64
}

// Split 拆分为电压列和电流列
func (m Measured) Split() (voltage, current []float64) {
	voltage = make([]float64, len(m.Samples))
	current = make([]float64, len(m.Samples))
	for i, s := range m.Samples {
		voltage[i], current[i] = s.V, s.I
	}
	return voltage, current
}

// Validate 校验并规范化输入，所有问题合并为一个错误
func (c CurveInput) Validate() (Measured, error) {
	var result *multierror.Error
	for _, err := range c.decodeErrs {
		result = multierror.Append(result, err)
	}
	if len(c.decodeErrs) > 0 && c.Measurements == nil && c.Voc == nil && c.Isc == nil && c.Pmax == nil {
		return Measured{}, wrapValidation(result)
	}

	var m Measured
	if c.Measurements != nil {
		samples, err := NormalizeMeasurements(c.Measurements)
		if err != nil {
			result = multierror.Append(result, err)
		}
		m.Samples = samples
	} else if !c.reported["measurements"] {
		result = multierror.Append(result, errors.New("measurements array is empty"))
	}
	m.Voc = c.positive(&result, "voc", c.Voc)
	m.Isc = c.positive(&result, "isc", c.Isc)
	m.Pmax = c.positive(&result, "pmax", c.Pmax)
	if err := result.ErrorOrNil(); err != nil {
		return Measured{}, wrapValidation(result)
	}
	return m, nil
}

func (c CurveInput) positive(result **multierror.Error, key string, v *float64) float64 {
	switch {
	case v == nil:
		if !c.reported[key] {
			*result = multierror.Append(*result, fmt.Errorf("missing required key in curve data: %s", key))
		}
		return 0
	case !isFinite(*v) || *v <= 0:
		*result = multierror.Append(*result, fmt.Errorf("%s must be positive, got %v", key, *v))
		return 0
	}
	return *v
}

func wrapValidation(result *multierror.Error) error {
	result.ErrorFormat = func(errs []error) string {
		s := make([]string, len(errs))
		for i, err := range errs {
			s[i] = err.Error()
		}
		return strings.Join(s, "; ")
	}
	return fmt.Errorf("%w: %w", ErrValidation, result)
}

// NormalizeMeasurements 将平铺列表或电压电流对统一为采样序列
func NormalizeMeasurements(raw any) ([]Sample, error) {
	switch v := raw.(type) {
	case []Sample:
		return append([]Sample(nil), v...), nil
	case []float64:
		return flatSamples(v)
	case [][2]float64:
		samples := make([]Sample, len(v))
		for i, p := range v {
			samples[i] = Sample{V: p[0], I: p[1]}
		}
		return nonEmpty(samples)
	case [][]float64:
		items := make([]any, len(v))
		for i, p := range v {
			items[i] = p
		}
		return listSamples(items)
	case []any:
		return listSamples(v)
	}
	return nil, fmt.Errorf("measurements must be a list, got %T", raw)
}

func listSamples(items []any) ([]Sample, error) {
	if len(items) == 0 {
		return nil, errors.New("measurements array is empty")
	}
	if isPair(items[0]) {
		samples := make([]Sample, len(items))
		for i, item := range items {
			pair, ok := asPair(item)
			if !ok {
				return nil, errors.New("measurements must be a 2D array with shape (n, 2)")
			}
			samples[i] = pair
		}
		return samples, nil
	}
	flat := make([]float64, len(items))
	for i, item := range items {
		f, err := cast.ToFloat64E(item)
		if err != nil {
			return nil, fmt.Errorf("measurement %d is not a number: %v", i, item)
		}
		flat[i] = f
	}
	return flatSamples(flat)
}

func flatSamples(flat []float64) ([]Sample, error) {
	if len(flat) == 0 {
		return nil, errors.New("measurements array is empty")
	}
	if len(flat)%2 != 0 {
		return nil, errors.New("1D measurements array must have even number of elements")
	}
	samples := make([]Sample, len(flat)/2)
	for i := range samples {
		samples[i] = Sample{V: flat[2*i], I: flat[2*i+1]}
	}
	return samples, nil
}

func nonEmpty(samples []Sample) ([]Sample, error) {
	if len(samples) == 0 {
		return nil, errors.New("measurements array is empty")
	}
	return samples, nil
}

func isPair(item any) bool {
	switch item.(type) {
	case []any, []float64, [2]float64:
		return true
	}
	return false
}

func asPair(item any) (Sample, bool) {
	var vals []any
	switch v := item.(type) {
	case [2]float64:
		return Sample{V: v[0], I: v[1]}, true
	case []float64:
		if len(v) != 2 {
			return Sample{}, false
		}
		return Sample{V: v[0], I: v[1]}, true
	case []any:
		vals = v
	default:
		return Sample{}, false
	}
	if len(vals) != 2 {
		return Sample{}, false
	}
	volt, err := cast.ToFloat64E(vals[0])
	if err != nil {
		return Sample{}, false
	}
	curr, err := cast.ToFloat64E(vals[1])
	if err != nil {
		return Sample{}, false
	}
	return Sample{V: volt, I: curr}, true
}

// Request 一批曲线及共享的环境条件
type Request struct {
	Curves      []CurveInput `json:"curves" yaml:"curves"`
	Irradiance  *float64     `json:"irradiance" yaml:"irradiance"`
	Temperature *float64     `json:"temperature" yaml:"temperature"`
}

// Ambient 校验批次级别的环境条件
func (r Request) Ambient() (irradiance, temperature float64, err error) {
	var result *multierror.Error
	if r.Irradiance == nil {
		result = multierror.Append(result, errors.New("missing required key: irradiance"))
	}
	if r.Temperature == nil {
		result = multierror.Append(result, errors.New("missing required key: temperature"))
	}
	if result.ErrorOrNil() != nil {
		return 0, 0, wrapValidation(result)
	}
	if !isFinite(*r.Irradiance) {
		result = multierror.Append(result, fmt.Errorf("irradiance must be finite, got %v", *r.Irradiance))
	}
	if !isFinite(*r.Temperature) {
		result = multierror.Append(result, fmt.Errorf("temperature must be finite, got %v", *r.Temperature))
	}
	if result.ErrorOrNil() != nil {
		return 0, 0, wrapValidation(result)
	}
	return *r.Irradiance, *r.Temperature, nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
