package ivcurve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"ivcurve/curve"
	"ivcurve/fault"
	"ivcurve/fit"
	"ivcurve/types"
)

// Analyzer IV 曲线诊断
// 每条曲线单线程处理，批内曲线相互独立，可并发。
type Analyzer struct {
	log     *zap.Logger
	workers int
	fit     fit.Settings
	area    float64
	levels  []float64
	points  int
}

// Option 配置项
type Option func(*Analyzer)

// WithLogger 日志
func WithLogger(log *zap.Logger) Option {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// WithWorkers 批处理并发数
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithFitSettings 拟合参数
func WithFitSettings(s fit.Settings) Option { return func(a *Analyzer) { a.fit = s } }

// WithReferenceArea 效率计算使用的组件面积 (m²)
func WithReferenceArea(area float64) Option {
	return func(a *Analyzer) {
		if area > 0 {
			a.area = area
		}
	}
}

// WithLevels 辐照度曲线族
func WithLevels(levels []float64) Option {
	return func(a *Analyzer) { a.levels = append([]float64(nil), levels...) }
}

// WithPoints 参考曲线点数
func WithPoints(n int) Option {
	return func(a *Analyzer) {
		if n >= 2 {
			a.points = n
		}
	}
}

// NewAnalyzer 初始化
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		log:     zap.NewNop(),
		workers: 1,
		fit:     fit.DefaultSettings(),
		area:    types.ReferenceArea,
		levels:  types.IrradianceLevels(),
		points:  types.CurvePoints,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze 分析一批曲线，结果与输入一一对应
// 单条曲线失败只影响它自己的结果项；只有批次级别的环境参数缺失才返回错误。
func (a *Analyzer) Analyze(ctx context.Context, req types.Request) ([]types.Result, error) {
	g, t, err := req.Ambient()
	if err != nil {
		return nil, err
	}
	results := make([]types.Result, len(req.Curves))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.workers)
	for k, in := range req.Curves {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[k] = failed(err)
				return nil
			}
			results[k] = a.analyzeItem(k, in, g, t)
			return nil
		})
	}
	_ = eg.Wait()
	return results, nil
}

// analyzeItem 把错误和 panic 都收敛为结果项
func (a *Analyzer) analyzeItem(k int, in types.CurveInput, g, t float64) (res types.Result) {
	log := a.log.With(zap.Int("curve", k))
	defer func() {
		if r := recover(); r != nil {
			log.Error("curve analysis panicked", zap.Any("panic", r))
			res = failed(fmt.Errorf("internal error: %v", r))
		}
	}()
	analysis, err := a.analyze(log, in, g, t)
	if err != nil {
		log.Warn("curve analysis failed", zap.Error(err))
		return failed(err)
	}
	log.Debug("curve analyzed",
		zap.Float64("ff", analysis.KeyParams.FF),
		zap.Int("faults", len(analysis.Faults)),
		zap.Bool("fallback", analysis.Fit.Fallback))
	return types.Result{Analysis: analysis}
}

// nonFinite 按键名顺序返回第一个 NaN 或 Inf 的字段
func nonFinite(fields map[string]float64) (string, bool) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if v := fields[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			return name, true
		}
	}
	return "", false
}

func nonFinitePoint(c types.Curve) (int, bool) {
	for k, p := range c {
		if math.IsNaN(p.V) || math.IsInf(p.V, 0) || math.IsNaN(p.I) || math.IsInf(p.I, 0) {
			return k, true
		}
	}
	return 0, false
}

func failed(err error) types.Result {
	return types.Result{Error: "Failed to analyze curve: " + err.Error()}
}

// AnalyzeCurve 分析单条曲线
func (a *Analyzer) AnalyzeCurve(in types.CurveInput, g, t float64) (*types.Analysis, error) {
	return a.analyze(a.log, in, g, t)
}

func (a *Analyzer) analyze(log *zap.Logger, in types.CurveInput, g, t float64) (*types.Analysis, error) {
	m, err := in.Validate()
	if err != nil {
		return nil, err
	}
	m.Samples = curve.Filter(m.Samples)
	if len(m.Samples) == 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrValidation, curve.ErrEmptyInput)
	}
	voltage, current := m.Split()

	fr := fit.Fit(voltage, current, a.fit)
	if fr.Fallback {
		log.Warn("single diode fit did not converge, using heuristic parameters",
			zap.String("reason", fr.Reason),
			zap.Int("iterations", fr.Iterations))
	}

	kp, err := curve.Extract(voltage, current, m.Voc, m.Isc, m.Pmax, a.area)
	if err != nil {
		return nil, err
	}
	if name, ok := nonFinite(map[string]float64{
		"Vmpp": kp.Vmpp, "Impp": kp.Impp, "FF": kp.FF, "efficiency": kp.Efficiency,
	}); ok {
		return nil, fmt.Errorf("%w: key parameter %s is not finite", types.ErrValidation, name)
	}
	if !(kp.Vmpp < m.Voc) {
		return nil, fmt.Errorf("%w: maximum power point voltage %v must be below Voc %v", types.ErrValidation, kp.Vmpp, m.Voc)
	}

	ideal := curve.Synthesize(m.Voc, m.Isc, kp.Vmpp, kp.Impp, a.points)
	corrected, err := curve.Correct(voltage, current, g, t)
	if err != nil {
		return nil, err
	}
	if k, ok := nonFinitePoint(corrected); ok {
		return nil, fmt.Errorf("%w: corrected point %d is not finite", types.ErrValidation, k)
	}
	findings := fault.Classify(kp, ideal, fr.Params)
	family := curve.Family(m.Voc, m.Isc, kp.Vmpp, kp.Impp, a.levels, a.points)
	if _, ok := nonFinite(map[string]float64{"objective": fr.Objective, "rmse": fr.RMSE, "r2": fr.R2}); ok {
		return nil, fmt.Errorf("%w: fit quality is not finite", types.ErrValidation)
	}
	if _, ok := nonFinitePoint(ideal); ok {
		return nil, fmt.Errorf("%w: reference curve is not finite", types.ErrValidation)
	}
	for _, ic := range family {
		if _, ok := nonFinitePoint(ic.Curve); ok {
			return nil, fmt.Errorf("%w: %g W/m² curve is not finite", types.ErrValidation, ic.Irradiance)
		}
	}

	return &types.Analysis{
		FittedParams:     fr.Params,
		Fit:              fr,
		KeyParams:        kp,
		IdealCurve:       ideal,
		CorrectedCurve:   corrected,
		Faults:           fault.Messages(findings),
		IrradianceCurves: family,
	}, nil
}

// 数据格式
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatOf 按扩展名判断格式
func FormatOf(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Load 读取批处理请求文件
func Load(filename string) (types.Request, error) {
	file, err := os.Open(filename)
	if err != nil {
		return types.Request{}, err
	}
	defer file.Close()
	return Decode(file, FormatOf(filename))
}

// Decode 解码批处理请求
func Decode(r io.Reader, format string) (req types.Request, err error) {
	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&req)
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&req)
	default:
		return req, fmt.Errorf("unknown format %q", format)
	}
	if errors.Is(err, io.EOF) {
		return req, errors.New("empty request")
	}
	return req, err
}

// Export 输出分析结果
func Export(w io.Writer, format string, results []types.Result) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return fmt.Errorf("unknown format %q", format)
}
