package maths

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrBounds 搜索区间无效
var ErrBounds = errors.New("invalid search bounds")

// DESettings 差分进化参数
// 所有个体在同一个随机流上顺序评估，相同参数和种子得到相同结果。
type DESettings struct {
	PopSize       int     // 种群倍数，实际个体数 = PopSize * 维数
	MaxIter       int     // 最大代数
	Tol           float64 // 相对收敛容差
	Atol          float64 // 绝对收敛容差
	MutationMin   float64 // 变异系数抖动下限
	MutationMax   float64 // 变异系数抖动上限
	Recombination float64 // 交叉概率
	Seed          uint64  // 随机种子
}

// DefaultDESettings 默认参数
func DefaultDESettings() DESettings {
	return DESettings{
		PopSize:       30,
		MaxIter:       2000,
		Tol:           1e-4,
		MutationMin:   0.5,
		MutationMax:   1.5,
		Recombination: 0.7,
		Seed:          1,
	}
}

// DEResult 优化结果
type DEResult struct {
	X           []float64 // 最优解
	F           float64   // 最优目标值
	Iterations  int       // 已执行代数
	Evaluations int       // 目标函数调用次数
	Converged   bool      // 是否满足收敛判据
}

// de 差分进化求解状态，种群保存在单位超立方体内
type de struct {
	f        func(x []float64) float64
	lower    []float64
	span     []float64
	rng      *rand.Rand
	set      DESettings
	pop      *mat.Dense // 当前种群
	trial    *mat.Dense // 下一代候选
	energies []float64
	trialE   []float64
	x        []float64 // 缩放缓冲
	nfev     int
}

// DE 在区间约束下用差分进化 (best1bin, 延迟更新) 最小化 f
// 迭代次数与种群规模都有上限，最坏耗时固定。
func DE(f func(x []float64) float64, bounds [][2]float64, set DESettings) (DEResult, error) {
	dim := len(bounds)
	if dim == 0 {
		return DEResult{}, fmt.Errorf("%w: no dimensions", ErrBounds)
	}
	lower := make([]float64, dim)
	span := make([]float64, dim)
	for j, b := range bounds {
		if math.IsNaN(b[0]) || math.IsNaN(b[1]) || math.IsInf(b[0], 0) || math.IsInf(b[1], 0) || b[1] < b[0] {
			return DEResult{}, fmt.Errorf("%w: dimension %d [%v, %v]", ErrBounds, j, b[0], b[1])
		}
		lower[j], span[j] = b[0], b[1]-b[0]
	}
	if set.PopSize <= 0 || set.MaxIter < 0 {
		return DEResult{}, fmt.Errorf("invalid settings: popsize %d, maxiter %d", set.PopSize, set.MaxIter)
	}
	np := max(5, set.PopSize*dim)
	d := &de{
		f:        f,
		lower:    lower,
		span:     span,
		rng:      rand.New(rand.NewPCG(set.Seed, set.Seed^0x9e3779b97f4a7c15)),
		set:      set,
		pop:      mat.NewDense(np, dim, nil),
		trial:    mat.NewDense(np, dim, nil),
		energies: make([]float64, np),
		trialE:   make([]float64, np),
		x:        make([]float64, dim),
	}
	d.latinHypercube()
	for i := range np {
		d.energies[i] = d.eval(d.pop.RawRowView(i))
	}
	d.promoteBest()

	// 至少进化一代再检查收敛
	result := DEResult{}
	for result.Iterations < set.MaxIter {
		d.evolve()
		result.Iterations++
		if d.converged() {
			result.Converged = true
			break
		}
	}
	if set.MaxIter == 0 {
		result.Converged = d.converged()
	}
	result.X = d.scale(d.pop.RawRowView(0), make([]float64, dim))
	result.F = d.energies[0]
	result.Evaluations = d.nfev
	return result, nil
}

// latinHypercube 拉丁超立方初始化
func (d *de) latinHypercube() {
	np, dim := d.pop.Dims()
	for j := range dim {
		perm := d.rng.Perm(np)
		for i := range np {
			d.pop.RawRowView(perm[i])[j] = (float64(i) + d.rng.Float64()) / float64(np)
		}
	}
}

func (d *de) scale(u, dst []float64) []float64 {
	for j := range u {
		dst[j] = d.lower[j] + u[j]*d.span[j]
	}
	return dst
}

// eval 非有限值视为无穷大
func (d *de) eval(u []float64) float64 {
	d.nfev++
	e := d.f(d.scale(u, d.x))
	if math.IsNaN(e) {
		return math.Inf(1)
	}
	return e
}

// promoteBest 把最优个体换到第 0 位
func (d *de) promoteBest() {
	best := floats.MinIdx(d.energies)
	if best == 0 {
		return
	}
	b, z := d.pop.RawRowView(best), d.pop.RawRowView(0)
	for j := range b {
		b[j], z[j] = z[j], b[j]
	}
	d.energies[0], d.energies[best] = d.energies[best], d.energies[0]
}

// converged 能量标准差 <= atol + tol*|均值|
func (d *de) converged() bool {
	for _, e := range d.energies {
		if math.IsInf(e, 0) {
			return false
		}
	}
	mean, std := stat.PopMeanStdDev(d.energies, nil)
	return std <= d.set.Atol+d.set.Tol*math.Abs(mean)
}

// evolve 生成整代候选后统一评估、替换
func (d *de) evolve() {
	np, dim := d.pop.Dims()
	// 每代抖动一次变异系数
	mut := d.set.MutationMin + d.rng.Float64()*(d.set.MutationMax-d.set.MutationMin)
	best := d.pop.RawRowView(0)
	for i := range np {
		r0, r1 := d.pick2(i, np)
		a, b := d.pop.RawRowView(r0), d.pop.RawRowView(r1)
		trial := d.trial.RawRowView(i)
		copy(trial, d.pop.RawRowView(i))
		fill := d.rng.IntN(dim)
		for j := range dim {
			if j == fill || d.rng.Float64() < d.set.Recombination {
				trial[j] = best[j] + mut*(a[j]-b[j])
			}
		}
		// 越界分量重新随机
		for j := range dim {
			if trial[j] < 0 || trial[j] > 1 {
				trial[j] = d.rng.Float64()
			}
		}
	}
	for i := range np {
		d.trialE[i] = d.eval(d.trial.RawRowView(i))
	}
	for i := range np {
		if d.trialE[i] < d.energies[i] {
			d.pop.SetRow(i, d.trial.RawRowView(i))
			d.energies[i] = d.trialE[i]
		}
	}
	d.promoteBest()
}

// pick2 选出两个互不相同且不等于 i 的个体
func (d *de) pick2(i, np int) (int, int) {
	r0 := d.rng.IntN(np)
	for r0 == i {
		r0 = d.rng.IntN(np)
	}
	r1 := d.rng.IntN(np)
	for r1 == i || r1 == r0 {
		r1 = d.rng.IntN(np)
	}
	return r0, r1
}
