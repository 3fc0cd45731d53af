package types

// 物理常量
const (
	Boltzmann        = 1.380649e-23    // 玻尔兹曼常数 k (J/K)
	ElementaryCharge = 1.602176634e-19 // 电子电荷 q (C)
	ReferenceKelvin  = 298.15          // 模型参考温度 (K)
)

// 标准测试条件 STC
const (
	IrradianceSTC  = 1000.0 // 标准辐照度 (W/m²)
	TemperatureSTC = 25.0   // 标准温度 (°C)
)

// 默认参数常量定义
var (
	Epsilon        = 1e-10  // 除数下限
	ExpLimit       = 700.0  // 指数参数限幅
	ReferenceArea  = 1.6    // 组件参考面积 (m²)，效率标定常数
	CurvePoints    = 100    // 参考曲线点数
	ThermalVoltage = 0.0257 // 辐照度曲线族的 Voc 对数修正系数 (V)
)

// IrradianceLevels 默认辐照度曲线族 (W/m²)
func IrradianceLevels() []float64 { return []float64{200, 400, 600, 800, 1000} }

// ParamBounds 单二极管模型参数搜索区间, maxCurrent 为实测最大电流
func ParamBounds(maxCurrent float64) [5][2]float64 {
	return [5][2]float64{
		{0, 1.2 * maxCurrent}, // I_L
		{1e-12, 1e-6},         // I_0
		{0, 10},               // R_s
		{1, 1e6},              // R_sh
		{1, 2},                // n
	}
}

// FallbackParams 拟合失败时使用的经验参数
func FallbackParams(maxCurrent float64) ModelParams {
	return ModelParams{IL: maxCurrent, I0: 1e-9, Rs: 0.1, Rsh: 1000, N: 1.5}
}
