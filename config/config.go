package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ivcurve/fit"
	"ivcurve/maths"
	"ivcurve/types"
)

// EnvPrefix 环境变量前缀，如 IVCURVE_FIT_SEED
const EnvPrefix = "IVCURVE"

// Config 程序配置
type Config struct {
	Workers       int       `mapstructure:"workers"`
	Points        int       `mapstructure:"points"`
	ReferenceArea float64   `mapstructure:"reference_area"`
	Levels        []float64 `mapstructure:"levels"`
	Fit           Fit       `mapstructure:"fit"`
	Output        Output    `mapstructure:"output"`
	Log           Log       `mapstructure:"log"`
}

// Fit 拟合参数
type Fit struct {
	Seed          uint64  `mapstructure:"seed"`
	Population    int     `mapstructure:"population"`
	MaxIter       int     `mapstructure:"max_iter"`
	Tol           float64 `mapstructure:"tol"`
	MutationMin   float64 `mapstructure:"mutation_min"`
	MutationMax   float64 `mapstructure:"mutation_max"`
	Recombination float64 `mapstructure:"recombination"`
	Polish        bool    `mapstructure:"polish"`
	PolishIter    int     `mapstructure:"polish_iter"`
}

// Output 输出
type Output struct {
	Format string `mapstructure:"format"` // json 或 yaml
	File   string `mapstructure:"file"`   // 空为标准输出
	HTML   string `mapstructure:"html"`   // 图表页面
	PNG    string `mapstructure:"png"`    // 曲线图片
}

// Log 日志
type Log struct {
	Level string `mapstructure:"level"`
	Dev   bool   `mapstructure:"dev"`
}

// SetDefaults 默认值
func SetDefaults(v *viper.Viper) {
	de := maths.DefaultDESettings()
	fs := fit.DefaultSettings()
	v.SetDefault("workers", 1)
	v.SetDefault("points", types.CurvePoints)
	v.SetDefault("reference_area", types.ReferenceArea)
	v.SetDefault("levels", types.IrradianceLevels())
	v.SetDefault("fit.seed", de.Seed)
	v.SetDefault("fit.population", de.PopSize)
	v.SetDefault("fit.max_iter", de.MaxIter)
	v.SetDefault("fit.tol", de.Tol)
	v.SetDefault("fit.mutation_min", de.MutationMin)
	v.SetDefault("fit.mutation_max", de.MutationMax)
	v.SetDefault("fit.recombination", de.Recombination)
	v.SetDefault("fit.polish", fs.Polish)
	v.SetDefault("fit.polish_iter", fs.PolishIter)
	v.SetDefault("output.format", "json")
	v.SetDefault("log.level", "info")
}

// BindFlags 注册命令行参数并绑定到配置键
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.String("config", "", "config file (yaml, json or toml)")
	fs.Int("workers", 1, "curves analyzed concurrently")
	fs.Int("points", types.CurvePoints, "points per synthesized curve")
	fs.Float64("reference-area", types.ReferenceArea, "panel area used for efficiency (m²)")
	fs.Uint64("seed", 1, "optimizer random seed")
	fs.Int("population", 30, "optimizer population multiplier")
	fs.Int("max-iter", 2000, "optimizer generation limit")
	fs.Bool("polish", true, "refine the global optimum with Nelder-Mead")
	fs.StringP("format", "f", "json", "output format: json or yaml")
	fs.StringP("out", "o", "", "output file, stdout when empty")
	fs.String("html", "", "write an HTML chart page")
	fs.String("png", "", "write a PNG plot of the first analyzed curve")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Bool("dev", false, "development logger")

	keys := map[string]string{
		"config":         "config",
		"workers":        "workers",
		"points":         "points",
		"reference_area": "reference-area",
		"fit.seed":       "seed",
		"fit.population": "population",
		"fit.max_iter":   "max-iter",
		"fit.polish":     "polish",
		"output.format":  "format",
		"output.file":    "out",
		"output.html":    "html",
		"output.png":     "png",
		"log.level":      "log-level",
		"log.dev":        "dev",
	}
	for key, name := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load 依次合并默认值、配置文件、环境变量和命令行参数
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

// Validate 检查配置
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Workers <= 0 {
		result = multierror.Append(result, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Points < 2 {
		result = multierror.Append(result, fmt.Errorf("points must be at least 2, got %d", c.Points))
	}
	if c.ReferenceArea <= 0 {
		result = multierror.Append(result, fmt.Errorf("reference_area must be positive, got %v", c.ReferenceArea))
	}
	for _, g := range c.Levels {
		if g <= 0 {
			result = multierror.Append(result, fmt.Errorf("irradiance level must be positive, got %v", g))
		}
	}
	if c.Fit.Population <= 0 || c.Fit.MaxIter <= 0 {
		result = multierror.Append(result, errors.New("fit.population and fit.max_iter must be positive"))
	}
	if c.Fit.MutationMin < 0 || c.Fit.MutationMax < c.Fit.MutationMin || c.Fit.MutationMax > 2 {
		result = multierror.Append(result, fmt.Errorf("mutation range [%v, %v] must lie within [0, 2]", c.Fit.MutationMin, c.Fit.MutationMax))
	}
	if !(c.Fit.Tol >= 0) {
		result = multierror.Append(result, fmt.Errorf("fit.tol must not be negative, got %v", c.Fit.Tol))
	}
	if c.Fit.PolishIter <= 0 {
		result = multierror.Append(result, fmt.Errorf("fit.polish_iter must be positive, got %d", c.Fit.PolishIter))
	}
	if c.Fit.Recombination < 0 || c.Fit.Recombination > 1 {
		result = multierror.Append(result, fmt.Errorf("recombination must lie within [0, 1], got %v", c.Fit.Recombination))
	}
	switch c.Output.Format {
	case "json", "yaml":
	default:
		result = multierror.Append(result, fmt.Errorf("unknown output format %q", c.Output.Format))
	}
	return result.ErrorOrNil()
}

// FitSettings 转换为拟合参数
func (c Config) FitSettings() fit.Settings {
	return fit.Settings{
		DE: maths.DESettings{
			PopSize:       c.Fit.Population,
			MaxIter:       c.Fit.MaxIter,
			Tol:           c.Fit.Tol,
			MutationMin:   c.Fit.MutationMin,
			MutationMax:   c.Fit.MutationMax,
			Recombination: c.Fit.Recombination,
			Seed:          c.Fit.Seed,
		},
		Polish:     c.Fit.Polish,
		PolishIter: c.Fit.PolishIter,
	}
}
