package fault

import (
	"ivcurve/types"
)

// Kind 故障类型
type Kind int

const (
	LowVoc Kind = iota + 1 // 开路电压偏低
	LowIsc                 // 短路电流偏低
	LowFillFactor          // 填充因子偏低
	LowEfficiency          // 效率偏低
	HighSeriesResistance   // 串联电阻偏高
)

var kindNames = map[Kind]string{
	LowVoc:               "low_voc",
	LowIsc:               "low_isc",
	LowFillFactor:        "low_fill_factor",
	LowEfficiency:        "low_efficiency",
	HighSeriesResistance: "high_series_resistance",
}

var kindMessages = map[Kind]string{
	LowVoc:               "Low open circuit voltage - possible cell damage or connection issues",
	LowIsc:               "Low short circuit current - possible shading or soiling issues",
	LowFillFactor:        "Low fill factor - possible degradation or mismatch issues",
	LowEfficiency:        "Low efficiency - possible overall degradation or system issues",
	HighSeriesResistance: "High series resistance detected - possible connection issues or degradation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Message 面向用户的描述
func (k Kind) Message() string { return kindMessages[k] }

// 判定阈值
var (
	VocRatio            = 0.9  // Voc 低于参考曲线末点电压的比例
	IscRatio            = 0.9  // Isc 低于参考曲线首点电流的比例
	MinFillFactor       = 0.7  // 填充因子下限
	MinEfficiency       = 15.0 // 效率下限 (%)
	MaxSeriesResistance = 1.0  // 串联电阻上限 (Ω)
)

// Finding 一条诊断结论
type Finding struct {
	Kind    Kind
	Message string
}

func newFinding(k Kind) Finding { return Finding{Kind: k, Message: k.Message()} }

// Classify 按固定顺序逐条检查规则，每条规则最多触发一次
func Classify(kp types.KeyParams, ideal types.Curve, fp types.ModelParams) []Finding {
	findings := make([]Finding, 0, len(kindNames))
	if last, ok := ideal.Last(); ok && kp.Voc < last.V*VocRatio {
		findings = append(findings, newFinding(LowVoc))
	}
	if first, ok := ideal.First(); ok && kp.Isc < first.I*IscRatio {
		findings = append(findings, newFinding(LowIsc))
	}
	if kp.FF < MinFillFactor {
		findings = append(findings, newFinding(LowFillFactor))
	}
	if kp.Efficiency < MinEfficiency {
		findings = append(findings, newFinding(LowEfficiency))
	}
	if fp.Rs > MaxSeriesResistance {
		findings = append(findings, newFinding(HighSeriesResistance))
	}
	return findings
}

// Messages 提取描述文本
func Messages(findings []Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Message
	}
	return out
}
