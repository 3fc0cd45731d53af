package debug

import (
	"encoding/json"
	"io"

	"ivcurve/types"
)

// Record 记录批处理结果
type Record struct {
	Index    []int             // 成功曲线在批次中的序号
	Analyses []*types.Analysis // 成功曲线的分析结果
	Errors   map[int]string    // 失败曲线
}

// Update 记录数据
func (list *Record) Update(results []types.Result) {
	if list.Errors == nil {
		list.Errors = make(map[int]string)
	}
	for k, r := range results {
		if r.Failed() {
			list.Errors[k] = r.Error
			continue
		}
		list.Index = append(list.Index, k)
		list.Analyses = append(list.Analyses, r.Analysis)
	}
}

// Len 成功曲线数
func (list *Record) Len() int { return len(list.Analyses) }

// Render 格式和输出内容
func (list *Record) Render(w io.Writer) error { return json.NewEncoder(w).Encode(list) }
