package diag

import (
	"sort"
	"strings"
	"sync"
)

// 进程内计数器（单次运行汇总用）：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计）

var (
	metricsMu sync.Mutex
	ops       = map[string]int64{}
	errs      = map[string]int64{}
	durs      = map[string]int64{}
)

func key(parts ...string) string { return strings.Join(parts, "/") }

// IncOp 累加操作计数（result=success|error|skip）。
func IncOp(comp, stage, result string) {
	metricsMu.Lock()
	ops[key(comp, stage, result)]++
	metricsMu.Unlock()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	metricsMu.Lock()
	errs[key(comp, code)]++
	metricsMu.Unlock()
}

// ObserveDuration 记录阶段耗时（毫秒，累计）。
func ObserveDuration(comp, stage string, durMS int64) {
	metricsMu.Lock()
	durs[key(comp, stage)] += durMS
	metricsMu.Unlock()
}

// Metric 为一条计数快照。
type Metric struct {
	Name  string `json:"name"`
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// Snapshot 返回按名称与键排序的计数拷贝。
func Snapshot() []Metric {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	out := make([]Metric, 0, len(ops)+len(errs)+len(durs))
	for k, v := range ops {
		out = append(out, Metric{Name: "op_total", Key: k, Value: v})
	}
	for k, v := range errs {
		out = append(out, Metric{Name: "error_total", Key: k, Value: v})
	}
	for k, v := range durs {
		out = append(out, Metric{Name: "op_duration_ms", Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ResetMetrics 清空计数（每次运行开始时调用）。
func ResetMetrics() {
	metricsMu.Lock()
	ops = map[string]int64{}
	errs = map[string]int64{}
	durs = map[string]int64{}
	metricsMu.Unlock()
}
