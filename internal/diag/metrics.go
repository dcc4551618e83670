package diag

// 最小指标接口（无导出实现，默认 no-op）。
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}

// IncOp 累加操作计数（result=success|error|skip）。
func IncOp(comp, stage, result string) {}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {}

// CountError 为常见的“记一次错误”组合：op_total{result=error} + error_total{code}。
func CountError(comp string, code Code) {
	IncOp(comp, "error", "error")
	if code != CodeUnknown {
		IncError(comp, string(code))
	}
}
