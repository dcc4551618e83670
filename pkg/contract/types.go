package contract

import "fmt"

// FileID: 逻辑文件 ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Report: 单文件清理结果摘要（仅用于日志/终端提示，不参与写出）。
// 索引均为切片前序列中的 0 基位置。
type Report struct {
	// Wrapper: 是否执行了包装器裁剪。
	Wrapper bool
	// WrapperStart/WrapperEnd: 包装器裁剪保留的 [start, end) 区间。
	WrapperStart int
	WrapperEnd   int
	// FooterAt: 归档页脚起始行（"/*" 所在行）；-1 表示未移除。
	FooterAt int
	LinesIn  int
	LinesOut int
}

// Changed 报告本次清理是否改变了内容。
// 输出恒为输入的连续子区间，长度相同即内容相同。
func (r Report) Changed() bool { return r.LinesIn != r.LinesOut }

// Inverted 报告包装器区间是否倒置（start > end，保留内容为空）。
func (r Report) Inverted() bool { return r.Wrapper && r.WrapperStart > r.WrapperEnd }

// Verify 校验 out 为 in 的连续子区间且与报告一致；否则返回 ErrInvariantViolation。
func (r Report) Verify(in, out []string) error {
	if r.LinesIn != len(in) || r.LinesOut != len(out) {
		return fmt.Errorf("%w: report lines %d→%d, actual %d→%d", ErrInvariantViolation, r.LinesIn, r.LinesOut, len(in), len(out))
	}
	if len(out) == 0 {
		return nil
	}
	s := 0
	if r.Wrapper {
		s = min(r.WrapperStart, r.WrapperEnd)
	}
	if s < 0 || s+len(out) > len(in) {
		return fmt.Errorf("%w: output [%d,%d) outside input of %d lines", ErrInvariantViolation, s, s+len(out), len(in))
	}
	for i, l := range out {
		if l != in[s+i] {
			return fmt.Errorf("%w: output line %d differs from input line %d", ErrInvariantViolation, i, s+i)
		}
	}
	return nil
}
