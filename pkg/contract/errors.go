package contract

import "errors"

// 最小错误分类（哨兵）。
var (
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 输入根或参数非法（例如 STDIN "-" 用于原地改写）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotUTF8: 文件内容不是合法 UTF-8。
	ErrNotUTF8 = errors.New("content is not valid utf-8")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
)
