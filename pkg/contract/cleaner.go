package contract

import "context"

// Cleaner: 对单个文件的有序行序列做纯内存变换。
// 约束：
//  1. 无 I/O、无共享状态，可被多个 goroutine 同时调用；
//  2. 输出只能是输入的连续子区间（不重排、不复制行）；
//  3. 标记缺失不是错误：对应步骤不裁剪；
//  4. 空序列原样返回。
type Cleaner interface {
	Clean(ctx context.Context, id FileID, lines []string) ([]string, Report, error)
}
