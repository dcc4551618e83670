package contract

import (
	"context"
	"io"
)

// Reader: 候选资源枚举（目录/单文件）。
// 约束：
// 1) 按文件维度回调，rc 由回调方关闭；
// 2) FileID 稳定且去平台差异化，可直接映射回原路径；
// 3) 不做解码，仅提供字节流；
// 4) 不在内部起并发。
type Reader interface {
	Iterate(ctx context.Context, roots []string, yield func(fileID FileID, rc io.ReadCloser) error) error
}
