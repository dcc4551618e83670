package contract

import (
	"context"
	"io"
)

// ArtifactID: 与 FileID 等价的写出目标标识（语义别名）。
type ArtifactID = FileID

// Writer: 将清理结果持久化（默认原地覆盖源文件）。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 全量覆盖（非追加），按字节透传；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
