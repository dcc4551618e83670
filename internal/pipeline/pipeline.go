// Package pipeline 按文件驱动 Reader → Cleaner → Writer。
//
// - 逐文件：整读 → 拆行 → Cleaner → 拼接 → Writer；空文件不写。
// - 并发：Concurrency=1 严格顺序（写完当前文件才读取下一个）；>1 时按文件有界扇出。
// - 首错取消：默认任一文件失败即取消整体并返回该错误；KeepGoing 时只记录并计数。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wbclean/internal/diag"
	"wbclean/internal/textline"
	"wbclean/pkg/contract"
)

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader  contract.Reader
	Cleaner contract.Cleaner
	Writer  contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Inputs      []string
	Concurrency int
	// KeepGoing: 单文件失败不终止整体。
	KeepGoing bool
	// DryRun: 只分析并报告，不写回。
	DryRun bool
	// PreserveCR: 保留 \r（默认按通用换行归一为 \n）。
	PreserveCR bool
}

// Summary 为一次运行的计数汇总。
type Summary struct {
	Files   int
	Changed int
	Skipped int
	Failed  int
}

// FileError 标记某个文件的处理失败。
type FileError struct {
	FileID contract.FileID
	Err    error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.FileID, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

type runner struct {
	comp   Components
	set    Settings
	logger *diag.Logger

	mu  sync.Mutex
	sum Summary
}

// Run 执行 Reader → Cleaner → Writer。logger 可为 nil。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Summary, error) {
	if err := sanity(comp, set); err != nil {
		return Summary{}, fmt.Errorf("sanity: %w", err)
	}
	if set.Concurrency < 1 {
		set.Concurrency = 1
	}
	r := &runner{comp: comp, set: set, logger: logger}

	g, gctx := errgroup.WithContext(ctx)
	if set.Concurrency > 1 {
		g.SetLimit(set.Concurrency)
	}
	rtimer := logger.Start("reader", "iterate")
	ierr := comp.Reader.Iterate(gctx, set.Inputs, func(id contract.FileID, rc io.ReadCloser) error {
		start := time.Now()
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return r.fail(id, "reader", fmt.Errorf("read: %w", err), start)
		}
		if set.Concurrency == 1 {
			return r.file(gctx, id, data, start)
		}
		g.Go(func() error { return r.file(gctx, id, data, start) })
		return nil
	})
	werr := g.Wait()

	sum := r.summary()
	if werr != nil {
		return sum, werr
	}
	if ierr != nil {
		var fe *FileError
		if errors.As(ierr, &fe) {
			return sum, ierr
		}
		code := diag.Classify(ierr)
		logger.Error("reader", string(code), ierr.Error(), nil)
		diag.CountError("reader", code)
		return sum, fmt.Errorf("reader iterate: %w", ierr)
	}
	rtimer.Finish("iterate", int64(sum.Files))
	diag.IncOp("reader", "finish", "success")
	return sum, nil
}

// file 处理单个文件；返回非 nil 表示应终止整体。
func (r *runner) file(ctx context.Context, id contract.FileID, data []byte, start time.Time) error {
	fid := string(id)
	lines, err := textline.Split(data, r.set.PreserveCR)
	if err != nil {
		return r.fail(id, "cleaner", fmt.Errorf("decode: %w", err), start)
	}
	if len(lines) == 0 {
		r.logger.InfoWithKV("cleaner", "empty file, skipped", fid, nil)
		diag.IncOp("cleaner", "finish", "skip")
		r.done(id, diag.ResultSkipped, "empty", start)
		return nil
	}

	ctimer := r.logger.StartWith("cleaner", "clean", fid)
	out, rep, err := r.comp.Cleaner.Clean(ctx, id, lines)
	if err != nil {
		return r.fail(id, "cleaner", fmt.Errorf("clean: %w", err), start)
	}
	if err := rep.Verify(lines, out); err != nil {
		return r.fail(id, "cleaner", fmt.Errorf("clean: %w", err), start)
	}
	if rep.Inverted() {
		r.logger.Warn("cleaner", "wrapper bounds inverted, content emptied", fid, map[string]string{
			"start_idx": fmt.Sprintf("%d", rep.WrapperStart),
			"end_idx":   fmt.Sprintf("%d", rep.WrapperEnd),
		})
	}
	if rep.Wrapper {
		r.logger.InfoWithKV("cleaner", "wrapper removed", fid, map[string]string{
			"start_idx": fmt.Sprintf("%d", rep.WrapperStart),
			"end_idx":   fmt.Sprintf("%d", rep.WrapperEnd),
		})
	}
	r.logger.DebugWith("cleaner", "footer check", fid, nil)
	if rep.FooterAt >= 0 {
		r.logger.InfoWithKV("cleaner", "footer removed", fid, map[string]string{
			"line": fmt.Sprintf("%d", rep.FooterAt),
		})
	}
	ctimer.Finish("clean", int64(len(out)))
	diag.IncOp("cleaner", "finish", "success")

	res := diag.ResultUnchanged
	if rep.Changed() {
		res = diag.ResultChanged
	}
	note := fmt.Sprintf("%d→%d 行", rep.LinesIn, rep.LinesOut)
	if r.set.DryRun {
		r.done(id, res, note, start)
		return nil
	}

	wtimer := r.logger.StartWith("writer", "write", fid)
	if err := r.comp.Writer.Write(ctx, contract.ArtifactID(id), bytes.NewReader(textline.Join(out))); err != nil {
		return r.fail(id, "writer", fmt.Errorf("write: %w", err), start)
	}
	wtimer.Finish("write", int64(len(out)))
	diag.IncOp("writer", "finish", "success")
	diag.ObserveDuration("pipeline", "file", time.Since(start).Milliseconds())
	r.done(id, res, note, start)
	return nil
}

// fail 记录单文件失败；KeepGoing 时吞掉（取消除外）。
func (r *runner) fail(id contract.FileID, comp string, err error, start time.Time) error {
	code := diag.Classify(err)
	r.logger.ErrorWith(comp, string(code), err.Error(), &start, string(id))
	diag.CountError(comp, code)
	r.done(id, diag.ResultFailed, string(code), start)
	if r.set.KeepGoing && code != diag.CodeCancel {
		return nil
	}
	return &FileError{FileID: id, Err: err}
}

func (r *runner) done(id contract.FileID, res diag.Result, note string, start time.Time) {
	r.mu.Lock()
	r.sum.Files++
	switch res {
	case diag.ResultChanged:
		r.sum.Changed++
	case diag.ResultSkipped:
		r.sum.Skipped++
	case diag.ResultFailed:
		r.sum.Failed++
	}
	r.mu.Unlock()
	if t := diag.GetTerminal(); t != nil {
		t.FileFinish(string(id), res, note, time.Since(start))
	}
}

func (r *runner) summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sum
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Cleaner == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if len(s.Inputs) == 0 {
		return errors.New("pipeline: empty inputs")
	}
	return nil
}
