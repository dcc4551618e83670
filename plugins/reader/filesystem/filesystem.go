package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"wbclean/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
	// Exts: 目录扫描时纳入的文件后缀（大小写敏感）。nil 时默认 [".js", ".css"]。
	// 仅影响目录扫描，单文件 root 总是纳入。
	Exts []string `json:"exts"`
	// Recursive: 是否递归子目录。默认 false（仅直接子项）。
	Recursive bool `json:"recursive"`
	// SkipMissing: 不存在的 root 静默跳过。nil 视为 true。
	SkipMissing *bool `json:"skip_missing,omitempty"`
	// ExcludeDirNames: 递归时跳过这些目录名（基名完全匹配，大小写不敏感）。
	// 例如 [".git","node_modules"]。
	ExcludeDirNames []string `json:"exclude_dir_names"`
}

// FileSystem 实现基于文件系统的 Reader。
type FileSystem struct {
	bufSize     int
	exts        []string
	recursive   bool
	skipMissing bool
	// 以小写形式保存，比较时按小写基名匹配。
	excludeDir map[string]struct{}
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	r := &FileSystem{
		bufSize:     defaultBuf,
		exts:        []string{".js", ".css"},
		skipMissing: true,
		excludeDir:  make(map[string]struct{}),
	}
	if opts == nil {
		return r
	}
	if opts.BufSize > 0 {
		r.bufSize = opts.BufSize
	}
	if opts.Exts != nil {
		r.exts = append([]string(nil), opts.Exts...)
	}
	if opts.SkipMissing != nil {
		r.skipMissing = *opts.SkipMissing
	}
	r.recursive = opts.Recursive
	for _, name := range opts.ExcludeDirNames {
		if name == "" {
			continue
		}
		r.excludeDir[strings.ToLower(name)] = struct{}{}
	}
	return r
}

var _ contract.Reader = (*FileSystem)(nil)

// Iterate 遍历 roots，按稳定顺序对每个候选文件调用 yield。
// "-" 不被接受：结果需写回原路径。
func (r *FileSystem) Iterate(ctx context.Context, roots []string, yield func(fileID contract.FileID, rc io.ReadCloser) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	for _, s := range roots {
		if strings.TrimSpace(s) == "-" {
			return fmt.Errorf("%w: stdin '-' cannot be cleaned in place", contract.ErrInvalidInput)
		}
	}
	w := &walk{r: r, yield: yield, seen: make(map[string]struct{})}
	for _, root := range roots {
		if err := w.root(ctx, root); err != nil {
			return err
		}
	}
	return nil
}

// walk 为单次 Iterate 的遍历状态；seen 以解析符号链接后的真实路径去重，
// 同一文件在一次遍历中至多 yield 一次。
type walk struct {
	r     *FileSystem
	yield func(contract.FileID, io.ReadCloser) error
	seen  map[string]struct{}
}

func (w *walk) root(ctx context.Context, root string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// root 上的符号链接一律跟随（文件或目录）
	info, err := os.Stat(root)
	if err != nil {
		if w.r.skipMissing && errors.Is(err, os.ErrNotExist) {
			if _, lerr := os.Lstat(root); errors.Is(lerr, os.ErrNotExist) {
				return nil
			}
		}
		return err
	}
	if info.IsDir() {
		return w.dir(ctx, root)
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	return w.open(root)
}

func (w *walk) dir(ctx context.Context, dir string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	// 稳定顺序：字典序
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if !w.r.recursive {
				continue
			}
			if _, skip := w.r.excludeDir[strings.ToLower(e.Name())]; skip {
				continue
			}
			if err := w.dir(ctx, p); err != nil {
				return err
			}
			continue
		}
		if !contract.FileID(e.Name()).HasExt(w.r.exts...) {
			continue
		}
		// 子项符号链接：仅接受指向常规文件的链接（目录链接不下钻，避免环）
		if e.Type()&os.ModeSymlink != 0 {
			t, err := os.Stat(p)
			if err != nil {
				return err
			}
			if !t.Mode().IsRegular() {
				continue
			}
		} else if !e.Type().IsRegular() {
			continue
		}
		if err := w.open(p); err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) open(p string) error {
	key, err := filepath.EvalSymlinks(p)
	if err != nil {
		return err
	}
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	if _, dup := w.seen[key]; dup {
		return nil
	}
	w.seen[key] = struct{}{}

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	brc := newBufferedCloser(f, w.r.bufSize)
	if err := w.yield(contract.NormalizeFileID(p), brc); err != nil {
		_ = brc.Close()
		return err
	}
	return nil
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c io.Closer
}

func newBufferedCloser(c io.ReadCloser, bufSize int) *bufferedCloser {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &bufferedCloser{Reader: bufio.NewReaderSize(c, bufSize), c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }
