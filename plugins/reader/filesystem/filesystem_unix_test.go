//go:build !windows

package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"syscall"
	"testing"

	"wbclean/pkg/contract"
)

// TestWalkDirNonRegular 非常规文件被忽略 (Unix only - uses mkfifo)
func TestWalkDirNonRegular(t *testing.T) {
	root := t.TempDir()
	if err := syscall.Mkfifo(filepath.Join(root, "fifo.js"), 0o644); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}
	names, err := collect(t, New(nil), root)
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("non-regular should skip, visited %#v", names)
	}
}

// TestIterateSymlink 指向常规文件的符号链接被读取；与目标同在一处时按真实路径只取一次 (Unix only)
func TestIterateSymlink(t *testing.T) {
	dir := t.TempDir()
	shared := filepath.Join(dir, "shared")
	os.Mkdir(shared, 0o755)
	writeFile(t, filepath.Join(shared, "t.js"), "ok")
	site := filepath.Join(dir, "site")
	os.Mkdir(site, 0o755)
	os.Symlink(filepath.Join(shared, "t.js"), filepath.Join(site, "l.js"))
	names, err := collect(t, New(nil), site)
	if err != nil || !reflect.DeepEqual(names, []string{"l.js"}) {
		t.Fatalf("symlink: %v %#v", err, names)
	}
	names, err = collect(t, New(nil), site, shared)
	if err != nil || !reflect.DeepEqual(names, []string{"l.js"}) {
		t.Fatalf("symlink + target: %v %#v", err, names)
	}
}

// TestIterateSymlinkDirRoot root 为指向目录的符号链接时列出目标目录 (Unix only)
func TestIterateSymlinkDirRoot(t *testing.T) {
	root := t.TempDir()
	realDir := filepath.Join(root, "real")
	os.Mkdir(realDir, 0o755)
	writeFile(t, filepath.Join(realDir, "a.css"), "x")
	link := filepath.Join(root, "css")
	if err := os.Symlink(realDir, link); err != nil {
		t.Fatal(err)
	}
	var visited []string
	err := New(nil).Iterate(context.Background(), []string{link}, func(id contract.FileID, rc io.ReadCloser) error {
		visited = append(visited, string(id))
		rc.Close()
		return nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	want := []string{string(contract.NormalizeFileID(filepath.Join(link, "a.css")))}
	if !reflect.DeepEqual(visited, want) {
		t.Fatalf("dir symlink root: %#v want %#v", visited, want)
	}
}

// TestIterateSymlinkSubdirSkipped 递归时不下钻目录符号链接（避免环） (Unix only)
func TestIterateSymlinkSubdirSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.js"), "a")
	os.Symlink(root, filepath.Join(root, "loop"))
	names, err := collect(t, New(&Options{Recursive: true}), root)
	if err != nil || !reflect.DeepEqual(names, []string{"a.js"}) {
		t.Fatalf("recursive symlink dir: %v %#v", err, names)
	}
}

// TestIterateSymlinkDangling 符号链接失效返回错误 (Unix only)
func TestIterateSymlinkDangling(t *testing.T) {
	dir := t.TempDir()
	os.Symlink(filepath.Join(dir, "no"), filepath.Join(dir, "dangling.js"))
	if _, err := collect(t, New(nil), dir); err == nil {
		t.Fatalf("expect error for dangling symlink")
	}
}
