package filesystem

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/pgzip"

	"bionlptag/pkg/contract"
)

const gzExt = ".gz"

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
	// ExcludeDirNames: 在扫描目录时跳过这些目录名（基名完全匹配，大小写不敏感）。
	// 仅影响目录递归，不影响单文件 root。
	ExcludeDirNames []string `json:"exclude_dir_names"`
	// AllowExts: 允许读取的扩展名（大小写不敏感，包含点）。判定时忽略末尾的 .gz。
	// 为 nil 时采用默认 [".a1", ".txt"]；显式空切片表示不限制。
	AllowExts []string `json:"allow_exts"`
	// DecompressGz: 是否透明解压 *.gz（FileID 去掉 .gz 后缀）。默认 true。
	DecompressGz *bool `json:"decompress_gz,omitempty"`
}

// FileSystem 实现基于文件系统与 STDIN 的 Reader。
type FileSystem struct {
	bufSize int
	// 以小写形式保存，比较时按小写基名匹配。
	excludeDir map[string]struct{}
	// 允许扩展名（小写），nil 表示不限制。
	allow  map[string]struct{}
	gunzip bool
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	ex := make(map[string]struct{})
	if opts != nil {
		for _, name := range opts.ExcludeDirNames {
			if name == "" {
				continue
			}
			ex[strings.ToLower(name)] = struct{}{}
		}
	}
	var allow map[string]struct{}
	switch {
	case opts == nil || opts.AllowExts == nil:
		allow = map[string]struct{}{".a1": {}, ".txt": {}}
	case len(opts.AllowExts) > 0:
		allow = make(map[string]struct{}, len(opts.AllowExts))
		for _, e := range opts.AllowExts {
			if e == "" {
				continue
			}
			allow[strings.ToLower(e)] = struct{}{}
		}
	}
	gunzip := true
	if opts != nil && opts.DecompressGz != nil {
		gunzip = *opts.DecompressGz
	}
	return &FileSystem{bufSize: b, excludeDir: ex, allow: allow, gunzip: gunzip}
}

var _ contract.Reader = (*FileSystem)(nil)

// Iterate 遍历 roots，按稳定顺序对每个常规文件调用 yield。
// 支持 roots 为空或仅包含 "-" 作为 STDIN。
func (r *FileSystem) Iterate(ctx context.Context, roots []string, yield func(fileID contract.FileID, rc io.ReadCloser) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if len(roots) == 0 || (len(roots) == 1 && roots[0] == "-") {
		// STDIN 不做扩展名过滤与解压
		return yield(contract.StdinFileID, newBufferedCloser(os.Stdin, r.bufSize))
	}
	// 禁止与其他根混用 "-"
	for _, s := range roots {
		if s == "-" {
			return errors.New("stdin '-' cannot be mixed with other roots")
		}
	}
	for _, root := range roots {
		if err := r.iterateOne(ctx, root, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) iterateOne(ctx context.Context, root string, yield func(contract.FileID, io.ReadCloser) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	// 仅跟随到常规文件；目录符号链接不跟随（忽略）
	if info.Mode()&os.ModeSymlink != 0 {
		t, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !t.Mode().IsRegular() {
			return nil
		}
		return r.emit(root, yield)
	}
	if info.IsDir() {
		return r.walkDir(ctx, root, yield)
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	return r.emit(root, yield)
}

func (r *FileSystem) walkDir(ctx context.Context, dir string, yield func(contract.FileID, io.ReadCloser) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	// 稳定顺序：字典序
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	// 先目录（不跟随目录符号链接）
	for _, e := range entries {
		if err := ctxErr(ctx); err != nil {
			return err
		}
		if !e.IsDir() {
			continue
		}
		if _, skip := r.excludeDir[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := r.walkDir(ctx, filepath.Join(dir, e.Name()), yield); err != nil {
			return err
		}
	}
	// 再文件（允许指向常规文件的符号链接）
	for _, e := range entries {
		if err := ctxErr(ctx); err != nil {
			return err
		}
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if e.Type()&os.ModeSymlink != 0 {
			t, err := os.Stat(p)
			if err != nil {
				return err
			}
			if !t.Mode().IsRegular() {
				continue
			}
		} else if !e.Type().IsRegular() {
			// 设备、FIFO 等跳过
			continue
		}
		if err := r.emit(p, yield); err != nil {
			return err
		}
	}
	return nil
}

// emit 过滤扩展名、按需解压，并调用 yield。
func (r *FileSystem) emit(p string, yield func(contract.FileID, io.ReadCloser) error) error {
	id := contract.NormalizeFileID(p)
	gz := r.gunzip && strings.EqualFold(id.Ext(), gzExt)
	if gz {
		id = id[:len(id)-len(gzExt)]
	}
	if !r.allowed(id) {
		return nil
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	var rc io.ReadCloser = newBufferedCloser(f, r.bufSize)
	if gz {
		zr, err := pgzip.NewReader(rc)
		if err != nil {
			_ = f.Close()
			return err
		}
		rc = &gzipCloser{Reader: zr, src: f}
	}
	if err := yield(id, rc); err != nil {
		_ = rc.Close()
		return err
	}
	return nil
}

func (r *FileSystem) allowed(id contract.FileID) bool {
	if r.allow == nil {
		return true
	}
	_, ok := r.allow[strings.ToLower(id.Ext())]
	return ok
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

// gzipCloser 关闭解压器与底层文件。
type gzipCloser struct {
	*pgzip.Reader
	src io.Closer
}

func (g *gzipCloser) Close() error {
	zerr := g.Reader.Close()
	if err := g.src.Close(); err != nil {
		return err
	}
	return zerr
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
