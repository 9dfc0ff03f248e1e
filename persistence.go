package salesdb

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/denismitr/salesdb/internal/storage"
	"github.com/pkg/errors"
)

var ErrPersistenceFailed = errors.New("persistence failed")

const (
	maxLineSize   = 1 << 20
	byteOrderMark = "\ufeff"
)

// persister is the durable half of the store. Both write operations either
// succeed completely or leave the file as it was before the call.
type persister interface {
	// load streams every data line, the header is consumed internally
	load(fn func(lineNo int, line string)) error
	append(line string) error
	rewrite(lines []string) error
	size() int64
	close() error
}

type filePersistence struct {
	mu           sync.Mutex
	path         string
	tmpPath      string
	strategy     PersistenceStrategy
	header       string
	f            *os.File
	cursor       int64
	needsNewline bool
}

func newFilePersistence(path string, cfg *Config) (*filePersistence, error) {
	p := &filePersistence{
		path:     path,
		tmpPath:  path + ".tmp",
		strategy: cfg.PersistenceStrategy,
		header:   cfg.Header,
	}

	if !storage.FileExists(path) {
		if err := p.rewrite(nil); err != nil {
			return nil, errors.Wrapf(err, "could not initialize file %s", path)
		}
	}

	if p.f == nil {
		f, err := storage.OpenForAppend(path, storage.DefaultFilePerm)
		if err != nil {
			return nil, err
		}
		p.f = f
	}

	if err := p.inspectTail(); err != nil {
		_ = p.f.Close()
		return nil, err
	}

	return p, nil
}

// inspectTail records the file size and whether the last line lacks
// a line break that the next append has to supply.
func (p *filePersistence) inspectTail() error {
	size, err := storage.FileSize(p.f)
	if err != nil {
		return err
	}

	p.cursor = size
	p.needsNewline = false
	if size == 0 {
		return nil
	}

	r, closer, err := storage.OpenFile(p.path)
	if err != nil {
		return err
	}
	defer closer()

	last := make([]byte, 1)
	if _, err := r.ReadAt(last, size-1); err != nil && err != io.EOF {
		return errors.Wrapf(err, "could not read the tail of %s", p.path)
	}

	p.needsNewline = last[0] != '\n'
	return nil
}

func (p *filePersistence) size() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

func (p *filePersistence) load(fn func(lineNo int, line string)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, closer, err := storage.OpenFile(p.path)
	if err != nil {
		return err
	}
	defer closer()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if lineNo == 1 {
			header := strings.TrimSuffix(strings.TrimPrefix(line, byteOrderMark), "\r")
			if strings.TrimSpace(header) != "" {
				p.header = header
			}
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		fn(lineNo, line)
	}

	if err := sc.Err(); err != nil {
		return errors.Wrapf(err, "could not read %s at line %d", p.path, lineNo+1)
	}

	if lineNo == 0 {
		// an empty file gets its header before the first record
		return p.appendUnderLock(p.header)
	}

	return nil
}

func (p *filePersistence) append(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.appendUnderLock(line)
}

func (p *filePersistence) appendUnderLock(line string) error {
	if p.f == nil {
		f, err := storage.OpenForAppend(p.path, storage.DefaultFilePerm)
		if err != nil {
			return errors.Wrap(ErrPersistenceFailed, err.Error())
		}
		p.f = f
	}

	var buf bytes.Buffer
	if p.needsNewline {
		buf.WriteByte('\n')
	}
	buf.WriteString(line)
	buf.WriteByte('\n')

	n, err := p.f.Write(buf.Bytes())
	if err == nil && p.strategy == Sync {
		err = p.f.Sync()
	}

	if err != nil {
		if n > 0 {
			// partial write occurred, cut the file back to its previous size
			if tErr := p.f.Truncate(p.cursor); tErr != nil {
				return errors.Wrapf(
					ErrPersistenceFailed,
					"append to %s failed (%s) and could not truncate: %s",
					p.path, err.Error(), tErr.Error(),
				)
			}
			_ = p.f.Sync()
		}

		return errors.Wrapf(ErrPersistenceFailed, "could not append to %s: %s", p.path, err.Error())
	}

	p.cursor += int64(n)
	p.needsNewline = false
	return nil
}

// rewrite replaces the whole file with the header followed by lines.
// The new content goes to a temporary file which is renamed over the
// backing file, so a failure at any step keeps the old file intact.
func (p *filePersistence) rewrite(lines []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var buf bytes.Buffer
	buf.WriteString(p.header)
	buf.WriteByte('\n')
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}

	tmpF, tmpClose, err := storage.CreateFile(p.tmpPath, storage.DefaultFilePerm)
	if err != nil {
		return errors.Wrap(ErrPersistenceFailed, err.Error())
	}

	if _, err := tmpF.Write(buf.Bytes()); err != nil {
		_ = tmpClose()
		_ = os.Remove(p.tmpPath)
		return errors.Wrapf(ErrPersistenceFailed, "could not write to tmp file %s: %s", p.tmpPath, err.Error())
	}

	if err := tmpF.Sync(); err != nil {
		_ = tmpClose()
		_ = os.Remove(p.tmpPath)
		return errors.Wrapf(ErrPersistenceFailed, "could not sync tmp file %s: %s", p.tmpPath, err.Error())
	}

	if err := tmpClose(); err != nil {
		_ = os.Remove(p.tmpPath)
		return errors.Wrapf(ErrPersistenceFailed, "could not close tmp file %s: %s", p.tmpPath, err.Error())
	}

	if err := storage.Replace(p.tmpPath, p.path); err != nil {
		_ = os.Remove(p.tmpPath)
		return errors.Wrap(ErrPersistenceFailed, err.Error())
	}

	// the old handle points at the replaced inode
	if p.f != nil {
		_ = p.f.Close()
		p.f = nil
	}

	p.cursor = int64(buf.Len())
	p.needsNewline = false

	// the new content is already durable, a failed reopen is retried on the next append
	if f, err := storage.OpenForAppend(p.path, storage.DefaultFilePerm); err == nil {
		p.f = f
	}

	return nil
}

func (p *filePersistence) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.f == nil {
		return nil
	}

	defer func() { p.f = nil }()

	if err := p.f.Sync(); err != nil {
		_ = p.f.Close()
		return errors.Wrapf(err, "could not sync file %s", p.path)
	}

	if err := p.f.Close(); err != nil {
		return errors.Wrapf(err, "could not close file %s", p.path)
	}

	return nil
}
