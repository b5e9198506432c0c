// Package cache 把预先计算好的排版行存到磁盘，并合并同一键的并发计算。
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/ByLCY/justext/justify"
)

// 格式变化时递增
const schemaVersion uint16 = 1

// Key 是一次排版请求的 SHA-256 摘要。
type Key [sha256.Size]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// Request 描述决定排版结果的全部输入。
type Request struct {
	Text    string
	Budget  float64
	Font    string // 字体缓存键（名称|来源|样式）
	Size    float64
	Thin    string
	Seed    uint64
	Fill    bool
	MaxFill int
}

// NewKey 计算请求的键。
func NewKey(r Request) Key {
	h := sha256.New()
	writeString := func(s string) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	writeUint := func(v uint64) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v)
		h.Write(b[:])
	}
	writeString(r.Text)
	writeUint(math.Float64bits(r.Budget))
	writeString(r.Font)
	writeUint(math.Float64bits(r.Size))
	writeString(r.Thin)
	writeUint(r.Seed)
	if r.Fill {
		writeUint(1)
	} else {
		writeUint(0)
	}
	writeUint(uint64(int64(r.MaxFill)))
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Entry 是写入磁盘的负载。
type Entry struct {
	Schema uint16
	Lines  []justify.Line
}

// Disk 以 msgpack 文件保存排版结果，并发安全。nil *Disk 的所有操作都是空操作。
type Disk struct {
	mu  sync.RWMutex
	dir string
}

// Open 在 dir 下打开（必要时创建）缓存目录。
func Open(dir string) (*Disk, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache: 缓存目录为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: 创建缓存目录失败: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// Dir 返回缓存目录。
func (c *Disk) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Disk) pathFor(key Key) string {
	hexKey := key.String()
	return filepath.Join(c.dir, "lines", hexKey[:2], hexKey+".mp")
}

// Put 序列化并原子写入一条结果。
func (c *Disk) Put(key Key, lines []justify.Line) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(&Entry{Schema: schemaVersion, Lines: lines}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// 原子替换
	return os.Rename(f.Name(), p)
}

// Get 读取一条结果；不存在或 schema 不匹配时 ok 为 false。
func (c *Disk) Get(key Key) (lines []justify.Line, ok bool, err error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var entry Entry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false, fmt.Errorf("cache: 解码 %s 失败: %w", key, err)
	}
	if entry.Schema != schemaVersion {
		return nil, false, nil
	}
	return entry.Lines, true, nil
}

// DropAll 清空缓存目录。
func (c *Disk) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.MkdirAll(c.dir, 0o755)
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// Memo 先查磁盘，再把同一键的并发计算合并为一次。
type Memo struct {
	disk  *Disk
	group singleflight.Group

	// OnError 接收读写磁盘时的错误，不影响返回结果；为 nil 时忽略。
	OnError func(key Key, err error)
}

// NewMemo 包装 disk；disk 为 nil 时只做并发合并。
func NewMemo(disk *Disk) *Memo { return &Memo{disk: disk} }

// Do 返回 key 对应的行，缺失时调用 compute 并写回磁盘。
// 无法解码的条目按缺失处理，重新计算后被覆盖。
func (m *Memo) Do(key Key, compute func() ([]justify.Line, error)) ([]justify.Line, error) {
	v, err, _ := m.group.Do(key.String(), func() (any, error) {
		lines, ok, err := m.disk.Get(key)
		if err != nil {
			m.report(key, err)
		} else if ok {
			return lines, nil
		}
		lines, err = compute()
		if err != nil {
			return nil, err
		}
		if err := m.disk.Put(key, lines); err != nil {
			m.report(key, fmt.Errorf("cache: 写入 %s 失败: %w", key, err))
		}
		return lines, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]justify.Line), nil
}

func (m *Memo) report(key Key, err error) {
	if m.OnError != nil {
		m.OnError(key, err)
	}
}
