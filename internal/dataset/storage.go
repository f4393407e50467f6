package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore 数据集文件的磁盘存储。
// 写入走临时文件 + 原子 rename，避免半写文件被读到。
type FileStore struct {
	root string
}

// NewFileStore 创建文件存储，确保根目录存在
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据集目录失败: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Path 返回文件的完整路径
func (fs *FileStore) Path(fileName string) string {
	return filepath.Join(fs.root, fileName)
}

// Save 将内容写入 `fileName`。先写临时文件再 rename；
// 任一步失败时尽力清理临时文件。
func (fs *FileStore) Save(fileName string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(fs.root, fileName+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("写入文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("关闭临时文件失败: %w", err)
	}

	if err := os.Rename(tmpPath, fs.Path(fileName)); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("移动文件失败: %w", err)
	}

	return n, nil
}

// Open 打开已存储的文件
func (fs *FileStore) Open(fileName string) (io.ReadCloser, error) {
	f, err := os.Open(fs.Path(fileName))
	if err != nil {
		return nil, fmt.Errorf("打开数据集文件失败: %w", err)
	}
	return f, nil
}

// Remove 删除文件（用于创建失败后的回滚）
func (fs *FileStore) Remove(fileName string) error {
	err := os.Remove(fs.Path(fileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除数据集文件失败: %w", err)
	}
	return nil
}
