package parsers

import "io"

// Parser 文档解析器：从数据集文件中抽取纯文本
type Parser interface {
	// Parse 读取内容并抽取文本
	Parse(reader io.Reader) (string, error)

	// SupportedExtensions 支持的扩展名列表（如 ".txt"）
	SupportedExtensions() []string

	// CanParse 是否支持给定扩展名
	CanParse(extension string) bool
}
