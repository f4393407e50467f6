package dataset

import "time"

// 支持的数据集文件类型（扩展名，不含点）
const (
	FileTypePDF = "pdf"
	FileTypeTXT = "txt"
)

// Dataset 用户上传的文档数据集。创建后不可变，
// 对应磁盘上的 `{id}.{file_type}` 文件。
type Dataset struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string `json:"name" gorm:"size:100;not null"`
	Description string `json:"description" gorm:"size:3000"`
	MadeByUser  string `json:"madeByUser" gorm:"type:uuid;not null;index"`
	FileType    string `json:"fileType" gorm:"size:10;not null"`
	SizeBytes   int64  `json:"sizeBytes" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// TableName 指定表名
func (Dataset) TableName() string {
	return "datasets"
}

// FileName 数据集在磁盘上的文件名
func (d *Dataset) FileName() string {
	return d.ID + "." + d.FileType
}

// DownloadName 下载时建议的文件名
func (d *Dataset) DownloadName() string {
	return d.Name + "." + d.FileType
}

// IsAllowedFileType 检查扩展名是否在允许列表内
func IsAllowedFileType(ext string) bool {
	return ext == FileTypePDF || ext == FileTypeTXT
}
