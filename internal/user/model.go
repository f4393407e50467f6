package user

import "time"

// User 平台用户。Email 全局唯一，作为登录凭据。
type User struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	Username string `json:"username" gorm:"size:100;not null"`
	Email    string `json:"email" gorm:"size:255;uniqueIndex;not null"`

	// bcrypt 哈希，永不出现在响应中
	PasswordHash string `json:"-" gorm:"size:255;not null"`

	LastLoginAt *time.Time `json:"lastLoginAt"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Relation 用户与资源的关系类型
type Relation string

const (
	RelationCreated    Relation = "created"
	RelationBookmarked Relation = "bookmarked"
)

// TargetType 关系指向的资源类型
type TargetType string

const (
	TargetDataset TargetType = "dataset"
	TargetRag     TargetType = "rag"
)

// Membership 用户与数据集/RAG 配置的关联（创建或收藏）。
// 组合唯一索引保证同一关系只记录一次，重复收藏为幂等操作。
type Membership struct {
	ID         string     `json:"id" gorm:"primaryKey;type:uuid"`
	UserID     string     `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_membership,priority:1"`
	Relation   Relation   `json:"relation" gorm:"size:20;not null;uniqueIndex:idx_membership,priority:2"`
	TargetType TargetType `json:"targetType" gorm:"size:20;not null;uniqueIndex:idx_membership,priority:3"`
	TargetID   string     `json:"targetId" gorm:"size:64;not null;uniqueIndex:idx_membership,priority:4"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// TableName 指定表名
func (Membership) TableName() string {
	return "memberships"
}
