package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/logger"
	"backend/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("用户不存在")
	// ErrEmailTaken 邮箱已被注册
	ErrEmailTaken = errors.New("邮箱已被注册")
	// ErrInvalidCredentials 邮箱或密码错误
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
)

// Service 用户服务：注册、登录凭据校验、创建/收藏关系管理
type Service struct {
	db *gorm.DB
}

// NewService 创建用户服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Register 注册新用户。邮箱重复时返回 ErrEmailTaken。
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	// 检查邮箱是否已注册
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	u := &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	metrics.UserRegistrationsTotal.Inc()
	logger.Info("用户注册成功",
		zap.String("user_id", u.ID),
		zap.String("email", u.Email))

	return u, nil
}

// Authenticate 校验邮箱与密码，成功时返回用户并刷新最近登录时间。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(u).Update("last_login_at", now).Error; err != nil {
		// 登录时间更新失败不影响登录本身
		logger.Warn("更新登录时间失败", zap.String("user_id", u.ID), zap.Error(err))
	}
	u.LastLoginAt = &now

	return u, nil
}

// GetByID 按 ID 查询用户
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &u, nil
}

// FindByEmail 按邮箱查询用户
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &u, nil
}

// AddMembership 记录用户与资源的关系。重复添加为幂等操作。
func (s *Service) AddMembership(ctx context.Context, userID string, relation Relation, targetType TargetType, targetID string) error {
	m := Membership{
		UserID:     userID,
		Relation:   relation,
		TargetType: targetType,
		TargetID:   targetID,
	}
	err := s.db.WithContext(ctx).
		Where(&m).
		Attrs(Membership{ID: uuid.New().String()}).
		FirstOrCreate(&Membership{}).Error
	if err != nil {
		return fmt.Errorf("记录用户关系失败: %w", err)
	}
	return nil
}

// RemoveMembership 删除用户与资源的关系。关系不存在时为 no-op。
func (s *Service) RemoveMembership(ctx context.Context, userID string, relation Relation, targetType TargetType, targetID string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND relation = ? AND target_type = ? AND target_id = ?",
			userID, relation, targetType, targetID).
		Delete(&Membership{}).Error
	if err != nil {
		return fmt.Errorf("删除用户关系失败: %w", err)
	}
	return nil
}

// MembershipLists 用户的全部关系快照
type MembershipLists struct {
	CreatedDatasets    []string `json:"created_datasets"`
	CreatedRags        []string `json:"created_rags"`
	BookmarkedDatasets []string `json:"bookmarked_datasets"`
	BookmarkedRags     []string `json:"bookmarked_rags"`
}

// ListMemberships 返回用户创建与收藏的数据集/RAG ID 列表，按添加时间排序。
func (s *Service) ListMemberships(ctx context.Context, userID string) (*MembershipLists, error) {
	var rows []Membership
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询用户关系失败: %w", err)
	}

	lists := &MembershipLists{
		CreatedDatasets:    []string{},
		CreatedRags:        []string{},
		BookmarkedDatasets: []string{},
		BookmarkedRags:     []string{},
	}
	for _, m := range rows {
		switch {
		case m.Relation == RelationCreated && m.TargetType == TargetDataset:
			lists.CreatedDatasets = append(lists.CreatedDatasets, m.TargetID)
		case m.Relation == RelationCreated && m.TargetType == TargetRag:
			lists.CreatedRags = append(lists.CreatedRags, m.TargetID)
		case m.Relation == RelationBookmarked && m.TargetType == TargetDataset:
			lists.BookmarkedDatasets = append(lists.BookmarkedDatasets, m.TargetID)
		case m.Relation == RelationBookmarked && m.TargetType == TargetRag:
			lists.BookmarkedRags = append(lists.BookmarkedRags, m.TargetID)
		}
	}
	return lists, nil
}

// ListBookmarks 返回用户收藏的指定类型资源 ID 列表
func (s *Service) ListBookmarks(ctx context.Context, userID string, targetType TargetType) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&Membership{}).
		Where("user_id = ? AND relation = ? AND target_type = ?", userID, RelationBookmarked, targetType).
		Order("created_at ASC").
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询收藏失败: %w", err)
	}
	return ids, nil
}
