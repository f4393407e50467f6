package auth

import (
	"errors"
	"net/http"

	"backend/internal/auth"
	"backend/internal/metrics"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtService *auth.JWTService
	users      *user.Service
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(jwtService *auth.JWTService, users *user.Service) *AuthHandler {
	return &AuthHandler{
		jwtService: jwtService,
		users:      users,
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// UserInfo 用户信息
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	*auth.TokenPair
	User *UserInfo `json:"user"`
}

// Register 用户注册
// @Summary 用户注册
// @Description 使用用户名、邮箱和密码注册新账户
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册请求参数"
// @Success 200 {object} UserInfo
// @Failure 400 {object} map[string]string "参数错误或邮箱已注册"
// @Failure 500 {object} map[string]string "服务器内部错误"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "邮箱已被注册"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "注册失败"})
		return
	}

	c.JSON(http.StatusOK, buildUserInfo(u))
}

// Login 用户登录
// @Summary 用户登录
// @Description 使用邮箱和密码登录，获取访问令牌和刷新令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录请求参数"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]string "参数错误"
// @Failure 401 {object} map[string]string "认证失败"
// @Failure 500 {object} map[string]string "服务器内部错误"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			metrics.UserLoginsTotal.WithLabelValues("failure").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "邮箱或密码错误"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询用户失败"})
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(u.ID, u.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成令牌失败"})
		return
	}

	metrics.UserLoginsTotal.WithLabelValues("success").Inc()

	c.JSON(http.StatusOK, &LoginResponse{
		TokenPair: tokenPair,
		User:      buildUserInfo(u),
	})
}

// Verify 验证令牌并返回当前用户
// @Summary 验证令牌
// @Description 返回当前访问令牌对应的用户信息
// @Tags Auth
// @Produce json
// @Success 200 {object} UserInfo
// @Failure 401 {object} map[string]string "未认证"
// @Router /api/auth/verify [get]
func (h *AuthHandler) Verify(c *gin.Context) {
	userCtx, exists := auth.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	u, err := h.users.GetByID(c.Request.Context(), userCtx.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "用户不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询用户失败"})
		return
	}

	c.JSON(http.StatusOK, buildUserInfo(u))
}

// Logout 用户登出
// @Summary 用户登出
// @Description 将当前访问令牌加入黑名单
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]string "登出成功"
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	tokenString := auth.ExtractTokenFromBearer(authHeader)
	if tokenString != "" {
		// 黑名单写入失败不中断登出流程
		_ = h.jwtService.InvalidateToken(c.Request.Context(), tokenString)
	}

	c.JSON(http.StatusOK, gin.H{"message": "登出成功"})
}

func buildUserInfo(u *user.User) *UserInfo {
	return &UserInfo{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}
