package domain

// Session 当前登录身份（对应持久化的 securehealth_user 记录）
// Token 单独持久化在 securehealth_token 下，不进入 JSON
type Session struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	Department string `json:"department"`

	Token string `json:"-"`
}

// LoginResult /auth/login 响应
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        Role   `json:"role"`
	Name        string `json:"name"`
	UserID      int64  `json:"user_id"`
	Department  string `json:"department"`
}

// Session 由登录响应构造会话
func (r LoginResult) Session() *Session {
	return &Session{
		ID:         r.UserID,
		Name:       r.Name,
		Role:       r.Role,
		Department: r.Department,
		Token:      r.AccessToken,
	}
}
