package domain

// StaffMember 医院员工（/users/）
type StaffMember struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Department string    `json:"department"`
	IsLocked   Flag      `json:"is_locked"`
	CreatedAt  Timestamp `json:"created_at"`
}
