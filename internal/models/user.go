package models

import "time"

// CurrentUser identifies whoever is operating the dashboard. It is supplied by
// the surrounding auth layer and only used for attribution.
type CurrentUser struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Anonymous reports whether no identity was supplied.
func (u CurrentUser) Anonymous() bool {
	return u.Email == ""
}

// AdminUser grants access to analytics and user management.
type AdminUser struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginEvent records a single dashboard sign-in.
type LoginEvent struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	LoginAt   time.Time `json:"login_at"`
}
