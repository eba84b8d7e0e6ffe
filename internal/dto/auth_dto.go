package dto

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

type LoginRequest struct {
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	PendingAdd *PendingAdd `json:"pendingAdd,omitempty"`
}

// PendingAdd is an add-to-cart the shopper attempted while signed out.
type PendingAdd struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         UserResponse  `json:"user"`
	Cart         *CartResponse `json:"cart,omitempty"`
}

type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin"`
}

// ProfileUpdateRequest carries the editable profile fields. Nil fields are
// left unchanged.
type ProfileUpdateRequest struct {
	DisplayName *string `json:"displayName"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Phone       *string `json:"phone"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
	DB           string `json:"db"`
	ProductCount int    `json:"product_count"`
}
