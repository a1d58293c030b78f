package api

// Token is returned by the login endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Message is the generic {"message": "..."} response.
type Message struct {
	Message string `json:"message"`
}

// UserPublic is a user as exposed by the API.
type UserPublic struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	FullName    *string `json:"full_name,omitempty"`
	IsActive    bool    `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
}

// DisplayName returns the full name when set, otherwise the email.
func (u UserPublic) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Email
}

// UserUpdateMe is the body for updating the current user.
type UserUpdateMe struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// UpdatePassword is the body for changing the current user's password.
type UpdatePassword struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UserRegister is the body for self sign-up.
type UserRegister struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name,omitempty"`
}

// ItemPublic is an item as exposed by the API.
type ItemPublic struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	OwnerID     string  `json:"owner_id"`
}

// ItemsPublic is a page of items.
type ItemsPublic struct {
	Data  []ItemPublic `json:"data"`
	Count int          `json:"count"`
}

// ItemCreate is the body for creating an item.
type ItemCreate struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// ItemUpdate is the body for updating an item. Nil fields are left unchanged.
type ItemUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}
