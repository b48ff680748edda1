package user

// User represents a user in the system
type User struct {
	ID       int64  `json:"id" gorm:"primaryKey;autoIncrement" db:"id"`
	Name     string `json:"name" gorm:"not null" db:"name"`
	Username string `json:"username" gorm:"uniqueIndex;not null" db:"username"`
	Email    string `json:"email" gorm:"uniqueIndex;not null" db:"email"`
	IsActive bool   `json:"isActive" gorm:"column:is_active;not null" db:"is_active"`
}

// TableName pins the gorm table name.
func (User) TableName() string {
	return "users"
}

// CreateUserRequest represents the request to create a user.
// ID and IsActive carry no rules: they are accepted unchecked and never
// copied onto the new user.
type CreateUserRequest struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// UpdateUserRequest represents a partial update; nil fields are left untouched.
// The omitempty rules on Name and Username keep their string type checked.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty"`
	Username *string `json:"username,omitempty" validate:"omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// Batch modes for BatchCreateRequest.
const (
	BatchModeManual = "manual"
	BatchModeScoped = "scoped"
)

// BatchCreateRequest creates exactly two users in one transaction.
type BatchCreateRequest struct {
	Users []CreateUserRequest `json:"users" validate:"required,len=2,dive"`
	Mode  string              `json:"mode,omitempty" validate:"omitempty,oneof=manual scoped"`
}

// NewUser creates a new active user. The ID is assigned by storage on save.
func NewUser(name, username, email string) *User {
	return &User{
		Name:     name,
		Username: username,
		Email:    email,
		IsActive: true,
	}
}

// ToUsers maps every request of the batch onto a new user.
func (r *BatchCreateRequest) ToUsers() []*User {
	users := make([]*User, 0, len(r.Users))
	for _, req := range r.Users {
		users = append(users, NewUser(req.Name, req.Username, req.Email))
	}
	return users
}

// Clone returns a copy that shares no memory with u.
func (u *User) Clone() *User {
	c := *u
	return &c
}

