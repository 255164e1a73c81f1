package dto

import (
	"time"

	"github.com/itmsdev/itms-api/internal/models"
)

// UserDTO represents a user in API responses. The password hash never
// leaves the model layer.
type UserDTO struct {
	ID        uint64    `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRefDTO is the minimal user shape embedded in other resources
type UserRefDTO struct {
	ID       uint64 `json:"user_id"`
	Username string `json:"username"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt,
	}
}

// ToUserRefDTO converts a User model to UserRefDTO
func ToUserRefDTO(user models.User) UserRefDTO {
	return UserRefDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}
