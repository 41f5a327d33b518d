package service

import (
	"errors"
	"time"

	"github.com/philonet/rooms/internal/models"
	"github.com/philonet/rooms/pkg/jwt"

	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// UserService handles account operations
type UserService struct {
	db  *gorm.DB
	jwt *jwt.Service
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, jwtService *jwt.Service) *UserService {
	return &UserService{db: db, jwt: jwtService}
}

// CreateUser registers a new account and returns it with a session token
func (s *UserService) CreateUser(req *models.CreateUserRequest) (*models.User, string, error) {
	var existingUser models.User
	result := s.db.Where("email = ?", req.Email).First(&existingUser)
	if result.RowsAffected > 0 {
		return nil, "", ErrUserAlreadyExists
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, "", err
	}

	token, err := s.jwt.GenerateNamedToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// Login authenticates a user and returns a session token
func (s *UserService) Login(req *models.LoginRequest) (*models.User, string, error) {
	var user models.User
	result := s.db.Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", result.Error
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateNamedToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, "", err
	}

	s.db.Model(&user).Update("last_login", time.Now())

	return &user, token, nil
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	result := s.db.First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// TaggableUsers searches users by name or email for @-mention completion
func (s *UserService) TaggableUsers(currentUserID uint, search string, limit int, excludeCurrent bool) ([]models.User, error) {
	if limit <= 0 {
		limit = 10
	}

	q := s.db.Model(&models.User{}).Order("name ASC").Limit(limit)
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", like, like)
	}
	if excludeCurrent && currentUserID != 0 {
		q = q.Where("id <> ?", currentUserID)
	}

	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
