package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"spyfall/models"
)

const deviceTokenLifetime = 180 * 24 * time.Hour

// UserService is the identity resolver: it maps an opaque device id to a
// stable user record. The id is minted once per device and never changes;
// name and photo are editable. There are no credentials beyond the device
// token, which just carries the user id.
type UserService struct {
	db        *gorm.DB
	jwtSecret string
}

func NewUserService(db *gorm.DB, jwtSecret string) *UserService {
	return &UserService{
		db:        db,
		jwtSecret: jwtSecret,
	}
}

// CreateOrUpdateUser upserts the device's user record. An empty deviceID
// mints a fresh identity; a known one updates the mutable profile fields.
func (s *UserService) CreateOrUpdateUser(deviceID, name, profilePhotoURL string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}

	if deviceID == "" {
		user := &models.User{
			ID:              uuid.NewString(),
			Name:            name,
			ProfilePhotoURL: profilePhotoURL,
		}
		if err := s.db.Create(user).Error; err != nil {
			return nil, fmt.Errorf("%w: creating user: %v", ErrStoreUnavailable, err)
		}
		return user, nil
	}

	var user models.User
	err := s.db.Where("id = ?", deviceID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			ID:              deviceID,
			Name:            name,
			ProfilePhotoURL: profilePhotoURL,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("%w: creating user: %v", ErrStoreUnavailable, err)
		}
		return &user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading user: %v", ErrStoreUnavailable, err)
	}

	user.Name = name
	if profilePhotoURL != "" {
		user.ProfilePhotoURL = profilePhotoURL
	}
	if err := s.db.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("%w: updating user: %v", ErrStoreUnavailable, err)
	}
	return &user, nil
}

// GetUser resolves a user id to its record.
func (s *UserService) GetUser(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: loading user: %v", ErrStoreUnavailable, err)
	}
	return &user, nil
}

// GenerateDeviceToken mints the token a device presents on every call.
func (s *UserService) GenerateDeviceToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(deviceTokenLifetime).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ParseDeviceToken validates a device token and returns the user id it
// carries.
func (s *UserService) ParseDeviceToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid device token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid device token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errors.New("device token missing user id")
	}
	return userID, nil
}
