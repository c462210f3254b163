package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/auth"
	"restaurant-ordering-api/logger"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/otp"
)

const otpIssueAttempts = 5

// RegisterInput is the identity every registration path collects.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Phone     string `json:"phone" validate:"required,max=20"`
	Password  string `json:"password" validate:"required,min=6"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

type EmployeeRegisterInput struct {
	RegisterInput
	RestaurantID uint `json:"restaurant_id" validate:"required"`
}

// AccountService owns registration, verification and sessions.
type AccountService struct {
	db       *gorm.DB
	issuer   *auth.Issuer
	denylist auth.Denylist
	sender   otp.Sender
	otpTTL   time.Duration
	now      func() time.Time
}

func NewAccountService(db *gorm.DB, issuer *auth.Issuer, denylist auth.Denylist, sender otp.Sender, otpTTL time.Duration) *AccountService {
	return &AccountService{
		db:       db,
		issuer:   issuer,
		denylist: denylist,
		sender:   sender,
		otpTTL:   otpTTL,
		now:      time.Now,
	}
}

// RegisterOwner creates an inactive owner and mails them a verification code.
func (s *AccountService) RegisterOwner(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := s.newUser(in, models.RoleOwner, nil)
	if err != nil {
		return nil, err
	}

	var code string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createUser(tx, user); err != nil {
			return err
		}
		code, err = s.issueOTP(tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("owner registered", "user_id", user.ID)
	if err := s.sender.Send(ctx, user.Email, code); err != nil {
		// The account exists; the owner can ask for a new code.
		log.Error("otp delivery failed", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// RegisterEmployee creates an inactive employee attached to an existing restaurant.
func (s *AccountService) RegisterEmployee(ctx context.Context, in EmployeeRegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if _, err := findRestaurant(db, in.RestaurantID); err != nil {
		return nil, err
	}
	user, err := s.newUser(in.RegisterInput, models.RoleEmployee, &in.RestaurantID)
	if err != nil {
		return nil, err
	}
	if err := createUser(db, user); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("employee registered", "user_id", user.ID, "restaurant_id", in.RestaurantID)
	return user, nil
}

// RegisterCustomer creates a customer that is active and verified immediately.
func (s *AccountService) RegisterCustomer(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := s.newUser(in, models.RoleCustomer, nil)
	if err != nil {
		return nil, err
	}
	user.IsActive = true
	user.IsVerified = true
	if err := createUser(s.db.WithContext(ctx), user); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("customer registered", "user_id", user.ID)
	return user, nil
}

// CreateSuperuser creates a fully privileged, already verified owner.
func (s *AccountService) CreateSuperuser(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := s.newUser(in, models.RoleOwner, nil)
	if err != nil {
		return nil, err
	}
	user.IsActive = true
	user.IsVerified = true
	user.IsStaff = true
	user.IsSuperuser = true
	if err := createUser(s.db.WithContext(ctx), user); err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyOwner redeems an OTP. When email is given the code is matched against
// that user's code only; otherwise the code alone identifies the user.
func (s *AccountService) VerifyOwner(ctx context.Context, code, email string) (*models.User, error) {
	if code == "" {
		return nil, apperr.ValidationFields(map[string]string{"otp": "This field is required."})
	}

	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Preload("User").Where("code = ?", code)
		if email != "" {
			q = q.Where("user_id = (?)", tx.Model(&models.User{}).Select("id").Where("email = ?", normalizeEmail(email)))
		}
		var row models.OneTimePassword
		if err := q.First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validation("Invalid OTP.")
			}
			return fmt.Errorf("load otp: %w", err)
		}
		user = &row.User
		if user.IsVerified {
			return apperr.Conflict("%s is already verified.", user.Email)
		}
		now := s.now()
		if now.After(row.ExpiresAt) {
			return apperr.Validation("OTP has expired.")
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND is_verified = ?", user.ID, false).
			Updates(map[string]any{"is_verified": true, "is_active": true})
		if res.Error != nil {
			return fmt.Errorf("verify user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("%s is already verified.", user.Email)
		}
		if err := tx.Model(&row).Update("consumed_at", now).Error; err != nil {
			return fmt.Errorf("consume otp: %w", err)
		}
		user.IsVerified = true
		user.IsActive = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("owner verified", "user_id", user.ID)
	return user, nil
}

// ResendOTP replaces the code of an unverified owner and sends it again.
func (s *AccountService) ResendOTP(ctx context.Context, email string) error {
	if email == "" {
		return apperr.ValidationFields(map[string]string{"email": "This field is required."})
	}
	var code string
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ? AND role = ?", normalizeEmail(email), models.RoleOwner).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Owner not found.")
		}
		if err != nil {
			return fmt.Errorf("load owner: %w", err)
		}
		if user.IsVerified {
			return apperr.Conflict("%s is already verified.", user.Email)
		}
		code, err = s.issueOTP(tx, &user)
		return err
	})
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, user.Email, code)
}

// VerifyEmployee activates an employee of a restaurant the actor owns.
func (s *AccountService) VerifyEmployee(ctx context.Context, actor auth.Actor, employeeEmail string, restaurantID uint) (*models.User, error) {
	if !actor.Is(models.RoleOwner) {
		return nil, apperr.Forbidden("Only the restaurant owner can verify employees.")
	}
	if restaurantID == 0 {
		return nil, apperr.ValidationFields(map[string]string{"restaurant_id": "This field is required."})
	}
	db := s.db.WithContext(ctx)

	var restaurant models.Restaurant
	err := db.Where("id = ? AND owner_id = ?", restaurantID, actor.UserID).First(&restaurant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Restaurant not found or you do not own this restaurant.")
	}
	if err != nil {
		return nil, fmt.Errorf("load restaurant: %w", err)
	}

	var employee models.User
	err = db.Where("email = ? AND restaurant_id = ? AND role = ?", normalizeEmail(employeeEmail), restaurant.ID, models.RoleEmployee).
		First(&employee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Employee not found or not associated with your restaurant.")
	}
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if employee.IsVerified {
		return nil, apperr.Conflict("%s is already verified.", employee.Email)
	}

	err = db.Model(&employee).Updates(map[string]any{"is_active": true, "is_verified": true}).Error
	if err != nil {
		return nil, fmt.Errorf("verify employee: %w", err)
	}
	logger.FromContext(ctx).Info("employee verified", "user_id", employee.ID, "restaurant_id", restaurant.ID)
	return &employee, nil
}

// Login checks credentials and issues a session token.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	if email == "" || password == "" {
		return "", nil, apperr.Unauthenticated("Invalid login credentials.")
	}
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, apperr.Unauthenticated("Invalid login credentials.")
	}
	if err != nil {
		return "", nil, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, apperr.Unauthenticated("Invalid login credentials.")
	}
	if !user.IsActive {
		return "", nil, apperr.Forbidden("This account is inactive.")
	}

	token, _, err := s.issuer.Issue(&user)
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	if err := db.Model(&user).Update("last_login", now).Error; err != nil {
		return "", nil, fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = &now
	return token, &user, nil
}

// Logout revokes the token the actor authenticated with.
func (s *AccountService) Logout(ctx context.Context, actor auth.Actor) error {
	if actor.TokenID == "" {
		return apperr.Unauthenticated("Authentication credentials were not provided.")
	}
	return s.denylist.Revoke(ctx, actor.TokenID, actor.UserID, actor.ExpiresAt)
}

// Me returns the actor's own user row.
func (s *AccountService) Me(ctx context.Context, actor auth.Actor) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, actor.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// IsActive reports whether the user exists and is active.
func (s *AccountService) IsActive(ctx context.Context, userID uint) (bool, error) {
	var active []bool
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Limit(1).Pluck("is_active", &active).Error
	if err != nil {
		return false, fmt.Errorf("load user status: %w", err)
	}
	return len(active) == 1 && active[0], nil
}

// newUser validates in and builds an unsaved user; nothing is written when it fails.
func (s *AccountService) newUser(in RegisterInput, role models.UserRole, restaurantID *uint) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.User{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         role,
		RestaurantID: restaurantID,
	}, nil
}

func createUser(db *gorm.DB, user *models.User) error {
	var n int64
	if err := db.Model(&models.User{}).Where("email = ?", user.Email).Count(&n).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return apperr.Conflict("A user with this email already exists.")
	}
	if err := db.Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// issueOTP replaces user's code with a fresh one that no other user holds.
func (s *AccountService) issueOTP(tx *gorm.DB, user *models.User) (string, error) {
	for i := 0; i < otpIssueAttempts; i++ {
		code, err := otp.Generate()
		if err != nil {
			return "", err
		}
		var taken int64
		if err := tx.Model(&models.OneTimePassword{}).Where("code = ? AND user_id <> ?", code, user.ID).Count(&taken).Error; err != nil {
			return "", fmt.Errorf("check otp: %w", err)
		}
		if taken > 0 {
			continue
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.OneTimePassword{}).Error; err != nil {
			return "", fmt.Errorf("drop old otp: %w", err)
		}
		row := models.OneTimePassword{UserID: user.ID, Code: code, ExpiresAt: s.now().Add(s.otpTTL)}
		if err := tx.Create(&row).Error; err != nil {
			return "", fmt.Errorf("store otp: %w", err)
		}
		return code, nil
	}
	return "", errors.New("issue otp: no free code after retries")
}

func findRestaurant(db *gorm.DB, id uint) (*models.Restaurant, error) {
	var r models.Restaurant
	err := db.First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Restaurant not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load restaurant: %w", err)
	}
	return &r, nil
}
