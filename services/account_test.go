package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/testkit"
)

func TestRegisterOwner_PasswordMismatchCreatesNothing(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, sender := newAccounts(t, db)

	in := registration("owner@example.com")
	in.Password2 = "something-else"
	_, err := accounts.RegisterOwner(context.Background(), in)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, "Passwords do not match.", appErr.Fields["password2"])

	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, sender.codes)
}

func TestRegisterOwner_MissingFields(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, _ := newAccounts(t, db)

	_, err := accounts.RegisterOwner(context.Background(), RegisterInput{Email: "not-an-email", Password: "x", Password2: "x"})
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Enter a valid email address.", appErr.Fields["email"])
	assert.Equal(t, "This field is required.", appErr.Fields["first_name"])
	assert.Contains(t, appErr.Fields, "phone")
}

func TestRegisterOwner_PendingUntilOTP(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, sender := newAccounts(t, db)
	ctx := context.Background()

	u, err := accounts.RegisterOwner(ctx, registration("  Owner@EXAMPLE.com "))
	require.NoError(t, err)
	assert.Equal(t, "Owner@example.com", u.Email)
	assert.False(t, u.IsActive)
	assert.False(t, u.IsVerified)
	assert.Len(t, sender.last(u.Email), 6)

	_, err = accounts.RegisterOwner(ctx, registration("Owner@example.com"))
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestRegisterOwner_SendFailureKeepsAccount(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, sender := newAccounts(t, db)
	sender.err = errors.New("smtp down")

	u, err := accounts.RegisterOwner(context.Background(), registration("o@example.com"))
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
}

func TestVerifyOwner_ExactlyOnce(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, sender := newAccounts(t, db)
	ctx := context.Background()

	u, err := accounts.RegisterOwner(ctx, registration("o@example.com"))
	require.NoError(t, err)
	code := sender.last(u.Email)

	verified, err := accounts.VerifyOwner(ctx, code, "")
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.True(t, verified.IsActive)

	var row models.OneTimePassword
	require.NoError(t, db.Where("user_id = ?", u.ID).First(&row).Error)
	require.NotNil(t, row.ConsumedAt)
	consumedAt := *row.ConsumedAt

	_, err = accounts.VerifyOwner(ctx, code, "")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	require.NoError(t, db.Where("user_id = ?", u.ID).First(&row).Error)
	assert.True(t, consumedAt.Equal(*row.ConsumedAt), "second redemption must not touch state")
}

func TestVerifyOwner_InvalidAndExpired(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, sender := newAccounts(t, db)
	ctx := context.Background()

	u, err := accounts.RegisterOwner(ctx, registration("o@example.com"))
	require.NoError(t, err)
	code := sender.last(u.Email)

	_, err = accounts.VerifyOwner(ctx, "", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = accounts.VerifyOwner(ctx, wrong, "")
	require.Error(t, err)
	assert.Equal(t, "validation: Invalid OTP.", err.Error())

	_, err = accounts.VerifyOwner(ctx, code, "someone-else@example.com")
	assert.Equal(t, "validation: Invalid OTP.", err.Error())

	accounts.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = accounts.VerifyOwner(ctx, code, u.Email)
	assert.Equal(t, "validation: OTP has expired.", err.Error())

	var got models.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.False(t, got.IsVerified)
}

func TestResendOTP_ReplacesCode(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, sender := newAccounts(t, db)
	ctx := context.Background()

	u, err := accounts.RegisterOwner(ctx, registration("o@example.com"))
	require.NoError(t, err)

	require.NoError(t, accounts.ResendOTP(ctx, u.Email))
	require.Len(t, sender.codes[u.Email], 2)

	var n int64
	require.NoError(t, db.Model(&models.OneTimePassword{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	_, err = accounts.VerifyOwner(ctx, sender.last(u.Email), u.Email)
	require.NoError(t, err)

	err = accounts.ResendOTP(ctx, u.Email)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	err = accounts.ResendOTP(ctx, "nobody@example.com")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRegisterCustomer_ActiveImmediately(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, sender := newAccounts(t, db)

	u, err := accounts.RegisterCustomer(context.Background(), registration("c@example.com"))
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.True(t, u.IsVerified)
	assert.Equal(t, models.RoleCustomer, u.Role)
	assert.Empty(t, sender.codes)
}

func TestEmployeeLifecycle(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, _ := newAccounts(t, db)
	ctx := context.Background()
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	r := testkit.NewRestaurant(t, db, owner)
	stranger := testkit.NewUser(t, db, models.RoleOwner, nil)

	_, err := accounts.RegisterEmployee(ctx, EmployeeRegisterInput{RegisterInput: registration("e@example.com"), RestaurantID: 9999})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	emp, err := accounts.RegisterEmployee(ctx, EmployeeRegisterInput{RegisterInput: registration("e@example.com"), RestaurantID: r.ID})
	require.NoError(t, err)
	assert.False(t, emp.IsActive)
	require.NotNil(t, emp.RestaurantID)
	assert.Equal(t, r.ID, *emp.RestaurantID)

	_, _, err = accounts.Login(ctx, emp.Email, testkit.Password)
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "inactive employee cannot log in")

	_, err = accounts.VerifyEmployee(ctx, actorOf(stranger), emp.Email, r.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	customer := testkit.NewUser(t, db, models.RoleCustomer, nil)
	_, err = accounts.VerifyEmployee(ctx, actorOf(customer), emp.Email, r.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	verified, err := accounts.VerifyEmployee(ctx, actorOf(owner), emp.Email, r.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsActive)

	_, err = accounts.VerifyEmployee(ctx, actorOf(owner), emp.Email, r.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestLoginLogout(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, _ := newAccounts(t, db)
	ctx := context.Background()
	u := testkit.NewUser(t, db, models.RoleCustomer, nil)

	_, _, err := accounts.Login(ctx, u.Email, "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	_, _, err = accounts.Login(ctx, "missing@example.com", testkit.Password)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	token, got, err := accounts.Login(ctx, u.Email, testkit.Password)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)

	claims, err := accounts.issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	actor := actorOf(u)
	actor.TokenID = claims.ID
	require.NoError(t, accounts.Logout(ctx, actor))

	revoked, err := accounts.denylist.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestCreateSuperuser(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, _ := newAccounts(t, db)

	u, err := accounts.CreateSuperuser(context.Background(), registration("root@example.com"))
	require.NoError(t, err)
	assert.True(t, u.IsSuperuser)
	assert.True(t, u.IsStaff)
	assert.True(t, u.IsActive)
	assert.Equal(t, models.RoleOwner, u.Role)
}

func TestIsActive(t *testing.T) {
	db := testkit.OpenDB(t)
	accounts, _ := newAccounts(t, db)
	ctx := context.Background()
	u := testkit.NewUser(t, db, models.RoleCustomer, nil)

	active, err := accounts.IsActive(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, db.Model(u).Update("is_active", false).Error)
	active, err = accounts.IsActive(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, active)

	active, err = accounts.IsActive(ctx, 4242)
	require.NoError(t, err)
	assert.False(t, active)
}
