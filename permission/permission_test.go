package permission_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/permission"
	"restaurant-ordering-api/testkit"
)

var allActions = []permission.Action{permission.Create, permission.Update, permission.Delete}

func TestCanPerform_OwnerAlwaysAllowed(t *testing.T) {
	db := testkit.OpenDB(t)
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	r := testkit.NewRestaurant(t, db, owner)
	// A stray permission row denying everything must not matter for the owner.
	testkit.Grant(t, db, owner, r, false, false, false)

	res := permission.NewResolver(db)
	for _, a := range allActions {
		ok, err := res.CanPerform(context.Background(), owner.ID, r, a)
		require.NoError(t, err)
		assert.True(t, ok, a)
	}
}

func TestCanPerform_EmployeeWithoutRecordDenied(t *testing.T) {
	db := testkit.OpenDB(t)
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	r := testkit.NewRestaurant(t, db, owner)
	emp := testkit.NewUser(t, db, models.RoleEmployee, &r.ID)

	res := permission.NewResolver(db)
	for _, a := range allActions {
		ok, err := res.CanPerform(context.Background(), emp.ID, r, a)
		require.NoError(t, err)
		assert.False(t, ok, a)
	}
}

func TestCanPerform_CreateOnlyEmployee(t *testing.T) {
	db := testkit.OpenDB(t)
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	r := testkit.NewRestaurant(t, db, owner)
	emp := testkit.NewUser(t, db, models.RoleEmployee, &r.ID)
	testkit.Grant(t, db, emp, r, true, false, false)

	res := permission.NewResolver(db)
	ctx := context.Background()

	ok, err := res.CanPerform(ctx, emp.ID, r, permission.Create)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, a := range []permission.Action{permission.Update, permission.Delete} {
		ok, err := res.CanPerform(ctx, emp.ID, r, a)
		require.NoError(t, err)
		assert.False(t, ok, a)
	}
}

func TestCanPerform_PermissionIsPerRestaurant(t *testing.T) {
	db := testkit.OpenDB(t)
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	mine := testkit.NewRestaurant(t, db, owner)
	other := testkit.NewRestaurant(t, db, owner)
	emp := testkit.NewUser(t, db, models.RoleEmployee, &mine.ID)
	testkit.Grant(t, db, emp, mine, true, true, true)

	ok, err := permission.NewResolver(db).CanPerform(context.Background(), emp.ID, other, permission.Create)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanPerform_ReadsCurrentGrant(t *testing.T) {
	db := testkit.OpenDB(t)
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	r := testkit.NewRestaurant(t, db, owner)
	emp := testkit.NewUser(t, db, models.RoleEmployee, &r.ID)
	testkit.Grant(t, db, emp, r, false, true, false)

	res := permission.NewResolver(db)
	ctx := context.Background()
	ok, err := res.CanPerform(ctx, emp.ID, r, permission.Update)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.Model(&models.EmployeePermission{}).
		Where("employee_id = ?", emp.ID).Update("can_update", false).Error)

	ok, err = res.CanPerform(ctx, emp.ID, r, permission.Update)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanPerform_UnknownActionDenied(t *testing.T) {
	db := testkit.OpenDB(t)
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	r := testkit.NewRestaurant(t, db, owner)
	emp := testkit.NewUser(t, db, models.RoleEmployee, &r.ID)
	testkit.Grant(t, db, emp, r, true, true, true)

	ok, err := permission.NewResolver(db).CanPerform(context.Background(), emp.ID, r, permission.Action("archive"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthorize(t *testing.T) {
	db := testkit.OpenDB(t)
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	r := testkit.NewRestaurant(t, db, owner)
	emp := testkit.NewUser(t, db, models.RoleEmployee, &r.ID)

	res := permission.NewResolver(db)
	ctx := context.Background()

	assert.NoError(t, res.Authorize(ctx, owner.ID, r, permission.Delete, "item"))

	err := res.Authorize(ctx, emp.ID, r, permission.Delete, "item")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	err = res.Authorize(ctx, emp.ID, nil, permission.Delete, "item")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
