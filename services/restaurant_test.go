package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/testkit"
)

func TestRestaurantCreate_OwnersOnly(t *testing.T) {
	db := testkit.OpenDB(t)
	svc := NewRestaurantService(db)
	ctx := context.Background()
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	customer := testkit.NewUser(t, db, models.RoleCustomer, nil)

	_, err := svc.Create(ctx, actorOf(customer), RestaurantInput{Name: "Nope", Location: "X"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.Create(ctx, actorOf(owner), RestaurantInput{Name: "Bistro"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	r, err := svc.Create(ctx, actorOf(owner), RestaurantInput{Name: "Bistro", Location: "Main St"})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, r.OwnerID)

	mine, err := svc.ListForActor(ctx, actorOf(owner))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, r.ID, mine[0].ID)

	none, err := svc.ListForActor(ctx, actorOf(customer))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRestaurantListAll_Search(t *testing.T) {
	db := testkit.OpenDB(t)
	svc := NewRestaurantService(db)
	ctx := context.Background()
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	_, err := svc.Create(ctx, actorOf(owner), RestaurantInput{Name: "Taco Stand", Location: "Pier"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, actorOf(owner), RestaurantInput{Name: "Noodle Bar", Location: "Market"})
	require.NoError(t, err)

	all, err := svc.ListAll(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := svc.ListAll(ctx, "Noodle")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Noodle Bar", found[0].Name)
}

func TestEmployeesListing(t *testing.T) {
	db := testkit.OpenDB(t)
	svc := NewRestaurantService(db)
	ctx := context.Background()
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	r1 := testkit.NewRestaurant(t, db, owner)
	r2 := testkit.NewRestaurant(t, db, owner)
	testkit.NewUser(t, db, models.RoleEmployee, &r1.ID)
	testkit.NewUser(t, db, models.RoleEmployee, &r1.ID)
	testkit.NewUser(t, db, models.RoleEmployee, &r2.ID)

	emps, err := svc.Employees(ctx, actorOf(owner), r1.ID)
	require.NoError(t, err)
	assert.Len(t, emps, 2)

	other := testkit.NewUser(t, db, models.RoleOwner, nil)
	_, err = svc.Employees(ctx, actorOf(other), r1.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	grouped, err := svc.EmployeesByRestaurant(ctx, actorOf(owner))
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Len(t, grouped[0].Employees, 2)
	assert.Len(t, grouped[1].Employees, 1)
}

func TestSetPermission_Upsert(t *testing.T) {
	db := testkit.OpenDB(t)
	svc := NewRestaurantService(db)
	ctx := context.Background()
	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	r := testkit.NewRestaurant(t, db, owner)
	emp := testkit.NewUser(t, db, models.RoleEmployee, &r.ID)

	p, err := svc.SetPermission(ctx, actorOf(owner), PermissionInput{EmployeeEmail: emp.Email, RestaurantID: r.ID, CanCreate: true, CanUpdate: true})
	require.NoError(t, err)
	assert.True(t, p.CanCreate)
	assert.True(t, p.CanUpdate)
	assert.False(t, p.CanDelete)

	_, err = svc.SetPermission(ctx, actorOf(owner), PermissionInput{EmployeeEmail: emp.Email, RestaurantID: r.ID, CanDelete: true})
	require.NoError(t, err)

	var rows []models.EmployeePermission
	require.NoError(t, db.Where("employee_id = ?", emp.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].CanCreate, "false values are written")
	assert.False(t, rows[0].CanUpdate)
	assert.True(t, rows[0].CanDelete)

	// Another owner learns nothing about which employees exist.
	intruder := testkit.NewUser(t, db, models.RoleOwner, nil)
	_, err = svc.SetPermission(ctx, actorOf(intruder), PermissionInput{EmployeeEmail: emp.Email, RestaurantID: r.ID})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = svc.SetPermission(ctx, actorOf(intruder), PermissionInput{EmployeeEmail: "ghost@example.com", RestaurantID: r.ID})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.SetPermission(ctx, actorOf(owner), PermissionInput{EmployeeEmail: "ghost@example.com", RestaurantID: r.ID})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRestaurantDelete_Cascades(t *testing.T) {
	db := testkit.OpenDB(t)
	svc := NewRestaurantService(db)
	orders := NewOrderService(db)
	carts := NewCartService(db)
	ctx := context.Background()

	owner := testkit.NewUser(t, db, models.RoleOwner, nil)
	r := testkit.NewRestaurant(t, db, owner)
	keep := testkit.NewRestaurant(t, db, owner)
	c := testkit.NewCategory(t, db, r, "mains")
	item := testkit.NewItem(t, db, c, "Soup", "4.00")
	keptItem := testkit.NewItem(t, db, testkit.NewCategory(t, db, keep, "sides"), "Bread", "1.00")
	emp := testkit.NewUser(t, db, models.RoleEmployee, &r.ID)
	testkit.Grant(t, db, emp, r, true, true, true)

	placed := testkit.NewUser(t, db, models.RoleCustomer, nil)
	_, err := carts.Add(ctx, actorOf(placed), CartAddInput{ItemID: item.ID})
	require.NoError(t, err)
	_, err = orders.Confirm(ctx, actorOf(placed))
	require.NoError(t, err)

	pending := testkit.NewUser(t, db, models.RoleCustomer, nil)
	_, err = carts.Add(ctx, actorOf(pending), CartAddInput{ItemID: item.ID, Quantity: intp(2)})
	require.NoError(t, err)

	stranger := testkit.NewUser(t, db, models.RoleOwner, nil)
	err = svc.Delete(ctx, actorOf(stranger), r.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, svc.Delete(ctx, actorOf(owner), r.ID))

	count := func(model any, where string, args ...any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&models.Restaurant{}, "id = ?", r.ID))
	assert.Zero(t, count(&models.Category{}, "restaurant_id = ?", r.ID))
	assert.Zero(t, count(&models.Item{}, "id = ?", item.ID))
	assert.Zero(t, count(&models.CartItem{}, "item_id = ?", item.ID))
	assert.Zero(t, count(&models.EmployeePermission{}, "restaurant_id = ?", r.ID))
	assert.Zero(t, count(&models.Order{}, "restaurant_id = ?", r.ID))
	assert.Zero(t, count(&models.OrderItem{}, "item_id = ?", item.ID))
	assert.EqualValues(t, 1, count(&models.Item{}, "id = ?", keptItem.ID))

	var got models.User
	require.NoError(t, db.First(&got, emp.ID).Error)
	assert.Nil(t, got.RestaurantID)
	assert.False(t, got.IsActive)
}
