package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/internal/testutil"
)

func TestRollForwardDeliveries(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ana@example.com", model.RoleCustomer)
	plan := testutil.CreatePlan(t, db, nil, 0)

	now := time.Date(2025, 10, 22, 0, 5, 0, 0, time.UTC) // quarta
	past := time.Date(2025, 10, 13, 8, 0, 0, 0, time.UTC)
	future := time.Date(2025, 10, 27, 8, 0, 0, 0, time.UTC)

	mk := func(status string, next time.Time) uint {
		sub := model.Subscription{UserID: user.ID, PlanID: plan.ID, Status: status, NextDeliveryDate: next, StatusChangedAt: now}
		require.NoError(t, db.Omit("User", "Plan").Create(&sub).Error)
		return sub.ID
	}
	overdue := mk("active", past)
	upcoming := mk("active", future)
	paused := mk("paused", past)

	n, err := RollForwardDeliveries(db, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	nextOf := func(id uint) time.Time {
		var s model.Subscription
		require.NoError(t, db.First(&s, id).Error)
		return s.NextDeliveryDate
	}
	assert.True(t, nextOf(overdue).Equal(future), nextOf(overdue))
	assert.True(t, nextOf(upcoming).Equal(future))
	assert.True(t, nextOf(paused).Equal(past))
}

func TestLowStockProducts(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateProduct(t, db, "Kiwi", model.CategoryExotic, 2)
	testutil.CreateProduct(t, db, "Banana", model.CategoryNormal, 40)
	testutil.CreateProduct(t, db, "Limão", model.CategoryCitrus, 0)

	products, err := LowStockProducts(db, 5)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Limão", products[0].Name)
	assert.Equal(t, "Kiwi", products[1].Name)
}
