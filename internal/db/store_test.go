package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendoralerts/internal/db"
	"vendoralerts/internal/db/dbtest"
	"vendoralerts/internal/model"
)

func TestUsers(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)

	admin := dbtest.User(t, store, "alice", model.RoleAdmin)
	cm := dbtest.User(t, store, "bob", model.RoleComplianceManager)
	dbtest.User(t, store, "carol", model.RoleDataManager)
	gone := dbtest.InactiveUser(t, store, "dave", model.RoleAdmin)

	users, err := store.ActiveUsersByRoles(ctx, []string{model.RoleAdmin, model.RoleComplianceManager})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, admin.ID, users[0].ID)
	assert.Equal(t, cm.ID, users[1].ID)

	users, err = store.UsersByIDs(ctx, []int64{gone.ID, 9999})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "dave", users[0].Username)

	users, err = store.UsersByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)
	u := dbtest.User(t, store, "alice", model.RoleAdmin)

	_, err := store.GetSetting(ctx, u.ID, model.KindDataConflict)
	assert.ErrorIs(t, err, model.ErrNotFound)

	st := model.Setting{UserID: u.ID, Kind: model.KindDataConflict, Enabled: true, DeliveryMethod: model.DeliveryBoth}
	require.NoError(t, store.UpsertSetting(ctx, &st))

	st.Enabled = false
	st.DeliveryMethod = model.DeliveryEmail
	require.NoError(t, store.UpsertSetting(ctx, &st))

	got, err := store.GetSetting(ctx, u.ID, model.KindDataConflict)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, model.DeliveryEmail, got.DeliveryMethod)

	all, err := store.ListSettings(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	bad := model.Setting{UserID: u.ID, Kind: model.KindSystemUpdate, DeliveryMethod: "pigeon"}
	assert.ErrorIs(t, store.UpsertSetting(ctx, &bad), model.ErrInvalidDeliveryMethod)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)
	alice := dbtest.User(t, store, "alice", model.RoleAdmin)
	bob := dbtest.User(t, store, "bob", model.RoleAdmin)

	first := model.Notification{UserID: alice.ID, Kind: model.KindSystemUpdate, Message: "first"}
	require.NoError(t, store.CreateNotification(ctx, &first))
	second := model.Notification{UserID: alice.ID, Kind: model.KindSystemUpdate, Message: "second"}
	require.NoError(t, store.CreateNotification(ctx, &second))

	list, err := store.ListNotifications(ctx, model.NotificationFilter{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)

	assert.ErrorIs(t, store.MarkRead(ctx, bob.ID, first.ID), model.ErrNotFound)
	require.NoError(t, store.MarkRead(ctx, alice.ID, first.ID))

	unread := false
	list, err = store.ListNotifications(ctx, model.NotificationFilter{UserID: alice.ID, IsRead: &unread})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)

	list, err = store.ListNotifications(ctx, model.NotificationFilter{UserID: bob.ID})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeliveryLog(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)

	id, err := store.Enqueue(ctx, newRequest(model.PriorityLow, "log"))
	require.NoError(t, err)

	ok, err := store.WasDelivered(ctx, id, 1, "email")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.RecordDelivery(ctx, id, 1, "email"))
	require.NoError(t, store.RecordDelivery(ctx, id, 1, "email"))

	ok, err = store.WasDelivered(ctx, id, 1, "email")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.WasDelivered(ctx, id, 1, "in_app")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx *db.Store) error {
		if _, err := tx.Enqueue(ctx, newRequest(model.PriorityLow, "rolled back")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := store.ListRequests(ctx, model.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestApprovalWatermark(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)
	conn := store.DB()

	changed := model.Now().Add(-time.Hour)
	id := dbtest.Approval(t, conn, model.Approval{
		VendorID: 1, ApprovalType: "GMP", RegulatoryBody: "FDA", UpdatedAt: changed,
	})
	old := model.Now().Add(-60 * 24 * time.Hour)
	dbtest.Approval(t, conn, model.Approval{
		VendorID: 2, ApprovalType: "GMP", RegulatoryBody: "EMA", UpdatedAt: old,
	})

	since := model.Now().Add(-30 * 24 * time.Hour)
	approvals, err := store.ApprovalsToNotify(ctx, since)
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, id, approvals[0].ID)
	assert.True(t, approvals[0].UpdatedAt.Equal(changed))

	advanced, err := store.AdvanceApprovalWatermark(ctx, id, approvals[0].UpdatedAt)
	require.NoError(t, err)
	assert.True(t, advanced)

	advanced, err = store.AdvanceApprovalWatermark(ctx, id, approvals[0].UpdatedAt)
	require.NoError(t, err)
	assert.False(t, advanced)

	approvals, err = store.ApprovalsToNotify(ctx, since)
	require.NoError(t, err)
	assert.Empty(t, approvals)

	dbtest.Touch(t, conn, "regulatory_approvals", "approval_id", id, model.Now())
	approvals, err = store.ApprovalsToNotify(ctx, since)
	require.NoError(t, err)
	assert.Len(t, approvals, 1)
}

func TestConflictWatermark(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)
	conn := store.DB()

	id := dbtest.Conflict(t, conn, model.Conflict{
		EntityType: model.EntityVendor, EntityID: 7, FieldName: "address",
		Source1: "sap", Value1: "Pune", Source2: "crm", Value2: "Mumbai",
	})
	dbtest.Conflict(t, conn, model.Conflict{
		EntityType: model.EntityVendor, EntityID: 8, FieldName: "phone",
		Source1: "sap", Value1: "1", Source2: "crm", Value2: "2", Status: "resolved",
	})

	conflicts, err := store.ConflictsToNotify(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, id, conflicts[0].ID)

	advanced, err := store.AdvanceConflictWatermark(ctx, id, conflicts[0].UpdatedAt)
	require.NoError(t, err)
	assert.True(t, advanced)

	conflicts, err = store.ConflictsToNotify(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}
