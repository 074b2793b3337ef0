package worker

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendoralerts/internal/catalog"
	"vendoralerts/internal/db/dbtest"
	"vendoralerts/internal/delivery"
	"vendoralerts/internal/model"
)

type offerRecorder struct {
	offered []model.Request
}

func (o *offerRecorder) Offer(req model.Request) { o.offered = append(o.offered, req) }

func TestApprovalScannerEnqueuesOncePerChange(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)
	product := int64(7)
	id := dbtest.Approval(t, store.DB(), model.Approval{
		VendorID: 3, ProductID: &product, ApprovalType: "CEP", RegulatoryBody: "EDQM", Status: "pending",
	})

	offers := &offerRecorder{}
	names := stubNamer{vendors: map[int64]string{3: "Globex"}, products: map[int64]string{7: "Ibuprofen"}}
	sc := NewApprovalScanner(store, names, offers, quietLogger())

	n, err := sc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = sc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	reqs, err := store.ListRequests(ctx, model.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.Equal(t, model.KindRegulatoryApproval, req.Kind)
	assert.Equal(t, "Regulatory approval update: CEP from EDQM for Globex (Ibuprofen). Status: pending.", req.Message)
	assert.Equal(t, model.PriorityMedium, req.Priority)
	assert.Equal(t, []string{model.RoleAdmin, model.RoleComplianceManager}, req.Recipients.Roles)
	assert.Equal(t, &model.Subject{EntityType: model.EntityApproval, EntityID: id}, req.Subject())

	require.Len(t, offers.offered, 1)
	assert.Equal(t, req.ID, offers.offered[0].ID)

	// A later catalog edit is a new change.
	dbtest.Touch(t, store.DB(), "regulatory_approvals", "approval_id", id, model.Now().Add(time.Second))
	n, err = sc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApprovalScannerIgnoresOldChanges(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)
	dbtest.Approval(t, store.DB(), model.Approval{
		VendorID: 3, ApprovalType: "GMP", RegulatoryBody: "FDA",
		UpdatedAt: model.Now().Add(-45 * 24 * time.Hour),
	})

	sc := NewApprovalScanner(store, stubNamer{}, nil, quietLogger())
	n, err := sc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConflictScanner(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)
	dbtest.Conflict(t, store.DB(), model.Conflict{
		EntityType: model.EntityVendor, EntityID: 3, FieldName: "country",
		Source1: "dnb", Value1: "India", Source2: "website", Value2: "Singapore",
	})
	dbtest.Conflict(t, store.DB(), model.Conflict{
		EntityType: "site", EntityID: 9, FieldName: "capacity",
		Source1: "audit", Value1: "10t", Source2: "erp", Value2: "12t",
	})

	sc := NewConflictScanner(store, stubNamer{vendors: map[int64]string{3: "Globex"}}, nil, quietLogger())
	n, err := sc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = sc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	reqs, err := store.ListRequests(ctx, model.RequestFilter{Kind: model.KindDataConflict})
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	var messages []string
	for _, r := range reqs {
		messages = append(messages, r.Message)
		assert.Equal(t, []string{model.RoleAdmin, model.RoleDataManager}, r.Recipients.Roles)
	}
	assert.ElementsMatch(t, []string{
		"Data conflict detected for vendor 'Globex' in field 'country'. Values: 'India' (from dnb) vs 'Singapore' (from website).",
		"Data conflict detected for site 'site 9' in field 'capacity'. Values: '10t' (from audit) vs '12t' (from erp).",
	}, messages)
}

// Approval #42 for vendor "Acme" becomes active; the sweep enqueues one
// request for admins and compliance managers and both admins get an
// in-app notification.
func TestApprovalToInboxScenario(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New(t)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/vendors/1" {
			_, _ = io.WriteString(w, `{"company_name": "Acme"}`)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(api.Close)

	admin1 := dbtest.User(t, store, "admin1", model.RoleAdmin)
	admin2 := dbtest.User(t, store, "admin2", model.RoleAdmin)

	t0 := model.Now()
	dbtest.Approval(t, store.DB(), model.Approval{
		ID: 42, VendorID: 1, ApprovalType: "GMP", RegulatoryBody: "FDA", Status: "active", UpdatedAt: t0,
	})

	d := NewDispatcher(store, delivery.NewInApp(store), nil, testWorkerConfig(), quietLogger())
	names := catalog.NewClient(api.URL+"/api", time.Second, quietLogger())
	sc := NewApprovalScanner(store, names, d, quietLogger())

	n, err := sc.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	reqs, err := store.ListRequests(ctx, model.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.PriorityMedium, reqs[0].Priority)
	assert.ElementsMatch(t, []string{model.RoleAdmin, model.RoleComplianceManager}, reqs[0].Recipients.Roles)

	ok, err := d.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	want := "Regulatory approval update: GMP from FDA for Acme (N/A). Status: active."
	for _, u := range []model.User{admin1, admin2} {
		list, err := store.ListNotifications(ctx, model.NotificationFilter{UserID: u.ID})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, want, list[0].Message)
		assert.Equal(t, model.KindRegulatoryApproval, list[0].Kind)
	}

	req, err := store.GetRequest(ctx, reqs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, req.Status)
}
