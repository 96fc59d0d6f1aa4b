package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backoffice-console/internal/listmanager"
	"github.com/noah-isme/backoffice-console/internal/models"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
)

func mountedScreen[T models.Record](t *testing.T, def Definition[T]) *ScreenController[T] {
	t.Helper()
	s := NewScreenController(def, ScreenOptions{})
	require.NoError(t, s.Mount(context.Background()))
	t.Cleanup(s.Unmount)
	return s
}

func TestCreateIsValidatedLocally(t *testing.T) {
	backend := newMarketplace()
	s := mountedScreen(t, ProductsDefinition(backend.client(t)))

	_, err := s.Create(context.Background(), []byte(`{"name":"","price":0}`))
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, "is required", appErr.Fields["name"])
	assert.Equal(t, "is required", appErr.Fields["category"])
	assert.Contains(t, appErr.Fields, "price")
	assert.Equal(t, 0, backend.called("POST /products"))
	assert.Equal(t, listmanager.StatusSubmitError, s.State().Status)
}

func TestCreatePrependsOnFirstPage(t *testing.T) {
	backend := newMarketplace()
	s := mountedScreen(t, ProductsDefinition(backend.client(t)))

	rec, err := s.Create(context.Background(), []byte(`{"name":"Lamp","category":"home","price":12.5}`))
	require.NoError(t, err)
	assert.Equal(t, "p-new", rec.(models.Product).ID)

	state := s.State()
	assert.Equal(t, "p-new", state.Items[0].(models.Product).ID)
	assert.Equal(t, 26, state.Pagination.TotalCount)
	assert.Equal(t, 1, backend.called("GET /products"))
}

func TestDeleteAndStatusPatchInPlace(t *testing.T) {
	backend := newMarketplace()
	s := mountedScreen(t, ProductsDefinition(backend.client(t)))

	require.NoError(t, s.Delete(context.Background(), "p1"))
	state := s.State()
	assert.Len(t, state.Items, 9)
	assert.Equal(t, 24, state.Pagination.TotalCount)

	_, err := s.SetStatus(context.Background(), "p2", []byte(`{"status":"inactive"}`))
	require.NoError(t, err)
	for _, it := range s.Items() {
		if it.ID == "p2" {
			assert.Equal(t, models.StatusInactive, it.Status)
		} else {
			assert.Equal(t, models.StatusActive, it.Status)
		}
	}

	_, err = s.SetStatus(context.Background(), "p2", []byte(`{"status":"archived"}`))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, 1, backend.called("GET /products"))
}

func TestAuditLogsAreReadOnly(t *testing.T) {
	backend := newMarketplace()
	s := mountedScreen(t, AuditLogsDefinition(backend.client(t)))

	assert.True(t, s.State().ReadOnly)
	_, err := s.Create(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.ErrorIs(t, s.Delete(context.Background(), "a1"), appErrors.ErrForbidden)

	assert.ErrorIs(t, s.SetFilters(map[string]string{"colour": "red"}), appErrors.ErrValidation)
	require.NoError(t, s.SetFilters(map[string]string{"severity": models.SeverityCritical, "from": "2024-01-01"}))
	assert.Equal(t, models.SeverityCritical, s.State().Query.Filters["severity"])
}

func TestWithdrawalTransitionsAreGuarded(t *testing.T) {
	backend := newMarketplace()
	s := mountedScreen(t, WithdrawalsDefinition(backend.client(t)))
	assert.Equal(t, models.WithdrawalPending, s.State().Query.Filters["status"])

	_, err := s.SetStatus(context.Background(), "w1", []byte(`{"status":"paid"}`))
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, 0, backend.called("PATCH /withdrawals/w1/status"))

	rec, err := s.SetStatus(context.Background(), "w1", []byte(`{"status":"approved","note":"ok"}`))
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalApproved, rec.(models.Withdrawal).Status)

	_, err = s.Update(context.Background(), "w2", []byte(`{"method":"bank","account_details":"123"}`))
	require.NoError(t, err)
	assert.Equal(t, "bank", s.Items()[1].Method)
}

func TestDatasetUsesVisibleRows(t *testing.T) {
	backend := newMarketplace()
	s := mountedScreen(t, ProductsDefinition(backend.client(t)))
	require.NoError(t, s.SetPage(3))

	ds := s.Dataset()
	assert.Equal(t, "Products", ds.Title)
	require.Len(t, ds.Rows, 5)
	assert.Equal(t, "p20", ds.Rows[0]["id"])
}
