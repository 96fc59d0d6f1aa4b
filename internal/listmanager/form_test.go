package listmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
)

type productDraft struct {
	Name   string  `json:"name" validate:"required"`
	Price  float64 `json:"price" validate:"gt=0"`
	Status string  `json:"status" validate:"oneof=active inactive"`
}

func TestValidateDraftReportsJSONFields(t *testing.T) {
	err := ValidateDraft(NewValidator(), productDraft{Status: "archived"})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "is required", appErr.Fields["name"])
	assert.Equal(t, "must be greater than 0", appErr.Fields["price"])
	assert.Equal(t, "must be one of: active inactive", appErr.Fields["status"])
}

func TestValidateDraftAcceptsValidInput(t *testing.T) {
	assert.NoError(t, ValidateDraft(NewValidator(), productDraft{Name: "Widget", Price: 9.5, Status: "active"}))
}
