package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/backoffice-console/internal/models"
)

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	api := r.Group("/api", Session(staticSession{&models.Session{UserID: "s1", Role: models.RoleSuperAdmin}}), Audit(zap.New(core)))
	api.DELETE("/screens/:screen/records/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	api.PUT("/screens/:screen/records/:id", func(c *gin.Context) { c.Status(http.StatusConflict) })
	api.GET("/screens/:screen", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodDelete, "/api/screens/products/records/abc123", nil),
		httptest.NewRequest(http.MethodPut, "/api/screens/products/records/abc123", nil),
		httptest.NewRequest(http.MethodGet, "/api/screens/products", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	entries := logs.FilterMessage("operator_action").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "s1", fields["operator_id"])
	assert.Equal(t, "products", fields["screen"])
	assert.Equal(t, "abc123", fields["record_id"])
	assert.Equal(t, "/api/screens/:screen/records/:id", fields["route"])
}
