package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"almox/internal/core/apperror"
	"almox/internal/core/tenant"
	"almox/internal/infrastructure/storage/postgres"
)

const HeaderTenantID = "X-Tenant-ID"

// TenantDB resolves the tenant's database pool and injects pool,
// TxManager and tenant info into the request context. The ref count
// keeps the pool alive for the duration of the request even if the
// idle evictor fires.
func TenantDB(manager *tenant.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(HeaderTenantID)
		if tenantID == "" {
			abortWithError(c, apperror.NewValidation("Missing X-Tenant-ID header"))
			return
		}

		if _, err := uuid.Parse(tenantID); err != nil {
			abortWithError(c, apperror.NewValidation("Invalid tenant ID format"))
			return
		}

		mp, err := manager.GetPool(c.Request.Context(), tenantID)
		if err != nil {
			abortWithError(c, mapTenantError(tenantID, err))
			return
		}

		mp.AcquireRef()
		defer mp.ReleaseRef()

		txManager := postgres.NewTxManagerFromRawPool(mp.Pool())

		ctx := tenant.WithPool(c.Request.Context(), mp.Pool())
		ctx = tenant.WithTxManager(ctx, txManager)
		ctx = tenant.WithTenant(ctx, mp.Tenant())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func mapTenantError(tenantID string, err error) error {
	switch {
	case errors.Is(err, tenant.ErrTenantNotFound):
		return apperror.NewNotFound("tenant", tenantID)
	case errors.Is(err, tenant.ErrTenantNotActive):
		return apperror.NewAccessDenied("Tenant is not active")
	case errors.Is(err, tenant.ErrMaxPoolLimit):
		return apperror.NewInternal(err)
	default:
		return apperror.NewInternal(err)
	}
}
