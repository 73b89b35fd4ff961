// Package main provides a CLI tool for seeding a tenant database with
// initial data: the admin user, the tenant registry row and optional
// demo locations with stock.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"almox/internal/core/id"
	"almox/internal/core/tenant"
	"almox/internal/core/types"
	"almox/internal/infrastructure/storage/postgres"
	"almox/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to tenant database")

	adminUserID, err := seedAdminUser(ctx, pool, log)
	if err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if err := seedTenantRegistry(ctx, dbURL, log); err != nil {
		log.Warnw("failed to seed tenant registry", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log, adminUserID); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) (id.ID, error) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@almox.io"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1 AND is_active`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return existingID, nil
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return id.Nil(), fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return id.Nil(), fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()

	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, name, roles, is_active)
		VALUES ($1, $2, $3, 'System Admin', '{admin}', true)
	`, userID, adminEmail, string(passwordHash))
	if err != nil {
		return id.Nil(), fmt.Errorf("insert admin user: %w", err)
	}

	log.Infow("admin user created",
		"email", adminEmail,
		"user_id", userID,
	)

	return userID, nil
}

func seedTenantRegistry(ctx context.Context, dbURL string, log *logger.Logger) error {
	metaDSN := os.Getenv("META_DATABASE_URL")
	if metaDSN == "" {
		log.Warn("META_DATABASE_URL is not set; skipping tenant registry seed")
		return nil
	}

	metaPool, err := pgxpool.New(ctx, metaDSN)
	if err != nil {
		return fmt.Errorf("connect meta database: %w", err)
	}
	defer metaPool.Close()

	if err := metaPool.Ping(ctx); err != nil {
		return fmt.Errorf("ping meta database: %w", err)
	}

	tenantSlug := os.Getenv("TENANT_SLUG")
	if tenantSlug == "" {
		tenantSlug = "demo"
	}

	tenantName := os.Getenv("TENANT_NAME")
	if tenantName == "" {
		tenantName = "Demo Tenant"
	}

	dbConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return fmt.Errorf("parse tenant database url: %w", err)
	}

	dbHost := dbConfig.ConnConfig.Host
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := int(dbConfig.ConnConfig.Port)
	if dbPort == 0 {
		dbPort = 5432
	}

	dbName := dbConfig.ConnConfig.Database
	if dbName == "" {
		dbName = "almox"
	}

	var existingID string
	err = metaPool.QueryRow(ctx, `SELECT id FROM tenants WHERE slug = $1`, tenantSlug).Scan(&existingID)
	if err == nil {
		log.Infow("tenant already exists in registry", "slug", tenantSlug, "tenant_id", existingID)
		return nil
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check tenant exists: %w", err)
	}

	registry := tenant.NewPostgresRegistry(metaPool)
	newTenant := &tenant.Tenant{
		Slug:        tenantSlug,
		DisplayName: tenantName,
		DBName:      dbName,
		DBHost:      dbHost,
		DBPort:      dbPort,
		Status:      tenant.StatusActive,
	}

	if err := registry.Create(ctx, newTenant); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}

	log.Infow("tenant seeded in registry", "slug", tenantSlug, "tenant_id", newTenant.ID)
	return nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger, adminUserID id.ID) error {
	log.Info("seeding demo data...")

	// 1. Locations
	locations := []struct {
		code    string
		name    string
		lType   string
		address string
	}{
		{"ALM-001", "Almoxarifado Central", "warehouse", "Av. Industrial, 100"},
		{"PAT-001", "Pátio de Materiais", "yard", "Av. Industrial, 100 - Fundos"},
		{"OBR-001", "Obra Residencial Norte", "site", "Rua das Obras, 55"},
		{"TRA-001", "Em Trânsito", "transit", ""},
	}

	locationIDs := make(map[string]id.ID)
	for _, l := range locations {
		locID := id.New()
		var address any
		if l.address != "" {
			address = l.address
		}
		tag, err := pool.Pool.Exec(ctx, `
			INSERT INTO locations (id, code, name, type, address, is_active, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, 1, now(), now())
			ON CONFLICT (code) DO NOTHING
		`, locID, l.code, l.name, l.lType, address)
		if err != nil {
			log.Warnw("failed to seed location", "code", l.code, "error", err)
			continue
		}
		if tag.RowsAffected() == 0 {
			if err := pool.Pool.QueryRow(ctx,
				`SELECT id FROM locations WHERE code = $1`, l.code,
			).Scan(&locID); err != nil {
				log.Warnw("failed to fetch existing location", "code", l.code, "error", err)
				continue
			}
		}
		locationIDs[l.code] = locID
	}

	// 2. Opening balances at the central warehouse
	warehouseID, ok := locationIDs["ALM-001"]
	if !ok {
		log.Warn("central warehouse missing; skipping stock seed")
		return nil
	}

	products := []struct {
		quantity float64
		cost     string
	}{
		{500, "12.50"},
		{120, "89.90"},
		{40, "450.00"},
	}

	now := time.Now()
	for _, p := range products {
		productID := id.New()
		stockID := id.New()
		qty := types.NewQuantityFromFloat64(p.quantity)

		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO stocks (id, location_id, product_id,
				quantity_available, quantity_reserved, quantity_total,
				last_movement_at, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 0, $4, $5, 1, $5, $5)
			ON CONFLICT (location_id, product_id) DO NOTHING
		`, stockID, warehouseID, productID, qty, now)
		if err != nil {
			log.Warnw("failed to seed stock", "error", err)
			continue
		}

		_, err = pool.Pool.Exec(ctx, `
			INSERT INTO stock_movements (id, stock_id, movement_type, quantity,
				available_delta, reserved_delta, quantity_before, quantity_after,
				reference_type, cost, observation, user_id, movement_date, created_at)
			VALUES ($1, $2, 'entrada', $3, $3, 0, 0, $3,
				'ajuste_manual', $4, 'Carga inicial', $5, $6, $6)
		`, id.New(), stockID, qty, p.cost, adminUserID, now)
		if err != nil {
			log.Warnw("failed to seed opening movement", "error", err)
		}
	}

	log.Info("demo data seeded successfully")
	return nil
}
