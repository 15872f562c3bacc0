// Binary seed-db loads a catalog fixture into the database: categories,
// products with stock, shipment rates, users, and a handful of demo coupons.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/marketplace-core/internal/repository"
)

type catalogJSON struct {
	Categories []string       `json:"categories"`
	Products   []productJSON  `json:"products"`
	Shipments  []shipmentJSON `json:"shipments"`
	Users      []string       `json:"users"`
}

type productJSON struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"`
}

type shipmentJSON struct {
	Province string          `json:"province"`
	Cost     decimal.Decimal `json:"cost"`
}

const (
	upsertCategorySQL = `INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING`

	upsertProductSQL = `INSERT INTO products (name, price, stock_quantity, category_id)
		SELECT $1, $2, $3, c.id FROM categories c WHERE c.name = $4
		ON CONFLICT (name) DO UPDATE SET
			price = EXCLUDED.price,
			stock_quantity = EXCLUDED.stock_quantity,
			category_id = EXCLUDED.category_id,
			updated_at = now()`

	upsertShipmentSQL = `INSERT INTO shipments (province, cost) VALUES ($1, $2)
		ON CONFLICT (province) DO UPDATE SET cost = EXCLUDED.cost`

	upsertUserSQL = `INSERT INTO users (email) VALUES ($1)
		ON CONFLICT (email) DO NOTHING`

	upsertCouponSQL = `INSERT INTO coupons
		(code, discount_percent, min_order_amount, max_uses, start_at, end_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			discount_percent = EXCLUDED.discount_percent,
			min_order_amount = EXCLUDED.min_order_amount,
			max_uses = EXCLUDED.max_uses,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at,
			is_active = TRUE,
			updated_at = now()`
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	catalog, err := readCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}

	if err := seedCatalog(ctx, pool, catalog); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

func readCatalog(path string) (*catalogJSON, error) {
	slog.Info("reading catalog file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, errors.Wrap(err, "parse JSON")
	}
	return &catalog, nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, catalog *catalogJSON) error {
	for _, name := range catalog.Categories {
		if _, err := pool.Exec(ctx, upsertCategorySQL, name); err != nil {
			return errors.Wrapf(err, "upsert category %s", name)
		}
	}
	slog.Info("seeded categories", slog.Int("count", len(catalog.Categories)))

	for _, p := range catalog.Products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.Name, p.Price, p.Stock, p.Category); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.Name)
		}
	}
	slog.Info("seeded products", slog.Int("count", len(catalog.Products)))

	for _, s := range catalog.Shipments {
		if _, err := pool.Exec(ctx, upsertShipmentSQL, s.Province, s.Cost); err != nil {
			return errors.Wrapf(err, "upsert shipment %s", s.Province)
		}
	}
	slog.Info("seeded shipments", slog.Int("count", len(catalog.Shipments)))

	for _, email := range catalog.Users {
		if _, err := pool.Exec(ctx, upsertUserSQL, email); err != nil {
			return errors.Wrapf(err, "upsert user %s", email)
		}
	}
	slog.Info("seeded users", slog.Int("count", len(catalog.Users)))

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	now := time.Now().UTC()
	coupons := []struct {
		code     string
		percent  int
		minOrder decimal.Decimal
		maxUses  int
		window   time.Duration
	}{
		{code: "WELCOME10", percent: 10, minOrder: decimal.Zero, maxUses: 10000, window: 365 * 24 * time.Hour},
		{code: "HAPPYHOURS", percent: 18, minOrder: decimal.NewFromInt(20), maxUses: 500, window: 30 * 24 * time.Hour},
		{code: "BIGSPENDER", percent: 25, minOrder: decimal.NewFromInt(200), maxUses: 100, window: 90 * 24 * time.Hour},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.code, c.percent, c.minOrder, c.maxUses, now, now.Add(c.window),
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
		slog.Info("upserted coupon", slog.String("code", c.code), slog.Int("percent", c.percent))
	}

	return nil
}
