package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/plagued/storefront/internal/checkout"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is one unpublished row of the transactional outbox.
type OutboxEvent struct {
	ID          int
	AggregateId string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error
	RecordCompletedOrder(ctx context.Context, order checkout.CompletedOrder) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	// open database
	db, err := sql.Open("postgres", psqlconn)

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// check db
	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	fmt.Println("Connected to postgres!")
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// RecordCompletedOrder writes the order row and its OrderCompleted outbox
// event in a single transaction, so an order is never journaled without an
// event and vice versa.
func (r *Repository) RecordCompletedOrder(ctx context.Context, order checkout.CompletedOrder) error {
	items, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"checkout_id":     order.CheckoutID,
		"email":           order.Email,
		"customer_name":   order.Name,
		"items":           order.Lines,
		"subtotal":        order.Snapshot.Subtotal,
		"discount_amount": order.Snapshot.DiscountAmount,
		"shipping_cost":   order.Snapshot.ShippingCost,
		"total_amount":    order.Snapshot.Total,
		"currency":        "gbp",
		"completed_at":    order.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderQuery := `INSERT INTO orders (id, email, customer_name, items, subtotal, discount_amount, shipping_cost, total_amount, completed_at)
	               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.ExecContext(ctx, orderQuery,
		order.CheckoutID,
		order.Email,
		order.Name,
		items,
		order.Snapshot.Subtotal,
		order.Snapshot.DiscountAmount,
		order.Snapshot.ShippingCost,
		order.Snapshot.Total,
		order.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	eventQuery := `INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at)
	               VALUES ($1, $2, $3, NOW())`
	_, err = tx.ExecContext(ctx, eventQuery, order.CheckoutID, "OrderCompleted", payload)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	if e2 := tx.Commit(); e2 != nil {
		return fmt.Errorf("failed to commit transaction: %w", e2)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events
	          WHERE processed_at IS NULL
	          ORDER BY id
	          LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if e2 := rows.Scan(&ev.ID, &ev.AggregateId, &ev.EventType, &ev.Payload, &ev.CreatedAt); e2 != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", e2)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	query := `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark event %d as processed: %w", id, err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
