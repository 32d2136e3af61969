package repository

import (
	"context"
	"errors"
	"fmt"

	"event-booking-engine/internal/model"
	apperrors "event-booking-engine/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &PostgresBookingRepository{
		pool: pool,
	}
}

func (r *PostgresBookingRepository) Save(ctx context.Context, booking *model.Booking) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO bookings (id, user_id, event_id, total_amount, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.Exec(ctx, query,
			booking.ID, booking.UserID, booking.EventID, booking.TotalAmount,
			booking.Status, booking.CreatedAt, booking.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		batch := &pgx.Batch{}
		for i, t := range booking.Tickets {
			batch.Queue(`
				INSERT INTO booking_tickets (
					id, booking_id, position, ticket_type_id, tier, seat_label, price_paid, status, issued_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, t.ID, booking.ID, i, t.TicketTypeID, t.Tier, t.SeatLabel, t.PricePaid, t.Status, t.IssuedAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to create booking tickets: %w", err)
		}

		if booking.Payment != nil {
			if err := upsertPayment(ctx, tx, booking.Payment); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE bookings
			SET total_amount = $1, status = $2, updated_at = $3
			WHERE id = $4
		`
		result, err := tx.Exec(ctx, query, booking.TotalAmount, booking.Status, booking.UpdatedAt, booking.ID)
		if err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		if result.RowsAffected() == 0 {
			return apperrors.ErrBookingNotFound
		}

		batch := &pgx.Batch{}
		for _, t := range booking.Tickets {
			batch.Queue(`UPDATE booking_tickets SET status = $1 WHERE id = $2`, t.Status, t.ID)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to update booking tickets: %w", err)
		}

		if booking.Payment != nil {
			if err := upsertPayment(ctx, tx, booking.Payment); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertPayment(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, amount, method, status, transaction_ref, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (booking_id) DO UPDATE
		SET status = EXCLUDED.status,
		    transaction_ref = EXCLUDED.transaction_ref,
		    completed_at = EXCLUDED.completed_at
	`
	if _, err := tx.Exec(ctx, query,
		p.ID, p.BookingID, p.Amount, p.Method, p.Status, p.TransactionRef, p.CreatedAt, p.CompletedAt,
	); err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

const selectBookings = `
	SELECT id, user_id, event_id, total_amount, status, created_at, updated_at
	FROM bookings
`

func (r *PostgresBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	err := r.pool.QueryRow(ctx, selectBookings+` WHERE id = $1`, id).Scan(
		&b.ID,
		&b.UserID,
		&b.EventID,
		&b.TotalAmount,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, err
	}

	bookings := []*model.Booking{&b}
	if err := r.loadChildren(ctx, bookings); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresBookingRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Booking, error) {
	return r.list(ctx, selectBookings+` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

func (r *PostgresBookingRepository) FindByUserIDAndStatus(ctx context.Context, userID string, status model.BookingStatus) ([]*model.Booking, error) {
	return r.list(ctx, selectBookings+` WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC, id DESC`, userID, string(status))
}

func (r *PostgresBookingRepository) FindByEventID(ctx context.Context, eventID string) ([]*model.Booking, error) {
	return r.list(ctx, selectBookings+` WHERE event_id = $1 ORDER BY created_at DESC, id DESC`, eventID)
}

func (r *PostgresBookingRepository) list(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(
			&b.ID,
			&b.UserID,
			&b.EventID,
			&b.TotalAmount,
			&b.Status,
			&b.CreatedAt,
			&b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadChildren(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// loadChildren 一次查出所有 booking 的票券與付款
func (r *PostgresBookingRepository) loadChildren(ctx context.Context, bookings []*model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	byID := make(map[string]*model.Booking, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT booking_id, id, ticket_type_id, tier, seat_label, price_paid, status, issued_at
		FROM booking_tickets
		WHERE booking_id = ANY($1)
		ORDER BY booking_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load booking tickets: %w", err)
	}
	for rows.Next() {
		var (
			bookingID string
			t         model.Ticket
		)
		if err := rows.Scan(
			&bookingID,
			&t.ID,
			&t.TicketTypeID,
			&t.Tier,
			&t.SeatLabel,
			&t.PricePaid,
			&t.Status,
			&t.IssuedAt,
		); err != nil {
			rows.Close()
			return err
		}
		b := byID[bookingID]
		b.Tickets = append(b.Tickets, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, booking_id, amount, method, status, transaction_ref, created_at, completed_at
		FROM payments
		WHERE booking_id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(
			&p.ID,
			&p.BookingID,
			&p.Amount,
			&p.Method,
			&p.Status,
			&p.TransactionRef,
			&p.CreatedAt,
			&p.CompletedAt,
		); err != nil {
			return err
		}
		byID[p.BookingID].Payment = &p
	}
	return rows.Err()
}
