package service

import (
	"context"
	"fmt"
	"time"

	"event-booking-engine/internal/clock"
	"event-booking-engine/internal/model"
	"event-booking-engine/internal/payment"
	"event-booking-engine/internal/queue"
	"event-booking-engine/internal/repository"
	apperrors "event-booking-engine/pkg/app_errors"
	"event-booking-engine/pkg/logger"

	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

type BookingService interface {
	// 預留票券並建立 PENDING 訂單，任何一個票種失敗時全部歸還
	ReserveBooking(ctx context.Context, req model.ReserveBookingRequest) (*model.Booking, error)
	// 付款：PENDING → CONFIRMED | FAILED
	SettlePayment(ctx context.Context, bookingID string, method model.PaymentMethod) (*model.Booking, error)
	// 取消：CONFIRMED → CANCELLED，有完成的付款時再退款 → REFUNDED
	CancelBooking(ctx context.Context, bookingID string) (*model.Booking, error)
	// 入場核銷單張票券，只限 CONFIRMED 訂單
	UseTicket(ctx context.Context, bookingID, ticketID string) (*model.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*model.Booking, error)
	ListUserBookings(ctx context.Context, userID string) ([]*model.Booking, error)
	ListUserBookingsByStatus(ctx context.Context, userID string, status model.BookingStatus) ([]*model.Booking, error)
	ListEventBookings(ctx context.Context, eventID string) ([]*model.Booking, error)
}

type BookingServiceImpl struct {
	bookings repository.BookingRepository
	events   repository.EventRepository
	users    repository.UserRepository
	gateway  payment.Gateway
	policy   CancellationPolicy
	// eventQueue 可為 nil，此時不發布生命週期事件
	eventQueue queue.BookingEventQueue
	clock      clock.Clock
	locks      *bookingLocks
	log        *zap.Logger
}

func NewBookingService(
	bookingRepository repository.BookingRepository,
	eventRepository repository.EventRepository,
	userRepository repository.UserRepository,
	gateway payment.Gateway,
	policy CancellationPolicy,
	eventQueue queue.BookingEventQueue,
	clk clock.Clock,
) BookingService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if policy == nil {
		policy = NewCancellationPolicy(DefaultCancellationCutoff)
	}
	return &BookingServiceImpl{
		bookings:   bookingRepository,
		events:     eventRepository,
		users:      userRepository,
		gateway:    gateway,
		policy:     policy,
		eventQueue: eventQueue,
		clock:      clk,
		locks:      newBookingLocks(),
		log:        logger.WithComponent("service"),
	}
}

// reservation 已扣除的票種與數量，失敗時依序歸還
type reservation struct {
	ticketType *model.TicketType
	quantity   int
}

func (s *BookingServiceImpl) ReserveBooking(ctx context.Context, req model.ReserveBookingRequest) (*model.Booking, error) {
	for _, r := range req.Tickets {
		if r.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %w: %d for ticket type %s",
				apperrors.ErrInvalidInput, apperrors.ErrInvalidQuantity, r.Quantity, r.TicketTypeID)
		}
	}
	if err := model.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		return nil, err
	}
	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !event.IsBookable(now) {
		return nil, fmt.Errorf("%w: event %s is %s", apperrors.ErrEventNotBookable, event.ID, event.Status())
	}

	booking := model.NewBooking(req.UserID, event.ID, now)
	reserved := make([]reservation, 0, len(req.Tickets))

	for _, r := range req.Tickets {
		tt, ok := event.TicketType(r.TicketTypeID)
		if !ok {
			s.rollback(booking.ID, reserved)
			return nil, apperrors.UnknownTicketType(event.ID, r.TicketTypeID)
		}

		labels, ok := tt.ReserveSeats(r.Quantity)
		if !ok {
			s.rollback(booking.ID, reserved)
			return nil, &apperrors.InsufficientTicketsError{
				TicketTypeID: tt.ID,
				TicketType:   tt.Name,
				Requested:    r.Quantity,
				Available:    tt.AvailableQuantity(),
			}
		}
		reserved = append(reserved, reservation{ticketType: tt, quantity: r.Quantity})

		for _, label := range labels {
			booking.AddTicket(model.NewTicket(tt, label, now))
		}
	}

	if err := s.bookings.Save(ctx, booking); err != nil {
		s.rollback(booking.ID, reserved)
		s.log.Error("save booking failed", zap.String("booking_id", booking.ID), zap.Error(err))
		return nil, fmt.Errorf("save booking %s: %w", booking.ID, err)
	}

	s.log.Info("booking reserved",
		zap.String("booking_id", booking.ID),
		zap.String("event_id", booking.EventID),
		zap.Int("tickets", len(booking.Tickets)),
		zap.Float64("total_amount", booking.TotalAmount),
	)
	s.publish(ctx, model.BookingEventReserved, booking)
	return booking, nil
}

// rollback 依請求順序歸還本次已扣除的數量
func (s *BookingServiceImpl) rollback(bookingID string, reserved []reservation) {
	for _, r := range reserved {
		r.ticketType.Release(r.quantity)
	}
	if len(reserved) > 0 {
		s.log.Warn("reservation rolled back",
			zap.String("booking_id", bookingID),
			zap.Int("ticket_types", len(reserved)),
		)
	}
}

func (s *BookingServiceImpl) SettlePayment(ctx context.Context, bookingID string, method model.PaymentMethod) (*model.Booking, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: unsupported payment method %q", apperrors.ErrInvalidInput, method)
	}

	unlock := s.locks.lock(bookingID)
	defer unlock()

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusPending {
		return nil, &apperrors.InvalidBookingStateError{
			BookingID: booking.ID,
			From:      string(booking.Status),
			To:        string(model.BookingStatusConfirmed),
		}
	}

	p := model.NewPayment(booking.ID, booking.TotalAmount, method, s.clock.Now())
	result, err := s.gateway.Charge(ctx, p.Amount, method)
	if err != nil {
		s.log.Error("charge failed", zap.String("booking_id", booking.ID), zap.Error(err))
		result = payment.ChargeResult{Success: false}
	}

	now := s.clock.Now()
	booking.Payment = p
	if result.Success {
		p.Complete(result.TransactionRef, now)
		if err := booking.Confirm(now); err != nil {
			return nil, err
		}
		if err := s.bookings.Update(ctx, booking); err != nil {
			s.log.Error("update booking failed", zap.String("booking_id", booking.ID), zap.Error(err))
			return nil, fmt.Errorf("update booking %s: %w", booking.ID, err)
		}

		s.log.Info("booking confirmed",
			zap.String("booking_id", booking.ID),
			zap.String("event_id", booking.EventID),
			zap.String("transaction_ref", p.TransactionRef),
		)
		s.publish(ctx, model.BookingEventConfirmed, booking)
		return booking, nil
	}

	p.Fail()
	if err := booking.Fail(now); err != nil {
		return nil, err
	}
	released := booking.ReleasableByType()
	booking.CancelTickets()

	// 先落盤再歸還庫存，寫入失敗時 booking 仍持有座位
	if err := s.bookings.Update(ctx, booking); err != nil {
		s.log.Error("update booking failed", zap.String("booking_id", booking.ID), zap.Error(err))
		return nil, fmt.Errorf("update booking %s: %w", booking.ID, err)
	}
	s.release(ctx, booking, released)

	s.log.Info("booking failed",
		zap.String("booking_id", booking.ID),
		zap.String("event_id", booking.EventID),
	)
	s.publish(ctx, model.BookingEventFailed, booking)
	return nil, fmt.Errorf("booking %s: %w", booking.ID, apperrors.ErrPaymentDeclined)
}

func (s *BookingServiceImpl) CancelBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	unlock := s.locks.lock(bookingID)
	defer unlock()

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	event, err := s.events.FindByID(ctx, booking.EventID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.policy.Check(booking, event.EventDate, now); err != nil {
		return nil, err
	}

	released := booking.ReleasableByType()
	if err := booking.Cancel(now); err != nil {
		return nil, err
	}
	if err := s.bookings.Update(ctx, booking); err != nil {
		s.log.Error("update booking failed", zap.String("booking_id", booking.ID), zap.Error(err))
		return nil, fmt.Errorf("update booking %s: %w", booking.ID, err)
	}
	s.release(ctx, booking, released)

	s.log.Info("booking cancelled",
		zap.String("booking_id", booking.ID),
		zap.String("event_id", booking.EventID),
	)
	s.publish(ctx, model.BookingEventCancelled, booking)

	if booking.Payment == nil || booking.Payment.Status != model.PaymentStatusCompleted {
		return booking, nil
	}
	if err := s.refund(ctx, booking); err != nil {
		return nil, err
	}
	if err := s.bookings.Update(ctx, booking); err != nil {
		s.log.Error("update refunded booking failed",
			zap.String("booking_id", booking.ID),
			zap.String("payment_id", booking.Payment.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("update booking %s: %w", booking.ID, err)
	}
	s.log.Info("booking refunded", zap.String("booking_id", booking.ID))
	s.publish(ctx, model.BookingEventRefunded, booking)
	return booking, nil
}

func (s *BookingServiceImpl) UseTicket(ctx context.Context, bookingID, ticketID string) (*model.Booking, error) {
	unlock := s.locks.lock(bookingID)
	defer unlock()

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := booking.UseTicket(ticketID, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.bookings.Update(ctx, booking); err != nil {
		s.log.Error("update booking failed", zap.String("booking_id", booking.ID), zap.Error(err))
		return nil, fmt.Errorf("update booking %s: %w", booking.ID, err)
	}

	s.log.Info("ticket used",
		zap.String("booking_id", booking.ID),
		zap.String("ticket_id", ticketID),
	)
	return booking, nil
}

// refund 退款失敗時 booking 維持 CANCELLED，已歸還的庫存不回滾
func (s *BookingServiceImpl) refund(ctx context.Context, booking *model.Booking) error {
	result, err := s.gateway.Refund(ctx, booking.Payment.ID)
	if err != nil || !result.Success {
		s.log.Error("refund failed",
			zap.String("booking_id", booking.ID),
			zap.String("payment_id", booking.Payment.ID),
			zap.Error(err),
		)
		if err != nil {
			return fmt.Errorf("booking %s: %w: %w", booking.ID, apperrors.ErrRefundFailed, err)
		}
		return fmt.Errorf("booking %s: %w", booking.ID, apperrors.ErrRefundFailed)
	}

	booking.Payment.Refund()
	return booking.Refund(s.clock.Now())
}

// release 把未使用的票數歸還給各票種
func (s *BookingServiceImpl) release(ctx context.Context, booking *model.Booking, released []model.TicketRequest) {
	if len(released) == 0 {
		return
	}
	event, err := s.events.FindByID(ctx, booking.EventID)
	if err != nil {
		s.log.Error("release skipped, event missing", zap.String("booking_id", booking.ID), zap.Error(err))
		return
	}
	for _, r := range released {
		tt, ok := event.TicketType(r.TicketTypeID)
		if !ok {
			s.log.Error("release skipped, ticket type missing",
				zap.String("booking_id", booking.ID),
				zap.String("ticket_type_id", r.TicketTypeID),
			)
			continue
		}
		tt.Release(r.Quantity)
	}
	s.log.Info("capacity released", zap.String("booking_id", booking.ID), zap.Int("ticket_types", len(released)))
}

// publish 發布失敗只記錄，不影響已完成的狀態轉換
func (s *BookingServiceImpl) publish(ctx context.Context, t model.BookingEventType, booking *model.Booking) {
	if s.eventQueue == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	evt := model.NewBookingEvent(t, booking, s.clock.Now())
	if err := s.eventQueue.PublishBookingEvent(pctx, evt); err != nil {
		s.log.Warn("publish booking event failed",
			zap.String("booking_id", booking.ID),
			zap.String("type", string(t)),
			zap.Error(err),
		)
	}
}

func (s *BookingServiceImpl) GetBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	return s.bookings.FindByID(ctx, bookingID)
}

func (s *BookingServiceImpl) ListUserBookings(ctx context.Context, userID string) ([]*model.Booking, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.bookings.FindByUserID(ctx, userID)
}

func (s *BookingServiceImpl) ListUserBookingsByStatus(ctx context.Context, userID string, status model.BookingStatus) ([]*model.Booking, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown booking status %q", apperrors.ErrInvalidInput, status)
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.bookings.FindByUserIDAndStatus(ctx, userID, status)
}

func (s *BookingServiceImpl) ListEventBookings(ctx context.Context, eventID string) ([]*model.Booking, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.bookings.FindByEventID(ctx, eventID)
}
