package handler_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"event-booking-engine/internal/cache"
	"event-booking-engine/internal/clock"
	"event-booking-engine/internal/handler"
	"event-booking-engine/internal/model"
	"event-booking-engine/internal/payment"
	paymentMocks "event-booking-engine/internal/payment/mocks"
	"event-booking-engine/internal/queue"
	"event-booking-engine/internal/repository"
	"event-booking-engine/internal/service"
	"event-booking-engine/internal/testutil"
	"event-booking-engine/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type flowBackends struct {
	bookings     repository.BookingRepository
	users        repository.UserRepository
	availability cache.AvailabilityCache
	events       queue.BookingEventQueue
}

func memoryBackends(t *testing.T) flowBackends {
	q := queue.NewMemoryBookingEventQueue(128)
	t.Cleanup(func() { _ = q.Close() })
	return flowBackends{
		bookings:     repository.NewMemoryBookingRepository(),
		users:        repository.NewMemoryUserRepository(),
		availability: cache.NewMemoryAvailabilityCache(),
		events:       q,
	}
}

func infraBackends(t *testing.T) flowBackends {
	pool := testutil.NewTestPool(t)
	testutil.TruncateAll(t, pool)
	rdb := testutil.NewTestRedis(t)
	require.NoError(t, rdb.FlushDB(context.Background()).Err())

	q, err := queue.NewRedisStreamBookingEventQueue(context.Background(), rdb, "flow-test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	return flowBackends{
		bookings:     repository.NewPostgresBookingRepository(pool),
		users:        repository.NewPostgresUserRepository(pool),
		availability: cache.NewRedisAvailabilityCache(rdb),
		events:       q,
	}
}

// setupFlowRouter HTTP → Handler → Service → Queue → Worker → Cache 全部用真實元件，只有金流是 mock
func setupFlowRouter(t *testing.T, b flowBackends, gateway payment.Gateway) *gin.Engine {
	t.Helper()
	clk := clock.NewManual(time.Now().UTC())
	eventRepo := repository.NewEventRepository()

	eventService := service.NewEventService(eventRepo, b.availability, clk)
	userService := service.NewUserService(b.users, clk)
	bookingService := service.NewBookingService(b.bookings, eventRepo, b.users, gateway,
		service.NewCancellationPolicy(service.DefaultCancellationCutoff), b.events, clk)

	ctx, cancel := context.WithCancel(context.Background())
	done, err := worker.NewAvailabilityWorker(eventService, b.events).Start(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		<-done
	})

	router := gin.New()
	handler.NewUserHandler(userService).RegisterRoutes(router)
	handler.NewEventHandler(eventService).RegisterRoutes(router)
	handler.NewBookingHandler(bookingService).RegisterRoutes(router)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, url string, body interface{}, want int, out interface{}) {
	t.Helper()
	w := serve(router, createJSONHTTPRequest("POST", url, body))
	require.Equal(t, want, w.Code, w.Body.String())
	if out != nil {
		require.NoError(t, decodeBody(w, out))
	}
}

func TestBookingFlow_EndToEnd(t *testing.T) {
	backends := map[string]func(*testing.T) flowBackends{
		"memory":         memoryBackends,
		"postgres+redis": infraBackends,
	}

	for name, newBackends := range backends {
		t.Run(name, func(t *testing.T) {
			gateway := &paymentMocks.GatewayMock{}
			router := setupFlowRouter(t, newBackends(t), gateway)

			var user model.User
			postJSON(t, router, "/api/v1/users", model.CreateUserRequest{
				Email: "flow@example.com", FirstName: "Flow", LastName: "Test",
			}, http.StatusCreated, &user)

			var event model.EventResponse
			postJSON(t, router, "/api/v1/events", model.CreateEventRequest{
				Name:      "Harbour Festival",
				Category:  model.CategoryFestival,
				Venue:     model.Venue{Name: "Pier 2"},
				EventDate: time.Now().UTC().Add(72 * time.Hour),
			}, http.StatusCreated, &event)

			var vip model.TicketTypeResponse
			postJSON(t, router, "/api/v1/events/"+event.ID+"/ticket-types", model.AddTicketTypeRequest{
				Name: "VIP", Tier: model.TierVIP, Price: 100, Quantity: 5,
			}, http.StatusCreated, &vip)

			// 兩個並發的 3 張請求只會有一個成功
			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				codes []int
				ids   []string
			)
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					w := serve(router, createJSONHTTPRequest("POST", "/api/v1/bookings", model.ReserveBookingRequest{
						UserID: user.ID, EventID: event.ID,
						Tickets: []model.TicketRequest{{TicketTypeID: vip.ID, Quantity: 3}},
					}))
					var b model.Booking
					_ = decodeBody(w, &b)
					mu.Lock()
					codes = append(codes, w.Code)
					if w.Code == http.StatusCreated {
						ids = append(ids, b.ID)
					}
					mu.Unlock()
				}()
			}
			wg.Wait()
			assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, codes)
			require.Len(t, ids, 1)
			bookingID := ids[0]

			gateway.On("Charge", mock.Anything, 300.0, model.PaymentMethodCreditCard).
				Return(payment.ChargeResult{Success: true, TransactionRef: "TXN-FLOW00000001"}, nil).Once()
			var confirmed model.Booking
			postJSON(t, router, "/api/v1/bookings/"+bookingID+"/payment",
				model.SettlePaymentRequest{Method: model.PaymentMethodCreditCard}, http.StatusOK, &confirmed)
			assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)

			// 已入場的票在取消時不會歸還
			var used model.Booking
			postJSON(t, router, "/api/v1/bookings/"+bookingID+"/tickets/"+confirmed.Tickets[0].ID+"/use", nil, http.StatusOK, &used)
			assert.Equal(t, model.TicketStatusUsed, used.Tickets[0].Status)
			postJSON(t, router, "/api/v1/bookings/"+bookingID+"/tickets/"+confirmed.Tickets[0].ID+"/use", nil, http.StatusConflict, nil)

			gateway.On("Refund", mock.Anything, confirmed.Payment.ID).
				Return(payment.RefundResult{Success: true}, nil).Once()
			var refunded model.Booking
			postJSON(t, router, "/api/v1/bookings/"+bookingID+"/cancel", nil, http.StatusOK, &refunded)
			assert.Equal(t, model.BookingStatusRefunded, refunded.Status)

			// worker 非同步刷新顯示用快取，最後應回到 4 張
			assert.Eventually(t, func() bool {
				w := serve(router, createJSONHTTPRequest("GET", "/api/v1/events/"+event.ID+"/availability", nil))
				var got model.EventAvailability
				if w.Code != http.StatusOK || decodeBody(w, &got) != nil {
					return false
				}
				return got.Source == model.AvailabilitySourceCache && got.TotalAvailable == 4
			}, 5*time.Second, 50*time.Millisecond)

			w := serve(router, createJSONHTTPRequest("GET", "/api/v1/users/"+user.ID+"/bookings", nil))
			require.Equal(t, http.StatusOK, w.Code)
			var history []model.Booking
			require.NoError(t, decodeBody(w, &history))
			require.Len(t, history, 1)
			assert.Equal(t, model.BookingStatusRefunded, history[0].Status)

			w = serve(router, createJSONHTTPRequest("GET", "/api/v1/users/"+user.ID+"/bookings?status=confirmed", nil))
			require.Equal(t, http.StatusOK, w.Code)
			var confirmedOnly []model.Booking
			require.NoError(t, decodeBody(w, &confirmedOnly))
			assert.Empty(t, confirmedOnly)

			w = serve(router, createJSONHTTPRequest("GET", "/api/v1/events?category=FESTIVAL", nil))
			require.Equal(t, http.StatusOK, w.Code)
			var festivals []model.EventResponse
			require.NoError(t, decodeBody(w, &festivals))
			require.Len(t, festivals, 1)
			assert.Equal(t, event.ID, festivals[0].ID)

			gateway.AssertExpectations(t)
		})
	}
}
