// README: Bench cases: connectivity, HTTP smoke checks, capacity races through the booking service and a create/accept load loop.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"gohappygo/internal/infra"
	"gohappygo/internal/logger"
	"gohappygo/internal/modules/booking"
	"gohappygo/internal/modules/trip"
	"gohappygo/internal/payment"
	"gohappygo/internal/types"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
	svc   *booking.Service
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		maxConns := int32(r.cfg.Concurrency + 4)
		if db, err := infra.NewDB(ctx, r.cfg.DSN, infra.DBOptions{MaxConns: maxConns}); err == nil {
			r.db = db
			r.svc = booking.NewService(booking.Deps{
				UnitOfWork: booking.NewPgUnitOfWork(db),
				Payments:   payment.NewLedger(logger.Discard()),
				Identity:   infra.StaticIdentity{AllowAll: true},
				Logger:     logger.Discard(),
			})
		} else {
			fmt.Printf("db: %v\n", err)
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: statusSkip, Note: "disabled"}
				}
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				res, err := infra.Migrate(ctx, r.db)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass, Note: fmt.Sprintf("version=%d applied=%d", res.Version, res.Applied)}
			},
		},
		httpCase("HTTP: health", base+"/health", http.StatusOK),
		httpCase("HTTP: api requires a token", base+"/api/v1/trips/mine", http.StatusUnauthorized),
		{
			Name: "Race: instant bookings never oversell",
			Run:  instantRace,
		},
		{
			Name: "Race: one accept wins the last kilograms",
			Run:  acceptRace,
		},
		{
			Name: "Load: create and accept",
			Run:  createAcceptLoad,
		},
	}
}

func httpCase(name, url string, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: statusSkip, Note: err.Error()}
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			latency := time.Since(start)

			if resp.StatusCode == want {
				return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d want=%d", resp.StatusCode, want)}
		},
	}
}

func (r *Runner) newTrip(ctx context.Context, capacity float64, instant bool) (*trip.Trip, error) {
	return r.svc.CreateTrip(ctx, booking.CreateTripCommand{
		OwnerID:       types.ID("bench-carrier-" + uuid.NewString()),
		DepartureCity: "Paris",
		ArrivalCity:   "Douala",
		DepartureAt:   time.Now().Add(72 * time.Hour),
		TotalCapacity: capacity,
		PricePerKg:    "5",
		Sharable:      true,
		Instant:       instant,
	})
}

// instantRace fires more 1 kg instant bookings than the trip can hold.
func instantRace(ctx context.Context, r *Runner) Result {
	if r.svc == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	t, err := r.newTrip(ctx, float64(r.cfg.Capacity), true)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}

	attempts := r.cfg.Capacity + r.cfg.Concurrency
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		full     int
		other    []error
	)
	start := time.Now()
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.svc.CreateRequest(ctx, booking.CreateRequestCommand{
				RequesterID: types.ID("bench-sender-" + uuid.NewString()),
				TripID:      t.ID,
				Weight:      1,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, trip.ErrInsufficientCapacity), errors.Is(err, trip.ErrNotActive):
				full++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()
	latency := time.Since(start)

	after, err := r.svc.GetTrip(ctx, t.ID)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	note := fmt.Sprintf("accepted=%d rejected=%d errors=%d remaining=%.2f status=%s", accepted, full, len(other), after.RemainingCapacity, after.Status)
	if accepted != r.cfg.Capacity || after.RemainingCapacity != 0 || after.Status != trip.StatusFilled || len(other) > 0 {
		return Result{Status: statusFail, Latency: latency, Note: note}
	}
	return Result{Status: statusPass, Latency: latency, Note: note}
}

// acceptRace opens one negotiation per worker, each for the whole capacity,
// then accepts them all at once.
func acceptRace(ctx context.Context, r *Runner) Result {
	if r.svc == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	t, err := r.newTrip(ctx, float64(r.cfg.Capacity), false)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	ids := make([]types.ID, 0, r.cfg.Concurrency)
	for i := 0; i < r.cfg.Concurrency; i++ {
		b, err := r.svc.CreateRequest(ctx, booking.CreateRequestCommand{
			RequesterID: types.ID("bench-sender-" + uuid.NewString()),
			TripID:      t.ID,
			Weight:      float64(r.cfg.Capacity),
		})
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		ids = append(ids, b.Request.ID)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	start := time.Now()
	for _, id := range ids {
		wg.Add(1)
		go func(id types.ID) {
			defer wg.Done()
			_, err := r.svc.Accept(ctx, booking.AcceptCommand{RequestID: id, CallerID: t.OwnerID})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if success == 1 {
		return Result{Status: statusPass, Latency: time.Since(start), Note: fmt.Sprintf("success=%d", success)}
	}
	return Result{Status: statusFail, Latency: time.Since(start), Note: fmt.Sprintf("success=%d", success)}
}

// createAcceptLoad runs create+accept cycles on one large trip for the configured duration.
func createAcceptLoad(ctx context.Context, r *Runner) Result {
	if r.svc == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	t, err := r.newTrip(ctx, 1_000_000, false)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}

	end := time.Now().Add(r.cfg.Duration)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		count    int64
		errCount int64
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				err := cycle(ctx, r.svc, t)
				mu.Lock()
				if err != nil {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("no cycle completed errors=%d", errCount)}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("cycles/s=%.1f errors=%d", rps, errCount)}
}

func cycle(ctx context.Context, svc *booking.Service, t *trip.Trip) error {
	b, err := svc.CreateRequest(ctx, booking.CreateRequestCommand{
		RequesterID: types.ID("bench-sender-" + uuid.NewString()),
		TripID:      t.ID,
		Weight:      1,
	})
	if err != nil {
		return err
	}
	_, err = svc.Accept(ctx, booking.AcceptCommand{RequestID: b.Request.ID, CallerID: t.OwnerID})
	return err
}
