package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"time"

	"buste/internal/cache"
	"buste/internal/core"
	"buste/internal/engine"
	applog "buste/internal/log"
	"buste/internal/schedule"
)

// FundingAPI is the port the HTTP layer drives. The funding service
// implements it; tests plug in a stub.
type FundingAPI interface {
	FundCategory(ctx context.Context, categoryID string, amount float64, paycheckID string) (bool, error)
	MoveMoney(ctx context.Context, fromID, toID string, amount float64, note string) (bool, error)
	TransferFunds(ctx context.Context, source, destination string, amount float64, note, paycheckID string) (bool, error)
	AutoFund(ctx context.Context, totalAmount float64, paycheckID string) (engine.AutoFundResult, error)
	ReceivePaycheck(ctx context.Context, paycheckID string, actualAmount float64, notes string) (engine.AutoFundResult, error)
	ApplyTransaction(ctx context.Context, tx core.Transaction, old *core.Transaction) error
	RecomputeBalances(ctx context.Context) error
	ToBeAllocated(ctx context.Context) (float64, error)
	Categories() []core.Category
	Items() []core.PlanningItem
	Timeline(ctx context.Context, itemID, paycheckID string, perPaycheck float64) (schedule.Timeline, error)
	PaycheckDates(ctx context.Context, paycheckID string, count int) ([]time.Time, error)
	FundingHistory(ctx context.Context, limit int) ([]core.FundingHistoryEntry, error)
	TransferHistory(ctx context.Context, limit int) ([]core.CategoryTransfer, error)
	MonthlyBudget(ctx context.Context) (map[string]float64, error)
	SetMonthlyBudget(ctx context.Context, budget map[string]float64) error
	OnMutate(fn func())
}

// Options tunes the read-side caches and rate limiting.
type Options struct {
	CacheSize      int
	CacheTTL       time.Duration
	RequestsPerMin int
}

func defaultOptions() Options {
	return Options{CacheSize: 128, CacheTTL: 30 * time.Second, RequestsPerMin: 60}
}

type Server struct {
	http.Server
	api         FundingAPI
	rateLimiter *rateLimiter
	logger      *applog.StructuredLogger

	// Read-side projection caches, cleared on every successful mutation.
	poolCache     *cache.LRUCache[float64]
	timelineCache *cache.LRUCache[schedule.Timeline]
	cacheManager  *cache.Manager
}

func NewServer(addr string, api FundingAPI, opts *Options) *Server {
	o := defaultOptions()
	if opts != nil {
		o = *opts
	}

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentHTTP
	logger := applog.New(logCfg)

	s := &Server{
		api:           api,
		rateLimiter:   newRateLimiter(o.RequestsPerMin),
		logger:        applog.NewStructuredLogger(logger),
		poolCache:     cache.NewLRUCache[float64](o.CacheSize, o.CacheTTL),
		timelineCache: cache.NewLRUCache[schedule.Timeline](o.CacheSize, o.CacheTTL),
		cacheManager:  cache.NewManager(),
	}
	s.cacheManager.Register(s.poolCache)
	s.cacheManager.Register(s.timelineCache)
	s.cacheManager.StartCleanup(time.Minute)

	api.OnMutate(func() {
		s.poolCache.Clear()
		s.timelineCache.Clear()
	})

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:    addr,
		Handler: applog.Middleware(logger)(s.withMiddleware(mux)),
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/items", s.handleListItems)
	mux.HandleFunc("GET /api/to-be-allocated", s.handleToBeAllocated)
	mux.HandleFunc("GET /api/items/{id}/timeline", s.handleTimeline)
	mux.HandleFunc("GET /api/paychecks/{id}/dates", s.handlePaycheckDates)
	mux.HandleFunc("GET /api/funding-history", s.handleFundingHistory)
	mux.HandleFunc("GET /api/transfers", s.handleTransferHistory)
	mux.HandleFunc("GET /api/monthly-budget", s.handleGetMonthlyBudget)

	mux.HandleFunc("POST /api/categories/{id}/fund", s.handleFundCategory)
	mux.HandleFunc("POST /api/move", s.handleMoveMoney)
	mux.HandleFunc("POST /api/transfer", s.handleTransferFunds)
	mux.HandleFunc("POST /api/autofund", s.handleAutoFund)
	mux.HandleFunc("POST /api/paychecks/{id}/receive", s.handleReceivePaycheck)
	mux.HandleFunc("POST /api/transactions", s.handleApplyTransaction)
	mux.HandleFunc("POST /api/recompute", s.handleRecompute)
	mux.HandleFunc("PUT /api/monthly-budget", s.handleSetMonthlyBudget)
}

// withMiddleware wraps the mux with request tracing and rate limiting.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		if !s.rateLimiter.allow(clientIP) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.LogHTTPEnd(ctx, r, requestID, rw.status, time.Since(start).Milliseconds(), clientIP)
	})
}

// Close releases the server's background resources.
func (s *Server) Close() error {
	s.rateLimiter.stop()
	s.cacheManager.Stop()
	return s.Server.Close()
}

type contextKey string

const requestIDKey contextKey = "request_id"

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

func extractClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
