package throttle

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-starter/middleware/clientip"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

var ErrTooManyRequests = errors.New("Too many requests, try again later", errors.CategoryRateLimit).
	WithCode(http.StatusTooManyRequests).
	WithTextCode("RATE_LIMITED")

type Config struct {
	Skip func(router.Context) bool

	// Rate is the sustained number of requests per Per
	Rate  int
	Per   time.Duration
	Burst int

	// KeyFunc groups requests, defaults to the client IP
	KeyFunc func(router.Context) string

	ErrorHandler router.ErrorHandler

	// IdleTTL drops limiters not seen for this long
	IdleTTL time.Duration

	now func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	cfg      Config
	visitors *xsync.MapOf[string, *visitor]
}

func NewLimiter(config ...Config) *Limiter {
	return &Limiter{
		cfg:      configDefault(config...),
		visitors: xsync.NewMapOf[string, *visitor](),
	}
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	now := l.cfg.now()
	v, _ := l.visitors.LoadOrCompute(key, func() *visitor {
		return &visitor{
			limiter: rate.NewLimiter(rate.Every(l.cfg.Per/time.Duration(l.cfg.Rate)), l.cfg.Burst),
		}
	})
	v.lastSeen.Store(now.UnixNano())
	return v.limiter.AllowN(now, 1)
}

// Sweep drops idle limiters and returns how many were removed.
func (l *Limiter) Sweep() int {
	cutoff := l.cfg.now().Add(-l.cfg.IdleTTL).UnixNano()
	removed := 0
	l.visitors.Range(func(key string, v *visitor) bool {
		if v.lastSeen.Load() < cutoff {
			l.visitors.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (l *Limiter) Len() int {
	return l.visitors.Size()
}

// Middleware rejects requests over the limit through the error handler.
func (l *Limiter) Middleware() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if l.cfg.Skip != nil && l.cfg.Skip(ctx) {
				return ctx.Next()
			}

			if !l.Allow(l.cfg.KeyFunc(ctx)) {
				return l.cfg.ErrorHandler(ctx, ErrTooManyRequests)
			}

			return ctx.Next()
		}
	}
}

// New builds a limiter and returns its middleware.
func New(config ...Config) router.MiddlewareFunc {
	return NewLimiter(config...).Middleware()
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}

	if cfg.Per <= 0 {
		cfg.Per = time.Minute
	}

	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Rate
	}

	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientip.From
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, err error) error {
			ctx.SetHeader("Retry-After", strconv.Itoa(int(cfg.Per.Seconds())))
			return ctx.Status(http.StatusTooManyRequests).SendString(ErrTooManyRequests.Message)
		}
	}

	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * cfg.Per
	}

	if cfg.now == nil {
		cfg.now = time.Now
	}

	return cfg
}
