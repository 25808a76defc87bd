package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/premiumcity-backend/api/responses"
	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/premiumcity-backend/pkg/errors"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/premiumcity-backend/pkg/redis"
)

const maxThrottledBody = 64 << 10

// Throttle caps credential attempts for one auth surface. A zero limit
// disables that dimension.
type Throttle struct {
	Surface  string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func LoginThrottle(cfg config.AuthRateLimitConfig) Throttle {
	return Throttle{Surface: "login", Window: cfg.LoginWindow, PerIP: cfg.LoginIPLimit, PerEmail: cfg.LoginEmailLimit}
}

func RegisterThrottle(cfg config.AuthRateLimitConfig) Throttle {
	return Throttle{Surface: "register", Window: cfg.RegisterWindow, PerIP: cfg.RegisterIPLimit, PerEmail: cfg.RegisterEmailLimit}
}

func (t Throttle) active() bool {
	return t.Window > 0 && (t.PerIP > 0 || t.PerEmail > 0)
}

func (t Throttle) key(dimension, value string) string {
	surface := strings.ToLower(strings.TrimSpace(t.Surface))
	if surface == "" {
		surface = "auth"
	}
	return pkgredis.Key(pkgredis.ThrottleSpace, surface, dimension, value)
}

// Throttled counts each request against the caller IP and the email in the
// JSON body. Counters expire with the window; store failures surface as 503.
func Throttled(t Throttle, store pkgredis.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !t.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if t.PerIP > 0 {
				ip := clientIP(r)
				if ip != "" && !t.check(ctx, w, store, logg, "ip", ip, t.PerIP) {
					return
				}
			}

			if t.PerEmail > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				if email != "" && !t.check(ctx, w, store, logg, "email", digest(email), t.PerEmail) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check increments one counter and writes the rejection when it is over the
// limit. It reports whether the request may continue.
func (t Throttle) check(ctx context.Context, w http.ResponseWriter, store pkgredis.RateLimiter, logg *logger.Logger, dimension, value string, limit int) bool {
	count, err := store.IncrWithTTL(ctx, t.key(dimension, value), t.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
		return false
	}
	if count <= int64(limit) {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"surface":   t.Surface,
			"dimension": dimension,
			"subject":   value,
			"attempts":  count,
			"limit":     limit,
		}), "auth.throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(t.Window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

// peekEmail reads the body, restores it for the handler and returns the
// normalized email field if present.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxThrottledBody))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(body.Email)), nil
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:12])
}
