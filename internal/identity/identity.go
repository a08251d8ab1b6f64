// Package identity provides anonymous per-browser trainee identity.
package identity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/store"
	"github.com/google/uuid"
)

const (
	TraineeCookieName    = "boothsim_trainee_id"
	ClientHeaderName     = "X-Boothsim-Client-ID"
	DefaultClientIDValue = "default"
	traineeCookieMaxAge  = 30 * 24 * time.Hour
)

type contextKey int

const (
	traineeIDKey contextKey = iota
	displayNameKey
	clientIDKey
)

var (
	traineeIDPattern = regexp.MustCompile(`^trn_[a-f0-9]{32}$`)
	clientIDPattern  = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// TraineeIDFromContext extracts the trainee ID from the request context.
func TraineeIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traineeIDKey).(string); ok {
		return v
	}
	return ""
}

// DisplayNameFromContext extracts the trainee display name from the request context.
func DisplayNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(displayNameKey).(string); ok {
		return v
	}
	return ""
}

// ClientIDFromContext extracts the browser tab ID from the request context.
func ClientIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientIDKey).(string); ok {
		return v
	}
	return DefaultClientIDValue
}

// WithTrainee returns a context carrying traineeID. Used by tests and tools
// that bypass the cookie middleware.
func WithTrainee(ctx context.Context, traineeID string) context.Context {
	ctx = context.WithValue(ctx, traineeIDKey, traineeID)
	return context.WithValue(ctx, displayNameKey, deriveDisplayName(traineeID))
}

func generateTraineeID() string {
	return "trn_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func isValidTraineeID(id string) bool {
	return traineeIDPattern.MatchString(id)
}

func sanitizeClientID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !clientIDPattern.MatchString(id) {
		return DefaultClientIDValue
	}
	return id
}

func deriveDisplayName(traineeID string) string {
	if len(traineeID) > 12 {
		return "trainee-" + traineeID[len(traineeID)-6:]
	}
	return "trainee"
}

// touchTrainee creates the trainee on first sight and refreshes LastSeenAt.
func touchTrainee(ctx context.Context, repo store.Repository, traineeID string, now time.Time) error {
	t, err := repo.GetTrainee(ctx, traineeID)
	if err != nil {
		return fmt.Errorf("load trainee: %w", err)
	}
	if t == nil {
		t = &domain.Trainee{
			TraineeID:   traineeID,
			DisplayName: deriveDisplayName(traineeID),
			CreatedAt:   now,
		}
	}
	t.LastSeenAt = now
	t.UpdatedAt = now
	return repo.UpsertTrainee(ctx, t)
}

func setTraineeCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     TraineeCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(traineeCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(traineeCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateTraineeID(w http.ResponseWriter, r *http.Request, isDev bool) string {
	if c, err := r.Cookie(TraineeCookieName); err == nil && isValidTraineeID(c.Value) {
		setTraineeCookie(w, c.Value, isDev)
		return c.Value
	}
	id := generateTraineeID()
	setTraineeCookie(w, id, isDev)
	return id
}

func clientIDFromRequest(r *http.Request) string {
	cid := r.Header.Get(ClientHeaderName)
	if cid == "" {
		cid = r.URL.Query().Get("client_id")
	}
	return sanitizeClientID(cid)
}

// Middleware injects the anonymous trainee identity and the per-request client ID.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traineeID := getOrCreateTraineeID(w, r, isDev)

			if err := touchTrainee(r.Context(), repo, traineeID, time.Now().UTC()); err != nil {
				http.Error(w, `{"error":"failed to initialize trainee"}`, http.StatusInternalServerError)
				return
			}

			ctx := WithTrainee(r.Context(), traineeID)
			ctx = context.WithValue(ctx, clientIDKey, clientIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for rate limiting and tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
