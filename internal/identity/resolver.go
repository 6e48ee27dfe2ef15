package identity

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-sync/pkg/localcache"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies the current session token, if any. Session state can
// change between calls, so the resolver consults it fresh every time.
type TokenSource interface {
	SessionToken(ctx context.Context) (string, bool)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, bool)

// SessionToken implements TokenSource.
func (f TokenSourceFunc) SessionToken(ctx context.Context) (string, bool) {
	return f(ctx)
}

// CachedUser is the locally persisted current-user record consulted when no
// session is active.
type CachedUser struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// Resolver derives the actor key owning actor-scoped collections. Tier
// order: session token subject, cached user id (email as surrogate), then
// anonymous. It never fails; each tier degrades silently to the next.
type Resolver struct {
	tokens TokenSource
	cache  *localcache.Store
	secret []byte
	issuer string
	logg   *logger.Logger
}

// Params groups the resolver dependencies. Tokens and Secret may be empty;
// the session tier is skipped without them.
type Params struct {
	Tokens TokenSource
	Cache  *localcache.Store
	Secret string
	Issuer string
	Logger *logger.Logger
}

// NewResolver builds an identity resolver.
func NewResolver(params Params) *Resolver {
	return &Resolver{
		tokens: params.Tokens,
		cache:  params.Cache,
		secret: []byte(params.Secret),
		issuer: params.Issuer,
		logg:   params.Logger,
	}
}

// ActorID resolves the current actor key. ok is false for anonymous actors.
func (r *Resolver) ActorID(ctx context.Context) (string, bool) {
	if id := r.fromSession(ctx); id != "" {
		return id, true
	}
	if id := r.fromCachedUser(ctx); id != "" {
		return id, true
	}
	return "", false
}

func (r *Resolver) fromSession(ctx context.Context) string {
	if r.tokens == nil || len(r.secret) == 0 {
		return ""
	}
	raw, ok := r.tokens.SessionToken(ctx)
	if !ok || strings.TrimSpace(raw) == "" {
		return ""
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		r.debug(ctx, "session token rejected")
		return ""
	}
	return strings.TrimSpace(claims.Subject)
}

func (r *Resolver) fromCachedUser(ctx context.Context) string {
	if r.cache == nil {
		return ""
	}
	user, found, err := localcache.GetJSON[CachedUser](ctx, r.cache, localcache.KeyCurrentUser)
	if err != nil || !found {
		if err != nil {
			r.debug(ctx, "cached user unreadable")
		}
		return ""
	}
	if id := strings.TrimSpace(user.ID); id != "" {
		return id
	}
	return strings.TrimSpace(user.Email)
}

func (r *Resolver) debug(ctx context.Context, msg string) {
	if r.logg != nil {
		r.logg.Debug(ctx, msg)
	}
}
