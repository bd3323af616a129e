package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/openretail/proshop/internal/domain"
	"github.com/openretail/proshop/pkg/common"
)

// Identity is the resolved caller: the staff account a request acts as.
type Identity struct {
	UserID   int64  `json:"user_id,string"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

var ErrUnresolved = errors.New("identity: token did not resolve to an active user")

// Claims is the session token payload.
type Claims struct {
	UserID   int64  `json:"uid,string"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Gate resolves opaque session tokens into identities. Resolution verifies the
// token signature, then confirms the account still exists and is enabled; a
// TTL cache keeps checkout attribution from hitting sys_user on every request.
type Gate struct {
	db       *gorm.DB
	secret   []byte
	tokenTTL time.Duration

	mu    sync.RWMutex
	cache map[int64]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	ident     Identity
	expiresAt time.Time
}

func NewGate(db *gorm.DB, secret string) *Gate {
	return &Gate{
		db:       db,
		secret:   []byte(secret),
		tokenTTL: 7 * 24 * time.Hour,
		cache:    make(map[int64]cacheEntry),
		ttl:      time.Minute,
	}
}

// IssueToken mints a signed session token for the user.
func (g *Gate) IssueToken(user *domain.SysUser) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign session token")
	}
	return signed, nil
}

// Resolve turns a bearer token into an Identity, or ErrUnresolved. Callers
// that must stay available under session loss use Fallback instead of failing.
func (g *Gate) Resolve(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return Identity{}, ErrUnresolved
	}

	claims := Claims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrUnresolved
	}

	g.mu.RLock()
	entry, ok := g.cache[claims.UserID]
	g.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.ident, nil
	}

	var user domain.SysUser
	err = g.db.WithContext(ctx).
		Where("id = ? AND status = ?", claims.UserID, common.ENABLED).
		First(&user).Error
	if err != nil {
		return Identity{}, ErrUnresolved
	}

	ident := Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
	g.mu.Lock()
	g.cache[claims.UserID] = cacheEntry{ident: ident, expiresAt: time.Now().Add(g.ttl)}
	g.mu.Unlock()
	return ident, nil
}

// Invalidate drops a user from the resolver cache. Call it when an account is
// disabled or deleted so stale sessions stop resolving within the same TTL.
func (g *Gate) Invalidate(userID int64) {
	g.mu.Lock()
	delete(g.cache, userID)
	g.mu.Unlock()
}

// Fallback returns the fixed default identity: the seeded super user. The
// register stays sellable even when session resolution fails; attribution
// falls back to admin. This is a deliberate availability-over-attribution
// trade-off carried over from the reference behavior.
func (g *Gate) Fallback() Identity {
	var user domain.SysUser
	if err := g.db.Where("username = ?", SuperUsername).First(&user).Error; err == nil {
		return Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
	}
	return Identity{Username: SuperUsername, Role: RoleAdmin}
}

// SuperUsername is the seeded super admin account name.
const SuperUsername = "admin"
