package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/rapidrate/internal/rbac"
)

const issuer = "rapidrate"

type AuthService struct {
	hmac []byte
	ttl  time.Duration

	adminUser     string
	adminPassHash []byte
}

func NewAuthService(secret, adminUser, adminPassHash string) *AuthService {
	return &AuthService{
		hmac:          []byte(secret),
		ttl:           8 * time.Hour,
		adminUser:     adminUser,
		adminPassHash: []byte(adminPassHash),
	}
}

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"` // "admin", "experimenter" or "observer"
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// CheckAdmin verifies the configured admin credentials.
func (a *AuthService) CheckAdmin(user, pass string) bool {
	if user == "" || user != a.adminUser || len(a.adminPassHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.adminPassHash, []byte(pass)) == nil
}

// POST /auth/login  { "username": "...", "password": "...", "role": "experimenter|observer" }
//
// Only the configured admin account can log in. It may ask for a narrower
// role, e.g. to hand an observer token to a collaborator.
func LoginHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if !a.CheckAdmin(req.Username, req.Password) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		role := req.Role
		switch role {
		case "":
			role = "admin"
		case "admin", "experimenter", "observer":
		default:
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}
		tok, err := a.IssueJWT(req.Username, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "role": role})
	}
}

// JWTMiddleware authenticates the bearer token and puts its subject and role
// in the request context for rbac.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			ctx := rbac.WithSubject(r.Context(), c.Sub)
			ctx = rbac.WithRole(ctx, c.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
