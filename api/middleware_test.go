package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agentfolio/axscore/api"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestJWTAuthMiddleware(t *testing.T) {
	var gotDevID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDevID, _ = r.Context().Value(api.CtxDeveloperID).(int64)
		w.WriteHeader(http.StatusOK)
	})
	handler := api.JWTAuthMiddlewareWithSecret(testSecret)(next)

	do := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/v1/sites", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	if rr := do(""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status %d, want 401", rr.Code)
	}
	if rr := do("Bearer not.a.token"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d, want 401", rr.Code)
	}

	wrongKey := signToken(t, "other-secret", jwt.MapClaims{
		"developer_id": 7, "exp": time.Now().Add(time.Hour).Unix(),
	})
	if rr := do("Bearer " + wrongKey); rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status %d, want 401", rr.Code)
	}

	expired := signToken(t, testSecret, jwt.MapClaims{
		"developer_id": 7, "exp": time.Now().Add(-time.Hour).Unix(),
	})
	if rr := do("Bearer " + expired); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: status %d, want 401", rr.Code)
	}

	// a syntactically valid token with no tenant claim is useless
	noTenant := signToken(t, testSecret, jwt.MapClaims{
		"email": "x@example.com", "exp": time.Now().Add(time.Hour).Unix(),
	})
	if rr := do("Bearer " + noTenant); rr.Code != http.StatusUnauthorized {
		t.Fatalf("token without developer_id: status %d, want 401", rr.Code)
	}

	good := signToken(t, testSecret, jwt.MapClaims{
		"developer_id": 42, "exp": time.Now().Add(time.Hour).Unix(),
	})
	if rr := do("Bearer " + good); rr.Code != http.StatusOK {
		t.Fatalf("valid token: status %d, want 200", rr.Code)
	}
	if gotDevID != 42 {
		t.Fatalf("developer id in context = %d, want 42", gotDevID)
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	handler := api.CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight must not reach the handler")
	}))

	req := httptest.NewRequest("OPTIONS", "/v1/scans", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status %d, want 204", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("CORS headers missing")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := api.RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest("GET", "/v1/sites", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rr.Code)
	}
}
