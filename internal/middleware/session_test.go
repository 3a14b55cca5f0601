// Package middleware 提供会话中间件单元测试
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func sessionRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SessionMiddleware("session_id", secret))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionID(c))
	})
	return r
}

func TestSessionMiddlewareMintsNewSession(t *testing.T) {
	r := sessionRouter("test-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.ServeHTTP(w, req)

	sid := w.Body.String()
	if sid == "" {
		t.Fatal("no session id assigned")
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "session_id" {
		t.Fatalf("expected one session_id cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}
}

func TestSessionMiddlewareRestoresSession(t *testing.T) {
	r := sessionRouter("test-secret")

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	sid := w1.Body.String()
	cookie := w1.Result().Cookies()[0]

	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(w2, req)

	if got := w2.Body.String(); got != sid {
		t.Errorf("session id = %q, want %q from cookie", got, sid)
	}
	// 已有有效会话时不重新签发 Cookie
	if len(w2.Result().Cookies()) != 0 {
		t.Error("cookie reissued for a valid session")
	}
}

func TestSessionMiddlewareRejectsTamperedCookie(t *testing.T) {
	r := sessionRouter("test-secret")

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	sid := w1.Body.String()
	cookie := w1.Result().Cookies()[0]

	// 换一个密钥的服务端应拒绝已有 Cookie 并签发新会话
	other := sessionRouter("other-secret")
	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	other.ServeHTTP(w2, req)

	if got := w2.Body.String(); got == sid || got == "" {
		t.Errorf("session id = %q, want a fresh session", got)
	}
	if len(w2.Result().Cookies()) != 1 {
		t.Error("no replacement cookie issued")
	}
}

func TestSessionMiddlewareRejectsGarbageCookie(t *testing.T) {
	r := sessionRouter("test-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "not-a-jwt"})
	r.ServeHTTP(w, req)

	if w.Body.String() == "" {
		t.Error("no session id assigned for garbage cookie")
	}
	if len(w.Result().Cookies()) != 1 {
		t.Error("no replacement cookie issued")
	}
}
