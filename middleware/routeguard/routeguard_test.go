package routeguard_test

import (
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-session"
	"github.com/goliatone/go-session/middleware/routeguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClassifier(t *testing.T) *session.RouteClassifier {
	t.Helper()
	classifier, err := session.NewRouteClassifier([]session.RouteRule{
		{Pattern: "/api/:path*", Type: session.RoutePublic},
		{Pattern: "/login", Type: session.RouteAuthOnly},
		{Pattern: "/dashboard/:path*", Type: session.RouteProtected},
	})
	require.NoError(t, err)
	return classifier
}

func newGuardHandler(t *testing.T, cfg routeguard.Config) router.HandlerFunc {
	t.Helper()
	return routeguard.New(cfg)(func(c router.Context) error {
		return c.Next()
	})
}

func TestRouteGuardDecide(t *testing.T) {
	cases := []struct {
		name     string
		tier     session.RouteType
		matched  bool
		hasToken bool
		want     routeguard.Action
	}{
		{"unmatched passes through", "", false, false, routeguard.ActionNext},
		{"unmatched passes through with token", "", false, true, routeguard.ActionNext},
		{"public without token", session.RoutePublic, true, false, routeguard.ActionNext},
		{"public with token", session.RoutePublic, true, true, routeguard.ActionNext},
		{"auth-only without token", session.RouteAuthOnly, true, false, routeguard.ActionNext},
		{"auth-only with token", session.RouteAuthOnly, true, true, routeguard.ActionRedirectHome},
		{"protected without token", session.RouteProtected, true, false, routeguard.ActionRedirectLogin},
		{"protected with token", session.RouteProtected, true, true, routeguard.ActionNext},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, routeguard.Decide(tc.tier, tc.matched, tc.hasToken))
		})
	}
}

func TestRouteGuardProtectedWithoutTokenRedirectsToLogin(t *testing.T) {
	handler := newGuardHandler(t, routeguard.Config{Classifier: testClassifier(t)})

	ctx := &MockContext{}
	ctx.On("Path").Return("/dashboard/settings")
	ctx.On("Cookies", session.DefaultAuthCookieName).Return("")
	ctx.On("Redirect", "/login", []int{http.StatusFound}).Return(nil)

	require.NoError(t, handler(ctx))
	ctx.AssertExpectations(t)
	assert.False(t, ctx.NextCalled)
}

func TestRouteGuardProtectedWithTokenPasses(t *testing.T) {
	handler := newGuardHandler(t, routeguard.Config{Classifier: testClassifier(t)})

	ctx := &MockContext{}
	ctx.On("Path").Return("/dashboard")
	ctx.On("Cookies", session.DefaultAuthCookieName).Return("token-1")

	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled)
}

func TestRouteGuardAuthOnlyWithTokenRedirectsHome(t *testing.T) {
	handler := newGuardHandler(t, routeguard.Config{Classifier: testClassifier(t)})

	ctx := &MockContext{}
	ctx.On("Path").Return("/login")
	ctx.On("Cookies", session.DefaultAuthCookieName).Return("token-1")
	ctx.On("Redirect", "/", []int{http.StatusFound}).Return(nil)

	require.NoError(t, handler(ctx))
	ctx.AssertExpectations(t)
	assert.False(t, ctx.NextCalled)
}

func TestRouteGuardAuthOnlyWithoutTokenPasses(t *testing.T) {
	handler := newGuardHandler(t, routeguard.Config{Classifier: testClassifier(t)})

	ctx := &MockContext{}
	ctx.On("Path").Return("/login")
	ctx.On("Cookies", session.DefaultAuthCookieName).Return("")

	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled)
}

func TestRouteGuardPublicIgnoresToken(t *testing.T) {
	handler := newGuardHandler(t, routeguard.Config{Classifier: testClassifier(t)})

	ctx := &MockContext{}
	ctx.On("Path").Return("/api/v1/users")
	ctx.On("Cookies", session.DefaultAuthCookieName).Return("")

	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled)
}

func TestRouteGuardUnmatchedPathPassesThrough(t *testing.T) {
	handler := newGuardHandler(t, routeguard.Config{Classifier: testClassifier(t)})

	ctx := &MockContext{}
	ctx.On("Path").Return("/about")
	ctx.On("Cookies", session.DefaultAuthCookieName).Return("")

	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled)
}

func TestRouteGuardCustomPaths(t *testing.T) {
	handler := newGuardHandler(t, routeguard.Config{
		Classifier: testClassifier(t),
		CookieName: "app_session",
		LoginPath:  "/signin",
		HomePath:   "/app",
	})

	ctx := &MockContext{}
	ctx.On("Path").Return("/dashboard")
	ctx.On("Cookies", "app_session").Return("")
	ctx.On("Redirect", "/signin", []int{http.StatusFound}).Return(nil)

	require.NoError(t, handler(ctx))
	ctx.AssertExpectations(t)
}

func TestRouteGuardRequiresClassifier(t *testing.T) {
	assert.Panics(t, func() {
		routeguard.New(routeguard.Config{})
	})
}
