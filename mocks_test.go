package session_test

import (
	"context"

	"github.com/goliatone/go-session"
	"github.com/stretchr/testify/mock"
)

// MockAuthClient implements session.AuthClient
type MockAuthClient struct {
	mock.Mock
}

func (m *MockAuthClient) Login(ctx context.Context, creds session.Credentials) (*session.AuthResult, error) {
	args := m.Called(ctx, creds)
	res, _ := args.Get(0).(*session.AuthResult)
	return res, args.Error(1)
}

func (m *MockAuthClient) Register(ctx context.Context, reg session.Registration) (*session.AuthResult, error) {
	args := m.Called(ctx, reg)
	res, _ := args.Get(0).(*session.AuthResult)
	return res, args.Error(1)
}

func (m *MockAuthClient) RefreshToken(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	pair, _ := args.Get(0).(session.TokenPair)
	return pair, args.Error(1)
}

func (m *MockAuthClient) Logout(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

// FailingStorage returns the configured error from every operation.
type FailingStorage struct {
	Err error
}

func (s FailingStorage) Get(key string) ([]byte, error) {
	return nil, s.Err
}

func (s FailingStorage) Set(key string, value []byte) error {
	return s.Err
}

func (s FailingStorage) Delete(key string) error {
	return s.Err
}

// staticCookieMedium serves a fixed raw header, discarding writes.
type staticCookieMedium struct {
	header string
}

func (m staticCookieMedium) Read() string {
	return m.header
}

func (m staticCookieMedium) Write(string) {}

// quietLogger keeps degraded-path noise out of test output.
type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}
