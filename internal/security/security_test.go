package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roomassign/pkg/errors"
)

func TestAPIKey_IsValid(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name     string
		key      *APIKey
		expected bool
	}{
		{"有效密钥", &APIKey{Enabled: true}, true},
		{"禁用密钥", &APIKey{Enabled: false}, false},
		{"未过期密钥", &APIKey{Enabled: true, ExpiresAt: &future}, true},
		{"已过期密钥", &APIKey{Enabled: true, ExpiresAt: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.key.IsValid(now))
		})
	}
}

func TestAPIKey_HasScope(t *testing.T) {
	key := &APIKey{Scopes: []string{ScopeAssignments}}
	assert.True(t, key.HasScope(ScopeAssignments))
	assert.False(t, key.HasScope(ScopeRulesWrite))

	admin := &APIKey{Scopes: []string{ScopeAll}}
	assert.True(t, admin.HasScope(ScopeRulesWrite))
}

func TestParseKeys(t *testing.T) {
	store, err := ParseKeys("ops:secret-1, viewer:secret-2:assignments,")
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	ops, err := store.Validate("secret-1")
	require.NoError(t, err)
	assert.Equal(t, "ops", ops.Name)
	assert.True(t, ops.HasScope(ScopeRulesWrite))

	viewer, err := store.Validate("secret-2")
	require.NoError(t, err)
	assert.False(t, viewer.HasScope(ScopeRulesWrite))

	_, err = ParseKeys("missing-key")
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))

	empty, err := ParseKeys("")
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestKeyStore_GenerateValidateRevoke(t *testing.T) {
	store := NewKeyStore()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	raw, key, err := store.Generate("batch", []string{ScopeAssignments}, time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "ra_"))
	assert.NotContains(t, key.Hash, raw)

	_, err = store.Validate(raw)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = store.Validate(raw)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized), "过期密钥应被拒绝")

	other, _, err := store.Generate("other", nil, 0)
	require.NoError(t, err)
	store.Revoke(other)
	_, err = store.Validate(other)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	_, err = store.Validate("")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestKeyStore_Authorize(t *testing.T) {
	store, err := ParseKeys("viewer:v-key:assignments,admin:a-key")
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		code   errors.Code
	}{
		{"读取方案", http.MethodPost, "/api/v1/assignments/report", "v-key", ""},
		{"读取规则", http.MethodGet, "/api/v1/rules", "v-key", ""},
		{"无权修改规则", http.MethodPut, "/api/v1/rules", "v-key", errors.CodeForbidden},
		{"管理员修改规则", http.MethodPut, "/api/v1/rules", "a-key", ""},
		{"缺少密钥", http.MethodGet, "/api/v1/rules", "", errors.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			_, err := store.Authorize(req)
			if tt.code == "" {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.code), "err = %v", err)
			}
		})
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*http.Request)
		expected string
	}{
		{"Bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer test-key-123") }, "test-key-123"},
		{"X-API-Key header", func(r *http.Request) { r.Header.Set("X-API-Key", "header-key") }, "header-key"},
		{"query parameter", func(r *http.Request) { r.URL.RawQuery = "api_key=query-key" }, "query-key"},
		{"无密钥", func(*http.Request) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
			tt.setup(req)
			assert.Equal(t, tt.expected, ExtractAPIKey(req))
		})
	}
}
