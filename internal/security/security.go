// Package security 提供API密钥认证
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/paiban/roomassign/pkg/errors"
)

// 权限范围
const (
	ScopeAssignments = "assignments" // 方案操作、报告与导出
	ScopeRulesWrite  = "rules:write" // 修改或重置分房规则
	ScopeAll         = "*"
)

// APIKey API密钥
//
// 只保存密钥的 SHA-256 摘要，明文仅在生成时返回一次。
type APIKey struct {
	Hash      string     `json:"-"`
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Enabled   bool       `json:"enabled"`
}

// IsValid 检查密钥是否有效
func (k *APIKey) IsValid(now time.Time) bool {
	if !k.Enabled {
		return false
	}
	if k.ExpiresAt != nil && k.ExpiresAt.Before(now) {
		return false
	}
	return true
}

// HasScope 检查密钥是否有某权限
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope || s == ScopeAll {
			return true
		}
	}
	return false
}

// KeyStore API密钥存储
type KeyStore struct {
	keys map[string]*APIKey // 摘要 -> 密钥
	mu   sync.RWMutex
	now  func() time.Time
}

// NewKeyStore 创建密钥存储
func NewKeyStore() *KeyStore {
	return &KeyStore{
		keys: make(map[string]*APIKey),
		now:  time.Now,
	}
}

// ParseKeys 解析密钥配置
//
// 格式为逗号分隔的 name:key[:scope|scope]，省略权限时授予全部权限。
func ParseKeys(raw string) (*KeyStore, error) {
	store := NewKeyStore()
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, errors.InvalidInput("api_keys", "格式应为 name:key[:scope|scope]")
		}
		scopes := []string{ScopeAll}
		if len(parts) == 3 && parts[2] != "" {
			scopes = strings.Split(parts[2], "|")
		}
		store.Add(parts[0], parts[1], scopes, nil)
	}
	return store, nil
}

// Add 登记明文密钥
func (s *KeyStore) Add(name, key string, scopes []string, expiresAt *time.Time) *APIKey {
	apiKey := &APIKey{
		Hash:      HashKey(key),
		Name:      name,
		Scopes:    scopes,
		CreatedAt: s.now(),
		ExpiresAt: expiresAt,
		Enabled:   true,
	}
	s.mu.Lock()
	s.keys[apiKey.Hash] = apiKey
	s.mu.Unlock()
	return apiKey
}

// Generate 生成新密钥，返回明文和登记的密钥
func (s *KeyStore) Generate(name string, scopes []string, expiresIn time.Duration) (string, *APIKey, error) {
	raw, err := generateRandomString(32)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CodeInternal, "生成API密钥失败")
	}
	key := "ra_" + raw

	var expiresAt *time.Time
	if expiresIn > 0 {
		t := s.now().Add(expiresIn)
		expiresAt = &t
	}
	return key, s.Add(name, key, scopes, expiresAt), nil
}

// Len 已登记的密钥数
func (s *KeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Validate 验证密钥
func (s *KeyStore) Validate(key string) (*APIKey, error) {
	if key == "" {
		return nil, errors.New(errors.CodeUnauthorized, "缺少API密钥")
	}

	s.mu.RLock()
	apiKey, exists := s.keys[HashKey(key)]
	s.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.CodeUnauthorized, "无效的API密钥")
	}
	if !apiKey.IsValid(s.now()) {
		return nil, errors.New(errors.CodeUnauthorized, "API密钥已过期或已停用")
	}
	return apiKey, nil
}

// Revoke 停用密钥
func (s *KeyStore) Revoke(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiKey, exists := s.keys[HashKey(key)]; exists {
		apiKey.Enabled = false
	}
}

// Authorize 验证密钥并检查请求所需权限
func (s *KeyStore) Authorize(r *http.Request) (*APIKey, error) {
	apiKey, err := s.Validate(ExtractAPIKey(r))
	if err != nil {
		return nil, err
	}
	scope := RequiredScope(r)
	if !apiKey.HasScope(scope) {
		return nil, errors.New(errors.CodeForbidden, "权限不足").WithField("scope", scope)
	}
	return apiKey, nil
}

// RequiredScope 请求所需的权限范围
func RequiredScope(r *http.Request) string {
	if r.URL.Path == "/api/v1/rules" && (r.Method == http.MethodPut || r.Method == http.MethodDelete) {
		return ScopeRulesWrite
	}
	return ScopeAssignments
}

// ExtractAPIKey 从请求中提取API密钥
func ExtractAPIKey(r *http.Request) string {
	// 1. 从 Authorization header
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	// 2. 从 X-API-Key header
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}

	// 3. 从 query parameter
	return r.URL.Query().Get("api_key")
}

// HashKey 计算密钥摘要
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// generateRandomString 生成随机字符串
func generateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes)[:length], nil
}
