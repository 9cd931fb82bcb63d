// internal/llm/credentials.go
package llm

import "strings"

// CredentialPool 某个提供者的有序密钥列表，进程启动时加载一次，之后只读
type CredentialPool struct {
	provider string
	keys     []string
}

// NewCredentialPool 创建密钥池，复制传入的切片
func NewCredentialPool(provider string, keys []string) *CredentialPool {
	copied := make([]string, len(keys))
	copy(copied, keys)
	return &CredentialPool{provider: provider, keys: copied}
}

// ParseCredentials 解析逗号分隔的密钥串。
// 传入前缀时只保留以任一前缀开头的密钥，其余丢弃。
func ParseCredentials(raw string, prefixes ...string) []string {
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		key := strings.TrimSpace(part)
		if key == "" {
			continue
		}
		if len(prefixes) > 0 && !hasAnyPrefix(key, prefixes) {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// Provider 密钥所属的提供者
func (p *CredentialPool) Provider() string {
	return p.provider
}

// Len 密钥数量
func (p *CredentialPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys 返回密钥副本，调用方修改不影响池
func (p *CredentialPool) Keys() []string {
	if p == nil {
		return nil
	}
	copied := make([]string, len(p.keys))
	copy(copied, p.keys)
	return copied
}
