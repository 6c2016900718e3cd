package signal

import "crypto/subtle"

// ValidateSecret 校验共享密钥，大小写敏感
// 字段缺失或未配置密钥均视为失败
func ValidateSecret(fields FieldMap, secret string) bool {
	got, ok := fields[FieldSecret]
	if !ok || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}
