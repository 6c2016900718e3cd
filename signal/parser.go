package signal

import (
	"strings"
)

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ParsePayload 解析 KEY=VALUE 行
// 空行和不含 '=' 的行直接丢弃；只在第一个 '=' 处切分；重复键后者覆盖前者
func ParsePayload(text string) FieldMap {
	out := make(FieldMap)

	for _, raw := range strings.Split(lineBreaks.Replace(text), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

// RedactSecret 将文本中的 SECRET 行替换为掩码，用于落库
func RedactSecret(text string) string {
	lines := strings.Split(lineBreaks.Replace(text), "\n")
	for i, raw := range lines {
		k, _, ok := strings.Cut(strings.TrimSpace(raw), "=")
		if ok && strings.ToUpper(strings.TrimSpace(k)) == FieldSecret {
			lines[i] = FieldSecret + "=***"
		}
	}
	return strings.Join(lines, "\n")
}
