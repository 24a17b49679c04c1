// Package redact скрывает персональные данные в логах.
package redact

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Email возвращает короткий отпечаток адреса: одинаковые адреса дают
// одинаковый отпечаток, сам адрес в лог не попадает.
func Email(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(normalized))
	return "em_" + hex.EncodeToString(sum[:6])
}
