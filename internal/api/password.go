package api

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Salt appended to passwords before transport encoding. Must match the
// backend byte for byte.
const passwordSalt = "georankers-salt-2024"

// EncodePassword applies the transport encoding the backend expects:
// base64(password + salt). This is reversible obfuscation, not encryption;
// the only real protection in transit is TLS. Kept solely for wire
// compatibility with the existing backend.
func EncodePassword(password string) string {
	return base64.StdEncoding.EncodeToString([]byte(password + passwordSalt))
}

// DecodePassword reverses EncodePassword.
func DecodePassword(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode password: %w", err)
	}
	return strings.TrimSuffix(string(raw), passwordSalt), nil
}
