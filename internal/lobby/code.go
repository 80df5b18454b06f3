package lobby

import (
	"crypto/rand"
	"strings"

	"github.com/vovakirdan/gamebridge-server/internal/domain"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// rejectAbove is the largest multiple of len(codeAlphabet) that fits in a byte;
// bytes at or above it are discarded to keep the draw uniform.
const rejectAbove = 256 - 256%len(codeAlphabet)

// GenerateCode returns a random join code of domain.JoinCodeLength characters
// drawn uniformly from A-Z0-9.
func GenerateCode() (string, error) {
	var sb strings.Builder
	sb.Grow(domain.JoinCodeLength)

	buf := make([]byte, 16)
	for sb.Len() < domain.JoinCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
			if sb.Len() == domain.JoinCodeLength {
				break
			}
		}
	}
	return sb.String(), nil
}

// NormalizeCode upper-cases and trims user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code has the join code shape.
func ValidCode(code string) bool {
	if len(code) != domain.JoinCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
