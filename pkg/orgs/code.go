package orgs

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// orgCodeAlphabet omits characters that are easy to misread (0/O, 1/I/L).
const orgCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// OrgCodeLength is the length of generated codes.
const OrgCodeLength = 8

var orgCodePattern = regexp.MustCompile(`^[A-Z0-9]{4,16}$`)

// GenerateOrgCode returns a random join code.
func GenerateOrgCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(orgCodeAlphabet)))
	for i := 0; i < OrgCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate org code: %w", err)
		}
		b.WriteByte(orgCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeOrgCode trims and upper-cases code, then validates it.
func NormalizeOrgCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !orgCodePattern.MatchString(code) {
		return "", ErrInvalidCode
	}
	return code, nil
}
