// Package credentials loads the line-oriented token and proxy files.
//
// Tokens are opaque bearer strings as far as the rest of the agent is
// concerned. When a token happens to be a JWT, Inspect decodes its claims
// without verification so the run log can show whose account is being
// processed and whether the token has already expired.
package credentials

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ReadTokens loads bearer tokens from path, one per line. Blank lines and
// surrounding whitespace are ignored. A missing file is an error; the caller
// decides whether that ends the cycle.
func ReadTokens(path string) ([]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return lines, nil
}

// ReadProxies loads proxy URIs from path, one per line. A missing file is
// non-fatal and yields an empty pool: the agent falls back to direct
// connections.
func ReadProxies(path string) []string {
	lines, err := readLines(path)
	if err != nil {
		return nil
	}
	return lines
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// TokenInfo holds best-effort diagnostics decoded from a bearer token.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token's expiry is known and in the past.
func (ti TokenInfo) Expired(now time.Time) bool {
	return !ti.ExpiresAt.IsZero() && ti.ExpiresAt.Before(now)
}

// Inspect decodes a token's claims without verifying its signature. Tokens
// that are not JWTs return ok=false; that is not an error, the token is still
// usable as an opaque credential.
func Inspect(token string) (TokenInfo, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, false
	}

	var info TokenInfo
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, true
}
