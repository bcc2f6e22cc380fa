package handlers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tumortrace/classification-service/internal/auth"
	"github.com/tumortrace/classification-service/internal/models"
)

// flexInt accepts a JSON number or a numeric string. Empty strings and null
// leave it unset.
type flexInt struct {
	set bool
	n   int
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(strings.Trim(string(data), `"`))
	if s == "" || s == "null" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		f.set, f.n = true, n
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid integer %q", s)
	}
	f.set, f.n = true, int(v)
	return nil
}

func (f flexInt) ptr() *int {
	if !f.set {
		return nil
	}
	n := f.n
	return &n
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// firstNonEmpty returns the first non-empty value, used for gateway field
// aliases.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// actingUser resolves the caller on routes where a session is optional. A
// session is authoritative; a differing body userId is rejected. Without a
// session the body userId is only honored when sessions are not required.
func actingUser(c *gin.Context, bodyUserID string, requireSession bool) (string, error) {
	if sessionID, ok := auth.SessionUserID(c); ok {
		if bodyUserID != "" && bodyUserID != sessionID {
			return "", fmt.Errorf("%w: userId does not match the signed-in user", models.ErrForbidden)
		}
		return sessionID, nil
	}
	if requireSession {
		return "", fmt.Errorf("%w: please login to continue", models.ErrUnauthorized)
	}
	return bodyUserID, nil
}

// sessionUser returns the user set by the session middleware.
func sessionUser(c *gin.Context) (string, bool) {
	id, ok := auth.SessionUserID(c)
	if !ok {
		writeError(c, fmt.Errorf("%w: no session", models.ErrUnauthorized))
	}
	return id, ok
}
