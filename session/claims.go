package session

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of an access token without verifying its signature.
// The client cannot verify the server's signature; the expiry is only used to
// refresh ahead of a 401. Opaque tokens report ok=false.
func TokenExpiry(rawToken string) (expiry time.Time, ok bool) {
	if strings.Count(rawToken, ".") != 2 {
		return time.Time{}, false
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
