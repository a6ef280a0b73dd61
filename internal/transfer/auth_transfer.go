package transfer

import "github.com/golang-jwt/jwt/v5"

// JobClaims are carried by signed tokens accepted on the run endpoint.
type JobClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}
