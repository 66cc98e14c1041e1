// Package common contains shared constants and sentinel errors used across
// securemsg components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// session token on inbound requests.
const AccessTokenHeaderName = "access_token"

// SessionCookieName is the HTTP-only cookie that holds the session token.
const SessionCookieName = "token"
