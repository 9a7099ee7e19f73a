// Package common contains shared constants, sentinel errors and small
// helpers used by both the PostKeeper client and server.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// MaxPostLength is the longest post body, in characters, the server accepts.
const MaxPostLength = 280
