// Package common contains shared constants and sentinel errors used across
// voicepay components. Callers should use errors.Is to match the errors.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// RequestIDHeaderName is the gRPC metadata key echoing the request id assigned
// by the server.
const RequestIDHeaderName = "x-request-id"

// NoMatchUserID is reported as the user id of an authentication attempt that
// matched nobody.
const NoMatchUserID = "0"

// VoiceprintDimensions is the fixed length of every stored voiceprint.
const VoiceprintDimensions = 100

// SecretLength is the fixed number of digits in a spoken secret.
const SecretLength = 5
