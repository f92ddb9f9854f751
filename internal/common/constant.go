package common

// AccessTokenHeaderName is the gRPC metadata key (and HTTP cookie name) used
// to carry the access token.
const AccessTokenHeaderName = "access_token"

// NotApplicable is rendered in place of a total score for attempts that are
// not approved.
const NotApplicable = "N/A"
