// Package auth obtains the access token used to open a control server
// session.
//
// The token endpoint takes the device API key and password as JSON and
// answers {"response": "<token>"}. When the token is a JWT with an exp
// claim it is reused until shortly before it expires. Opaque tokens are
// fetched for every connection attempt. The signature is never checked
// here; the control server is the only party that validates tokens.
package auth
