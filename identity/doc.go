// Package identity extracts the user's claims from the payload segment of a
// compact signed token (header.payload.signature).
//
// Decode performs NO cryptographic verification: neither the signature, the issuer,
// the audience nor the expiry is checked. The claims it returns are for display only
// and must never be used for authorization decisions. Verified identity in the
// redirect flow comes from an OpenID Connect verifier instead.
package identity
