// Package passkey implements WebAuthn registration and authentication
// ceremonies: challenge minting, response verification through an injected
// verifier, none-attestation fallback extraction, and sign-count clone
// detection.
package passkey
