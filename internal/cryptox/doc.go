// Package cryptox holds the server's cryptographic primitives: argon2id
// password hashing with a per-user salt and the AEAD used to keep message
// content encrypted at rest.
package cryptox
