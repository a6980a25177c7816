// Package token seals the recipients of an assignment set into opaque
// display tokens.
//
// Every call to Encryptor.Encrypt generates one fresh 256-bit key, seals each
// recipient id under its own random 96-bit nonce and drops the key before
// returning. Token layout is base64(nonce || ciphertext || tag). Nothing in
// this module, or anywhere else, can open a token afterwards.
package token
