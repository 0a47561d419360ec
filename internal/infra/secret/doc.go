// Package secret checks the server password.
//
// The configured password is either plaintext or an Argon2id hash in the
// PHC string form produced by Hash:
//
//	$argon2id$v=19$m=16384,t=2,p=2$<salt>$<hash>
//
// A Checker accepts either form. After the first successful Argon2id
// verification it remembers the SHA-256 digest of the accepted password so
// later checks stay cheap.
package secret
