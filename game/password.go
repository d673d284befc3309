package game

import "github.com/alexedwards/argon2id"

// Room passwords are short-lived shared secrets; lighter parameters than
// argon2id.DefaultParams keep joins fast.
var passwordParams = &argon2id.Params{
	Memory:      16 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	return argon2id.CreateHash(password, passwordParams)
}

func checkPassword(hash, password string) (bool, error) {
	if hash == "" {
		return true, nil
	}
	if password == "" {
		return false, nil
	}
	return argon2id.ComparePasswordAndHash(password, hash)
}
