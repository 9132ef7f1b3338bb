package security

import "golang.org/x/crypto/bcrypt"

// bumping this re-hashes passwords lazily on next successful login
const hashCost = bcrypt.DefaultCost

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// NeedsRehash reports whether a stored hash was made with an outdated
// cost. Callers only invoke this after CheckPassword succeeded.
func NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))

	if err != nil {
		return true
	}

	return cost < hashCost
}
