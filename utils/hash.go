package utils

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt work factor. main sets it from BCRYPT_COST; tests
// lower it to bcrypt.MinCost.
var PasswordCost = bcrypt.DefaultCost

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plain password with a stored bcrypt hash.
func CheckPasswordHash(password, hashedPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
