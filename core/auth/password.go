package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// HashClave derives a storable hash from a clave plus the server-side
// pepper. Claves are never stored or compared in plaintext.
func HashClave(clave, pepper string) (string, error) {
	if clave == "" {
		return "", errors.New("clave vacía")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(clave+pepper), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func MustHashClave(clave, pepper string) string {
	h, err := HashClave(clave, pepper)
	if err != nil {
		panic(err)
	}
	return h
}

func VerificarClave(clave, pepper, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(clave+pepper)) == nil
}
