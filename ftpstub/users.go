package ftpstub

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var anonymousNames = map[string]bool{"anonymous": true, "ftp": true}

// userStore holds bcrypt hashes of the named accounts.
type userStore struct {
	anonymous bool
	hashes    map[string][]byte
}

func newUserStore(anonymous bool, users map[string]string) (*userStore, error) {
	store := &userStore{anonymous: anonymous, hashes: make(map[string][]byte, len(users))}
	for name, password := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", name, err)
		}
		store.hashes[name] = hash
	}
	return store, nil
}

// authenticate checks a password. Anonymous logins accept any password.
func (u *userStore) authenticate(name, password string) bool {
	if anonymousNames[name] {
		return u.anonymous
	}
	hash, ok := u.hashes[name]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
