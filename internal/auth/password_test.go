// ABOUTME: Tests for bcrypt password hashing helpers

package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "hunter2hunter2" {
		t.Fatal("hash equals plaintext")
	}

	if !VerifyPassword("hunter2hunter2", hash) {
		t.Error("VerifyPassword() = false for correct password")
	}
	if VerifyPassword("wrong-password", hash) {
		t.Error("VerifyPassword() = true for wrong password")
	}
	if VerifyPassword("hunter2hunter2", "not-a-hash") {
		t.Error("VerifyPassword() = true for malformed hash")
	}
}
