package core

import "testing"

func TestHashVerifyRoundTrip(t *testing.T) {
	h := newPasswordHasherWithCost(4)
	digest, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if digest == "correct horse" {
		t.Fatalf("digest must not equal plaintext")
	}
	if !h.Verify("correct horse", digest) {
		t.Fatalf("Verify should accept the original password")
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	h := newPasswordHasherWithCost(4)
	digest, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if h.Verify("secret124", digest) {
		t.Fatalf("Verify should reject a wrong password")
	}
}

func TestVerifyMalformedDigest(t *testing.T) {
	h := newPasswordHasherWithCost(4)
	for _, digest := range []string{"", "not-a-digest", "$2a$garbage"} {
		if h.Verify("anything", digest) {
			t.Fatalf("Verify accepted malformed digest %q", digest)
		}
	}
}

func TestHashIsSalted(t *testing.T) {
	h := newPasswordHasherWithCost(4)
	a, err := h.Hash("same password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := h.Hash("same password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password should differ")
	}
}
