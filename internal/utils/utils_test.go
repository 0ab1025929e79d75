package utils

import (
	"testing"

	"github.com/google/uuid"
)

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"contract.pdf":          "contract.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\lease.pdf`: "lease.pdf",
		"my file (1).pdf":       "my_file__1_.pdf",
		"":                      "",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSignedFilename(t *testing.T) {
	tests := map[string]string{
		"contract.pdf": "contract_signed.pdf",
		"SCAN.PDF":     "SCAN_signed.pdf",
		"notes":        "notes_signed.pdf",
		"":             "document_signed.pdf",
		"a.b.pdf":      "a.b_signed.pdf",
	}
	for in, want := range tests {
		if got := SignedFilename(in); got != want {
			t.Errorf("SignedFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateUUID(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	if a == b {
		t.Fatal("two calls returned the same id")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatal(err)
	}
}
