package crypto

import "testing"

func TestNewDownloadToken(t *testing.T) {
	token, err := NewDownloadToken()
	if err != nil {
		t.Fatalf("NewDownloadToken() unexpected error: %v", err)
	}
	if len(token) != downloadTokenBytes*2 {
		t.Errorf("NewDownloadToken() length = %d, want %d", len(token), downloadTokenBytes*2)
	}
}

func TestNewDownloadTokenIsUnique(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		token, err := NewDownloadToken()
		if err != nil {
			t.Fatalf("NewDownloadToken() unexpected error: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %q", token)
		}
		seen[token] = true
	}
}
