package processor

import (
	"errors"
	"testing"
)

func TestDecodeBase64Image(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain", "aGVsbG8=", "hello", nil},
		{"data url", "data:image/png;base64,aGVsbG8=", "hello", nil},
		{"unpadded", "aGVsbG8", "hello", nil},
		{"empty", "  ", "", ErrNoImage},
		{"data url without payload", "data:image/png;base64", "", ErrInvalidBase64},
		{"garbage", "!!not base64!!", "", ErrInvalidBase64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64Image(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DecodeBase64Image() error = %v, want %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Fatalf("DecodeBase64Image() = %q, want %q", got, tt.want)
			}
		})
	}
}
