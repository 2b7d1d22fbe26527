package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a@x.com", "a@x.com"},
		{"A@X.COM", "a@x.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"\tuser@example.com\n", "user@example.com"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Email(tt.input); got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToken(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"AbC123", "AbC123"},
		{"  AbC123\n", "AbC123"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Token(tt.input); got != tt.want {
				t.Errorf("Token(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
