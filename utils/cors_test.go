package utils

import "testing"

func TestIsLocalOrigin(t *testing.T) {
	tests := []struct {
		origin  string
		allowed bool
	}{
		// localhost
		{"http://localhost", true},
		{"http://localhost:3000", true},

		// private IPs
		{"http://192.168.1.1:7777", true},
		{"http://10.0.0.1", true},
		{"http://172.31.255.255:443", true},
		{"http://127.0.0.1:3000", true},
		{"http://[::1]:3000", true},

		// link-local
		{"http://169.254.1.1", true},

		// .local and single-label hostnames
		{"http://devbox.local:3000", true},
		{"http://devbox:3000", true},

		// public
		{"https://astraui.me", false},
		{"https://evil.com", false},
		{"http://8.8.8.8", false},

		// empty/invalid
		{"", false},
		{"not-a-url", false},
	}

	for _, tt := range tests {
		if got := IsLocalOrigin(tt.origin); got != tt.allowed {
			t.Errorf("IsLocalOrigin(%q) = %v, want %v", tt.origin, got, tt.allowed)
		}
	}
}

func TestOriginPolicy(t *testing.T) {
	p := NewOriginPolicy([]string{"https://astraui.me", " https://Spot.AstraUI.me ", "ftp://files.example.com", ""})

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://astraui.me", true},
		{"https://spot.astraui.me", true},
		{"http://astraui.me", false},
		{"https://astraui.me.evil.com", false},
		{"ftp://files.example.com", false},
		{"http://localhost:3000", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.Allows(tt.origin); got != tt.allowed {
			t.Errorf("Allows(%q) = %v, want %v", tt.origin, got, tt.allowed)
		}
	}

	if !NewOriginPolicy([]string{"*"}).Allows("https://anything.example") {
		t.Error("wildcard policy should allow any origin")
	}
	var nilPolicy *OriginPolicy
	if !nilPolicy.Allows("http://localhost") || nilPolicy.Allows("https://astraui.me") {
		t.Error("nil policy should allow only local origins")
	}
}
