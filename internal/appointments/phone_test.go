package appointments

import "testing"

func TestFormatPhoneE164(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3132044895", "+13132044895"},
		{"313-204-4895", "+13132044895"},
		{"(313) 204-4895", "+13132044895"},
		{"13132044895", "+13132044895"},
		{"+13132044895", "+13132044895"},
		{"1-313-204-4895", "+13132044895"},
		{"00313132044895", "+13132044895"},
		{"12345", "12345"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatPhoneE164(tt.in); got != tt.want {
			t.Errorf("FormatPhoneE164(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
