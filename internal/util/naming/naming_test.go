package naming

import "testing"

func TestNamingFunctions(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "SessionSecret",
			got:      SessionSecret("1234"),
			expected: "chainfleet-session-1234",
		},
		{
			name:     "SessionNodeSecret",
			got:      SessionNodeSecret("1234", 12),
			expected: "chainfleet-session-1234-node-12",
		},
		{
			name:     "SessionObjectKey",
			got:      SessionObjectKey("/prod/", "1234"),
			expected: "prod/sessions/1234.json",
		},
		{
			name:     "SessionObjectKey without prefix",
			got:      SessionObjectKey("", "1234"),
			expected: "sessions/1234.json",
		},
		{
			name:     "Blockchain",
			got:      Blockchain("6F1C2A"),
			expected: "chainfleet-blockchain-6f1c2a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.got)
			}
		})
	}
}
