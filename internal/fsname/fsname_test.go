package fsname

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain", input: "alice", wantErr: false},
		{name: "mixed case with digits", input: "Alice-42_x", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "path traversal", input: "../alice", wantErr: true},
		{name: "separator", input: "a/b", wantErr: true},
		{name: "dot", input: "alice.json", wantErr: true},
		{name: "space", input: "alice smith", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Sanitize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.input {
				t.Errorf("Sanitize(%q) = %q, want unchanged", tt.input, got)
			}
		})
	}
}
