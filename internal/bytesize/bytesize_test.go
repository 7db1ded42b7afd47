package bytesize

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		// Plain numbers
		{"plain zero", "0", 0, false},
		{"plain bytes", "2048", 2048, false},

		// Bytes suffix
		{"bytes B", "2048B", 2048, false},
		{"bytes b lowercase", "2048b", 2048, false},

		// Binary units
		{"kibibytes Ki", "2Ki", 2048, false},
		{"kibibytes KiB", "2KiB", 2048, false},
		{"mebibytes Mi", "4Mi", 4 * 1024 * 1024, false},
		{"gibibytes GiB", "1GiB", 1024 * 1024 * 1024, false},

		// Decimal units
		{"kilobytes KB", "1KB", 1000, false},
		{"megabytes MB", "100MB", 100 * 1000 * 1000, false},
		{"gigabytes G", "1G", 1000 * 1000 * 1000, false},

		// Case insensitivity and whitespace
		{"lowercase ki", "2ki", 2048, false},
		{"uppercase KI", "2KI", 2048, false},
		{"leading space", "  2Ki", 2048, false},
		{"space between", "2 Ki", 2048, false},

		// Floating point
		{"float kibibytes", "1.5Ki", ByteSize(1.5 * 1024), false},
		{"float mebibytes", "0.5Mi", ByteSize(0.5 * 1024 * 1024), false},

		// Error cases
		{"empty string", "", 0, true},
		{"whitespace only", "   ", 0, true},
		{"invalid unit", "2Xi", 0, true},
		{"tebibytes unsupported", "1Ti", 0, true},
		{"negative number", "-2Ki", 0, true},
		{"no number", "Ki", 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestByteSize_UnmarshalText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"simple", "2Ki", 2048, false},
		{"numeric", "2048", 2048, false},
		{"invalid", "invalid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b ByteSize
			err := b.UnmarshalText([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("UnmarshalText(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && b != tt.want {
				t.Errorf("UnmarshalText(%q) = %d, want %d", tt.input, b, tt.want)
			}
		})
	}
}

func TestByteSize_String(t *testing.T) {
	tests := []struct {
		name  string
		input ByteSize
		want  string
	}{
		{"bytes", 512, "512B"},
		{"kibibytes", 2 * KiB, "2.00KiB"},
		{"mebibytes", 3 * MiB, "3.00MiB"},
		{"gibibytes", GiB, "1.00GiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestByteSize_Int(t *testing.T) {
	if got := (2 * KiB).Int(); got != 2048 {
		t.Errorf("Int() = %d, want 2048", got)
	}
}
