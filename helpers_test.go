package flowstate

import (
	"testing"
)

func TestToPtr(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
	}{
		{
			name:  "int value",
			value: 42,
		},
		{
			name:  "string value",
			value: "test",
		},
		{
			name:  "status value",
			value: RunStatusPaused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			switch v := tt.value.(type) {
			case int:
				ptr := ToPtr(v)
				if ptr == nil {
					t.Fatal("ToPtr returned nil")
				}
				if *ptr != v {
					t.Errorf("ToPtr() = %v, want %v", *ptr, v)
				}
			case string:
				ptr := ToPtr(v)
				if ptr == nil {
					t.Fatal("ToPtr returned nil")
				}
				if *ptr != v {
					t.Errorf("ToPtr() = %v, want %v", *ptr, v)
				}
			case RunStatus:
				ptr := ToPtr(v)
				if ptr == nil {
					t.Fatal("ToPtr returned nil")
				}
				if *ptr != v {
					t.Errorf("ToPtr() = %v, want %v", *ptr, v)
				}
			}
		})
	}
}

func TestToPtr_ModifyOriginal(t *testing.T) {
	// Verify that modifying the original doesn't affect the pointer
	original := 10
	ptr := ToPtr(original)
	original = 20

	if *ptr != 10 {
		t.Errorf("Pointer value changed unexpectedly: got %d, want 10", *ptr)
	}
}
