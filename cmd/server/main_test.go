package main

import "testing"

func TestStorageConfigured(t *testing.T) {
	tests := []struct {
		driver string
		want   bool
	}{
		{"r2", true},
		{"minio", true},
		{"none", false},
		{"mock", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := storageConfigured(tt.driver); got != tt.want {
			t.Errorf("storageConfigured(%q) = %v, want %v", tt.driver, got, tt.want)
		}
	}
}
