package apihttp

import (
	"testing"

	"trackstream/internal/domain"
)

func TestParseByteRange(t *testing.T) {
	tests := []struct {
		header  string
		want    domain.Range
		wantErr bool
	}{
		{header: "", want: domain.Range{}},
		{header: "bytes=0-", want: domain.NewRange(0)},
		{header: "bytes=4096-", want: domain.NewRange(4096)},
		{header: "bytes=0-1023", want: domain.NewBoundedRange(0, 1024)},
		{header: "bytes=100-100", want: domain.NewBoundedRange(100, 101)},
		{header: "bytes=-500", wantErr: true},
		{header: "bytes=100-50", wantErr: true},
		{header: "bytes=0-10,20-30", wantErr: true},
		{header: "items=0-10", wantErr: true},
		{header: "bytes=abc-", wantErr: true},
		{header: "bytes=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := parseByteRange(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseByteRange(%q) = %v, want error", tt.header, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseByteRange(%q): %v", tt.header, err)
			}
			if got != tt.want {
				t.Fatalf("parseByteRange(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
