package geo

import (
	"strings"
	"testing"
)

func TestParseBBox(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    BBox
		wantErr bool
	}{
		{
			name:  "Valid",
			input: "-3.8,40.3,-3.6,40.5",
			want:  BBox{MinLon: -3.8, MinLat: 40.3, MaxLon: -3.6, MaxLat: 40.5},
		},
		{
			name:  "ValidWithSpaces",
			input: " -5.99, 37.38, -5.98, 37.39 ",
			want:  BBox{MinLon: -5.99, MinLat: 37.38, MaxLon: -5.98, MaxLat: 37.39},
		},
		{
			name:  "Integers",
			input: "-4,40,-3,41",
			want:  BBox{MinLon: -4, MinLat: 40, MaxLon: -3, MaxLat: 41},
		},
		{
			name:    "TooFewValues",
			input:   "-3.8,40.3,-3.6",
			wantErr: true,
		},
		{
			name:    "TooManyValues",
			input:   "-3.8,40.3,-3.6,40.5,25830",
			wantErr: true,
		},
		{
			name:    "NotANumber",
			input:   "-3.8,40.3,east,40.5",
			wantErr: true,
		},
		{
			name:    "Empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBBox(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %+v", tt.input, got)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBBoxToUTM30(t *testing.T) {
	bbox := BBox{MinLon: -3.8, MinLat: 40.3, MaxLon: -3.6, MaxLat: 40.5}
	utm := bbox.ToUTM30()

	if utm.MinEasting >= utm.MaxEasting {
		t.Errorf("easting order: min %.1f >= max %.1f", utm.MinEasting, utm.MaxEasting)
	}
	if utm.MinNorthing >= utm.MaxNorthing {
		t.Errorf("northing order: min %.1f >= max %.1f", utm.MinNorthing, utm.MaxNorthing)
	}

	s := utm.String()
	if parts := strings.Split(s, ","); len(parts) != 4 {
		t.Errorf("String() should have 4 parts, got %q", s)
	}
	if strings.Contains(s, "urn:") {
		t.Errorf("String() must not embed a CRS: %q", s)
	}
}
