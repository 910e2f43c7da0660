package affiliate

import "testing"

func TestCommissionFor(t *testing.T) {
	tests := []struct {
		name  string
		link  Link
		total int64
		want  int64
	}{
		{
			name:  "percentage of total",
			link:  Link{CommissionType: CommissionPercentage, CommissionValue: 15},
			total: 20000,
			want:  3000,
		},
		{
			name:  "flat ignores total",
			link:  Link{CommissionType: CommissionFlat, CommissionValue: 1000},
			total: 20000,
			want:  1000,
		},
		{
			name:  "flat on small order",
			link:  Link{CommissionType: CommissionFlat, CommissionValue: 1000},
			total: 500,
			want:  1000,
		},
		{
			name:  "percentage of zero",
			link:  Link{CommissionType: CommissionPercentage, CommissionValue: 15},
			total: 0,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.link.CommissionFor(tt.total); got != tt.want {
				t.Errorf("CommissionFor(%d) = %d, want %d", tt.total, got, tt.want)
			}
		})
	}
}
