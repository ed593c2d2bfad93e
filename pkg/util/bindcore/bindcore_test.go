package bindcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCoreGroup(t *testing.T) {
	tests := []struct {
		spec    string
		want    []int
		wantErr bool
	}{
		{spec: "", want: nil},
		{spec: "3", want: []int{3}},
		{spec: "1,5-7", want: []int{1, 5, 6, 7}},
		{spec: "0-2,2,4", want: []int{0, 1, 2, 4}},
		{spec: " 1 , 3 - 4 ", want: []int{1, 3, 4}},
		{spec: ",", wantErr: true},
		{spec: "a", wantErr: true},
		{spec: "5-3", wantErr: true},
		{spec: "-1", wantErr: true},
		{spec: "1-", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseCoreGroup(tt.spec)
		if tt.wantErr {
			assert.Error(t, err, "spec %q", tt.spec)
			continue
		}
		assert.NoError(t, err, "spec %q", tt.spec)
		assert.Equal(t, tt.want, got, "spec %q", tt.spec)
	}
}
