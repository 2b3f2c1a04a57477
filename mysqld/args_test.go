package mysqld

import (
	"reflect"
	"testing"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantBin  string
		wantRest []string
	}{
		{"no args", nil, "mariadbd", nil},
		{"options only", []string{"--datadir=/var/lib/mysql"}, "mariadbd", []string{"--datadir=/var/lib/mysql"}},
		{"alternate binary", []string{"mysqld", "--verbose"}, "mysqld", []string{"--verbose"}},
		{"single dash option", []string{"-v"}, "mariadbd", []string{"-v"}},
	}

	for _, tc := range tests {
		bin, rest := Command("mariadbd", tc.args)
		if bin != tc.wantBin {
			t.Errorf("%s: expected binary %q, got %q", tc.name, tc.wantBin, bin)
		}
		if !reflect.DeepEqual(rest, tc.wantRest) {
			t.Errorf("%s: expected rest %v, got %v", tc.name, tc.wantRest, rest)
		}
	}
}
