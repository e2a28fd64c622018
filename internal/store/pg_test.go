package store

import (
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"pq error", &pq.Error{Code: "23505"}, true},
		{"pgconn error", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped pq error", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"other pq code", &pq.Error{Code: "23503"}, false},
		{"plain error", fmt.Errorf("boom"), false},
		{"nil", nil, false},
	}
	for _, c := range cases {
		if got := isUniqueViolation(c.err); got != c.want {
			t.Fatalf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}
