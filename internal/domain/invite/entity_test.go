package invite

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsable(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		link Link
		want bool
	}{
		{"open link", Link{Active: true}, true},
		{"inactive", Link{Active: false}, false},
		{"expired", Link{Active: true, ExpiresAt: sql.NullTime{Time: now, Valid: true}}, false},
		{"not yet expired", Link{Active: true, ExpiresAt: sql.NullTime{Time: now.Add(time.Second), Valid: true}}, true},
		{"exhausted", Link{Active: true, MaxUses: sql.NullInt32{Int32: 1, Valid: true}, UseCount: 1}, false},
		{"uses left", Link{Active: true, MaxUses: sql.NullInt32{Int32: 2, Valid: true}, UseCount: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.link.Usable(now))
		})
	}
}
