package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"asc", "ASC"},
		{" ASC ", "ASC"},
		{"desc", "DESC"},
		{"", "DESC"},
		{"asc; DROP TABLE accounting_sync_records", "DESC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateSortOrder(tt.input), tt.input)
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"retry_count", "retry_count"},
		{" next_retry_at ", "next_retry_at"},
		{"", "updated_at"},
		{"error_message", "updated_at"},
		{"status; --", "updated_at"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateSortField(tt.input, SyncRecordSortFields, "updated_at"), tt.input)
	}
}
