package dmarc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
	"github.com/ginjaninja78/dmarc-report-parser/internal/types"
)

func TestNewDictionary(t *testing.T) {
	d, err := NewDictionary([]string{"org_name", "report_id"}, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"org_name", "report_id"}, d.Keys())
	assert.Equal(t, 3, d.Rows())

	values, ok := d.Values("org_name")
	require.True(t, ok)
	require.Len(t, values, 3)
	for _, v := range values {
		assert.True(t, v.IsMissing())
	}
}

func TestNewDictionary_ZeroRows(t *testing.T) {
	d, err := NewDictionary([]string{"source_ip"}, 0)
	require.NoError(t, err)

	values, ok := d.Values("source_ip")
	require.True(t, ok)
	assert.Empty(t, values)
}

func TestNewDictionary_InvalidInput(t *testing.T) {
	_, err := NewDictionary([]string{"a"}, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewDictionary([]string{"a", "a"}, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewDictionary_Independent(t *testing.T) {
	keys := []string{"org_name"}
	a, err := NewDictionary(keys, DefaultRows)
	require.NoError(t, err)
	b, err := NewDictionary(keys, DefaultRows)
	require.NoError(t, err)

	require.NoError(t, a.Populate([]types.TagValues{{{Key: "org_name", Value: "Outlook.com"}}}))

	v, _ := b.Get("org_name", 0)
	assert.True(t, v.IsMissing(), "populating one dictionary must not touch another")

	keys[0] = "mutated"
	assert.Equal(t, []string{"org_name"}, a.Keys())
}

func TestPopulate(t *testing.T) {
	d, err := NewDictionary([]string{"source_ip", "count", "comment"}, 2)
	require.NoError(t, err)

	err = d.Populate([]types.TagValues{
		{{Key: "source_ip", Value: "203.0.113.10"}, {Key: "count", Value: "2"}},
		{{Key: "source_ip", Value: "198.51.100.7"}, {Key: "comment", Value: ""}},
	})
	require.NoError(t, err)

	tests := []struct {
		key  string
		row  int
		want table.Value
	}{
		{"source_ip", 0, table.Text("203.0.113.10")},
		{"count", 0, table.Text("2")},
		{"comment", 0, table.Missing()},
		{"source_ip", 1, table.Text("198.51.100.7")},
		{"count", 1, table.Missing()},
		{"comment", 1, table.Text("")},
	}
	for _, tt := range tests {
		got, ok := d.Get(tt.key, tt.row)
		require.True(t, ok)
		assert.True(t, tt.want.Equal(got), "%s[%d] = %v, want %v", tt.key, tt.row, got, tt.want)
	}
}

func TestPopulate_FirstOccurrenceWins(t *testing.T) {
	d, err := NewDictionary([]string{"dkim_domain"}, 1)
	require.NoError(t, err)

	err = d.Populate([]types.TagValues{{
		{Key: "dkim_domain", Value: "example.org"},
		{Key: "dkim_domain", Value: "mail.example.org"},
	}})
	require.NoError(t, err)

	v, _ := d.Get("dkim_domain", 0)
	assert.Equal(t, "example.org", v.String())
}

func TestPopulate_KeyMismatch(t *testing.T) {
	d, err := NewDictionary([]string{"source_ip"}, 2)
	require.NoError(t, err)

	err = d.Populate([]types.TagValues{
		{{Key: "source_ip", Value: "203.0.113.10"}},
		{{Key: "policy_evaluated_result", Value: "pass"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyMismatch)

	var mismatch *KeyMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "policy_evaluated_result", mismatch.Key)
	assert.Equal(t, 1, mismatch.Row)

	v, _ := d.Get("source_ip", 0)
	assert.True(t, v.IsMissing(), "nothing is written when a key does not fit")
}

func TestPopulate_TooManyRows(t *testing.T) {
	d, err := NewDictionary([]string{"org_name"}, 1)
	require.NoError(t, err)

	err = d.Populate([]types.TagValues{{}, {}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDictionary_Equal(t *testing.T) {
	a, _ := NewDictionary([]string{"p", "sp"}, 1)
	b, _ := NewDictionary([]string{"p", "sp"}, 1)
	assert.True(t, a.Equal(b))

	require.NoError(t, a.Populate([]types.TagValues{{{Key: "sp", Value: ""}}}))
	assert.False(t, a.Equal(b), "empty text differs from missing")

	c, _ := NewDictionary([]string{"sp", "p"}, 1)
	assert.False(t, b.Equal(c), "key order matters")
}
