package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct{ id string }

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2024-01-01T00:00:00Z"})
	require.NoError(t, err)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.Equal(t, "42", decoded.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	require.Error(t, err)
}

func TestBuildCursorPageInfoTrimsLookAhead(t *testing.T) {
	data := []*row{{"a"}, {"b"}, {"c"}}

	kept, info := BuildCursorPageInfo(data, 2, func(r *row) string { return r.id })
	require.Len(t, kept, 2)
	require.True(t, info.HasMore)
	require.Equal(t, "b", info.NextPageToken)

	kept, info = BuildCursorPageInfo(data, 5, func(r *row) string { return r.id })
	require.Len(t, kept, 3)
	require.False(t, info.HasMore)
	require.Empty(t, info.NextPageToken)
}

func TestLimitClamps(t *testing.T) {
	require.Equal(t, DefaultPageSize, Pagination{}.Limit())
	require.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	require.Equal(t, 7, Pagination{PageSize: 7}.Limit())
}
