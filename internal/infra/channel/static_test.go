package channel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/infra/channel"
)

func ids(ms []entity.Message) []int64 {
	out := make([]int64, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestStatic_FetchHistory(t *testing.T) {
	s := channel.NewStatic(msgs(1, 2, 3, 4, 5, 6)...)
	ctx := context.Background()

	tests := []struct {
		name string
		req  channel.FetchRequest
		want []int64
	}{
		{name: "latest page", req: channel.FetchRequest{Limit: 3}, want: []int64{6, 5, 4}},
		{name: "older than offset", req: channel.FetchRequest{OffsetID: 4, Limit: 2}, want: []int64{3, 2}},
		{name: "older exhausts", req: channel.FetchRequest{OffsetID: 2, Limit: 10}, want: []int64{1}},
		{name: "newer than offset", req: channel.FetchRequest{OffsetID: 2, Limit: 2, Direction: channel.Newer}, want: []int64{4, 3}},
		{name: "newer none", req: channel.FetchRequest{OffsetID: 6, Limit: 2, Direction: channel.Newer}, want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FetchHistory(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestStatic_LatestIDEmpty(t *testing.T) {
	latest, err := channel.NewStatic().LatestID(context.Background())
	require.NoError(t, err)
	assert.Zero(t, latest)
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "older", channel.Older.String())
	assert.Equal(t, "newer", channel.Newer.String())
}
