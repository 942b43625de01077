package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordMessageProcessed(t *testing.T) {
	before := testutil.ToFloat64(MessagesProcessedTotal.WithLabelValues("stored"))

	RecordMessageProcessed("stored", 120*time.Millisecond)
	RecordMessageProcessed("stored", 80*time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(MessagesProcessedTotal.WithLabelValues("stored")))
}

func TestRecordChannelRequest(t *testing.T) {
	okBefore := testutil.ToFloat64(ChannelRequestsTotal.WithLabelValues("history", "success"))
	errBefore := testutil.ToFloat64(ChannelRequestsTotal.WithLabelValues("history", "error"))

	RecordChannelRequest("history", nil)
	RecordChannelRequest("history", errors.New("flood wait"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ChannelRequestsTotal.WithLabelValues("history", "success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(ChannelRequestsTotal.WithLabelValues("history", "error")))
}

func TestUpdateArticlesCached(t *testing.T) {
	UpdateArticlesCached(37)
	assert.Equal(t, 37.0, testutil.ToFloat64(ArticlesCached))
}

func TestContentFetchCounters(t *testing.T) {
	tests := []struct {
		result string
		record func()
	}{
		{result: "success", record: func() { RecordContentFetchSuccess(time.Second) }},
		{result: "failure", record: func() { RecordContentFetchFailed(time.Second) }},
		{result: "skipped", record: RecordContentFetchSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.result, func(t *testing.T) {
			before := testutil.ToFloat64(ContentFetchAttemptsTotal.WithLabelValues(tt.result))
			tt.record()
			assert.Equal(t, before+1, testutil.ToFloat64(ContentFetchAttemptsTotal.WithLabelValues(tt.result)))
		})
	}
}

func TestRecordPriceRefresh(t *testing.T) {
	before := testutil.ToFloat64(PriceRefreshTotal.WithLabelValues("failure"))
	RecordPriceRefresh(errors.New("timeout"))
	assert.Equal(t, before+1, testutil.ToFloat64(PriceRefreshTotal.WithLabelValues("failure")))
}

func TestMetricsFunctions_AllCallable(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordProcessingFailure("validation")
		RecordMessagesFetched("backfill", 0)
		RecordMessagesFetched("forward", 12)
	})
}
