package metrics

import "time"

// RecordMessageProcessed records one Process call.
func RecordMessageProcessed(outcome string, duration time.Duration) {
	MessagesProcessedTotal.WithLabelValues(outcome).Inc()
	MessageProcessingDuration.Observe(duration.Seconds())
}

// RecordProcessingFailure records a failure record written for reason, one
// of: summarize, validation, store, panic.
func RecordProcessingFailure(reason string) {
	ProcessingFailuresTotal.WithLabelValues(reason).Inc()
}

func UpdateArticlesCached(count int) {
	ArticlesCached.Set(float64(count))
}

// RecordChannelRequest records one channel call (history, by_ids, latest).
func RecordChannelRequest(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ChannelRequestsTotal.WithLabelValues(operation, status).Inc()
}

// RecordMessagesFetched records how many messages a cycle phase received.
func RecordMessagesFetched(phase string, count int) {
	ChannelMessagesFetched.WithLabelValues(phase).Add(float64(count))
}

func RecordContentFetchSuccess(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

func RecordPriceRefresh(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	PriceRefreshTotal.WithLabelValues(status).Inc()
}
