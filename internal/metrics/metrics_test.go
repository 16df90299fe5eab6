package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	t.Run("TxSubmitted", func(t *testing.T) {
		before := testutil.ToFloat64(TxSubmitted.WithLabelValues("purchaseToken"))
		TxSubmitted.WithLabelValues("purchaseToken").Inc()
		after := testutil.ToFloat64(TxSubmitted.WithLabelValues("purchaseToken"))
		assert.Equal(t, before+1, after)
	})

	t.Run("TxFailed", func(t *testing.T) {
		before := testutil.ToFloat64(TxFailed.WithLabelValues("purchaseToken", "reverted"))
		TxFailed.WithLabelValues("purchaseToken", "reverted").Inc()
		after := testutil.ToFloat64(TxFailed.WithLabelValues("purchaseToken", "reverted"))
		assert.Equal(t, before+1, after)
	})

	t.Run("CacheRefreshes", func(t *testing.T) {
		before := testutil.ToFloat64(CacheRefreshes.WithLabelValues("price", "ok"))
		CacheRefreshes.WithLabelValues("price", "ok").Inc()
		after := testutil.ToFloat64(CacheRefreshes.WithLabelValues("price", "ok"))
		assert.Equal(t, before+1, after)
	})

	t.Run("ConfirmationHistogram", func(t *testing.T) {
		assert.NotPanics(t, func() {
			TxConfirmationSeconds.Observe(1.5)
		})
	})
}
