package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCryptoOperation(t *testing.T) {
	m := newMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordCryptoOperation("encrypt", "native", 5*time.Millisecond, 1024)
	m.RecordCryptoOperation("encrypt", "native", 3*time.Millisecond, 512)
	m.RecordCryptoOperation("decrypt", "webcrypto", 2*time.Millisecond, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cryptoOperations.WithLabelValues("encrypt", "native")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cryptoOperations.WithLabelValues("decrypt", "webcrypto")))
	assert.Equal(t, 1536.0, testutil.ToFloat64(m.cryptoBytes.WithLabelValues("encrypt")))
	// Zero-byte operations must not create a bytes sample.
	assert.Equal(t, 0.0, testutil.ToFloat64(m.cryptoBytes.WithLabelValues("decrypt")))
}

func TestRecordCryptoError(t *testing.T) {
	m := newMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordCryptoError("decrypt", "cipher")
	m.RecordCryptoError("decrypt", "cipher")
	m.RecordCryptoError("encrypt", "stream_source")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cryptoErrors.WithLabelValues("decrypt", "cipher")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cryptoErrors.WithLabelValues("encrypt", "stream_source")))
}

func TestRecordStoreOperation(t *testing.T) {
	m := newMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordStoreOperation("put", "sealed-packages", 20*time.Millisecond)
	m.RecordStoreError("get", "sealed-packages", "not_found")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOperations.WithLabelValues("put", "sealed-packages")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeErrors.WithLabelValues("get", "sealed-packages", "not_found")))
}

func TestUpdateSystemMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)

	m.UpdateSystemMetrics()

	assert.Greater(t, testutil.ToFloat64(m.goroutines), 0.0)
	assert.Greater(t, testutil.ToFloat64(m.memoryAllocBytes), 0.0)
}

func TestStartSystemMetricsCollector(t *testing.T) {
	m := newMetricsWithRegistry(prometheus.NewRegistry())
	m.StartSystemMetricsCollector(5 * time.Millisecond)

	// The initial update fires synchronously.
	assert.Greater(t, testutil.ToFloat64(m.goroutines), 0.0)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.memoryAllocBytes) > 0
	}, time.Second, 5*time.Millisecond)
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg)
	m.RecordCryptoOperation("derive", "native", time.Millisecond, 0)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["packseal_crypto_operations_total"])
	assert.True(t, names["packseal_crypto_duration_seconds"])
}
