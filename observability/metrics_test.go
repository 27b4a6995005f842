package observability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueriesSharesOneRegistration(t *testing.T) {
	first := Queries()
	require.NotNil(t, first)

	// Repeated calls must not re-register the collectors.
	require.Same(t, first, Queries())
}

func TestObserversTolerateNilReceiver(t *testing.T) {
	var m *QueryMetrics
	m.ObserveQuery("getvalueforname", "ok")
	m.ObserveRewindDepth(10)
	m.ObserveRewindFailure("too_deep")
}
