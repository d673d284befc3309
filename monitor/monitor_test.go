package monitor

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorsAreIndependent(t *testing.T) {
	a := NewMonitor("relicroom")
	b := NewMonitor("relicroom")

	a.SetActiveRooms(3)
	b.SetActiveRooms(1)
	assert.Equal(t, 3.0, testutil.ToFloat64(a.metrics.ActiveRooms))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.ActiveRooms))
}

func TestCommandHandled(t *testing.T) {
	m := NewMonitor("relicroom")
	m.CommandHandled("lock_role", "ok", time.Millisecond)
	m.CommandHandled("lock_role", "COLOR_TAKEN", time.Millisecond)
	m.CommandHandled("lock_role", "ok", time.Millisecond)
	m.CommitFailed("lock_role")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.metrics.Commands.WithLabelValues("lock_role", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.Commands.WithLabelValues("lock_role", "COLOR_TAKEN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.CommitFailures.WithLabelValues("lock_role")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMonitor("relicroom")
	m.SetOnlineSessions(2)
	m.IncMessagesReceived()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "relicroom_online_sessions 2"))
	assert.True(t, strings.Contains(text, "relicroom_messages_received_total 1"))
	assert.True(t, strings.Contains(text, "relicroom_uptime_seconds"))
}
