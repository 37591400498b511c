package bus

import (
	"testing"

	"sentrycore/internal/config"
	"sentrycore/internal/logger"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	log := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	return New(Config{BrokerURL: "tcp://localhost:1883", ClientID: "test", StatusPrefix: "sentrycore"}, log)
}

func TestTopicBuildersUseConfiguredPrefix(t *testing.T) {
	b := newTestBus(t)

	cases := map[string]string{
		b.ResultTopic("front-door"):    "sentrycore/front-door/result",
		b.DetectionTopic("front-door"): "sentrycore/front-door/detection",
		b.DetectedTopic("front-door"):  "sentrycore/front-door/detected",
		b.ContextTopic("front-door"):   "sentrycore/front-door/context",
		b.statusTopic():                "sentrycore/status",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("topic = %q, want %q", got, want)
		}
	}
}

func TestNotConnectedBeforeConnect(t *testing.T) {
	b := newTestBus(t)
	if b.Connected() {
		t.Fatal("a freshly built Bus must report not connected before Connect is called")
	}
}
