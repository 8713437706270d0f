package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfig_SplitsAndTrimsBrokerList(t *testing.T) {
	cfg := ParseConfig("broker1:9092, broker2:9092 ,broker3:9092", "events", "errors")
	assert.Equal(t, []string{"broker1:9092", "broker2:9092", "broker3:9092"}, cfg.Brokers)
	assert.Equal(t, "events", cfg.EventTopic)
	assert.Equal(t, "errors", cfg.ErrorTopic)
}

func TestParseConfig_SingleBrokerNoTrailingComma(t *testing.T) {
	cfg := ParseConfig("localhost:9092", "events", "")
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Empty(t, cfg.ErrorTopic)
}
