package mq

import (
	"fmt"
	"strings"
	"testing"
)

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		match  bool
	}{
		{"test/topic", "test/topic", true},
		{"test/topic", "test/other", false},

		{"test/+", "test/topic", true},
		{"test/+", "test/other", true},
		{"test/+", "test/topic/sub", false},
		{"test/+/sub", "test/topic/sub", true},
		{"+/topic", "test/topic", true},
		{"+/+", "test/topic", true},

		{"test/#", "test/topic", true},
		{"test/#", "test/topic/sub", true},
		{"test/#", "test/topic/sub/deep", true},
		{"test/#", "other/topic", false},
		{"#", "any/topic/here", true},
		{"test/topic/#", "test/topic", true},
		{"test/topic/#", "test/topic/sub", true},

		{"+/+/#", "test/topic/sub/deep", true},
		{"test/+/#", "test/topic/sub", true},

		{"", "", true},
		{"test", "test", true},
		{"test/", "test/", true},
	}

	for _, tt := range tests {
		t.Run(tt.filter+"_vs_"+tt.topic, func(t *testing.T) {
			if got := matchTopic(tt.filter, tt.topic); got != tt.match {
				t.Errorf("matchTopic(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.match)
			}
		})
	}
}

func ExampleMatchTopic() {
	filter := "sensors/+/temperature"
	topic1 := "sensors/living-room/temperature"
	topic2 := "sensors/kitchen/humidity"

	fmt.Printf("%s matches %s: %v\n", topic1, filter, matchTopic(filter, topic1))
	fmt.Printf("%s matches %s: %v\n", topic2, filter, matchTopic(filter, topic2))

	filterHash := "sensors/#"
	topic3 := "sensors/basement/temperature/current"
	fmt.Printf("%s matches %s: %v\n", topic3, filterHash, matchTopic(filterHash, topic3))

	// Output:
	// sensors/living-room/temperature matches sensors/+/temperature: true
	// sensors/kitchen/humidity matches sensors/+/temperature: false
	// sensors/basement/temperature/current matches sensors/#: true
}

// MQTT-4.7.2-1: a Topic Filter starting with a wildcard must not match a
// Topic Name beginning with '$'.
func TestMatchTopicDollarPrefixExclusion(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		match  bool
	}{
		{"#", "$SYS/broker/version", false},
		{"+/monitor", "$SYS/monitor", false},
		{"+/+", "$SYS/broker", false},
		{"#", "a/b/c", true},
		{"+/monitor", "a/monitor", true},
		{"a/+/c", "a/$SYS/c", true},
	}

	for _, tt := range tests {
		t.Run(tt.filter+"_vs_"+tt.topic, func(t *testing.T) {
			if got := matchTopic(tt.filter, tt.topic); got != tt.match {
				t.Errorf("matchTopic(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.match)
			}
		})
	}
}

func TestValidatePublishTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		wantErr bool
	}{
		{"valid simple", "sensors/temperature", false},
		{"valid multi-level", "home/room1/sensor/temp", false},
		{"empty topic", "", true},
		{"wildcard plus", "sensors/+/temp", true},
		{"wildcard hash", "sensors/#", true},
		{"dollar prefix", "$SYS/uptime", true},
		{"null byte", "sensors\x00temp", true},
		{"too long", strings.Repeat("a", DefaultMaxTopicLength+1), true},
		{"max length ok", strings.Repeat("a", DefaultMaxTopicLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePublishTopic(tt.topic, 0)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePublishTopic() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSubscribeTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		wantErr bool
	}{
		{"valid simple", "sensors/temperature", false},
		{"valid single wildcard", "sensors/+/temp", false},
		{"valid multi wildcard", "sensors/#", false},
		{"valid multi wildcard deep", "sensors/room1/#", false},
		{"valid all wildcard", "#", false},
		{"valid multiple plus", "+/+/+", false},
		{"empty topic", "", true},
		{"invalid plus not alone", "sensors/+temp/data", true},
		{"invalid hash not alone", "sensors/#temp", true},
		{"invalid hash not last", "sensors/#/temp", true},
		{"null byte", "sensors\x00temp", true},
		{"too long", strings.Repeat("a", DefaultMaxTopicLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSubscribeTopic(tt.topic, 0)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSubscribeTopic() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"empty", 0, false},
		{"small", 100, false},
		{"1MB", 1024 * 1024, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := make([]byte, tt.size)
			err := validatePayload(payload, 0)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCustomTopicLimit(t *testing.T) {
	if err := validatePublishTopic("short", 10); err != nil {
		t.Errorf("expected short topic to pass, got error: %v", err)
	}
	if err := validatePublishTopic("this-is-too-long", 10); err == nil {
		t.Error("expected long topic to fail with custom limit")
	}
	if err := validateSubscribeTopic("short", 10); err != nil {
		t.Errorf("expected short topic filter to pass, got error: %v", err)
	}
	if err := validateSubscribeTopic("this-is-too-long", 10); err == nil {
		t.Error("expected long topic filter to fail with custom limit")
	}
}

func TestValidateClientID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"empty allowed", "", false},
		{"ascii ok", "client-123", false},
		{"non-ascii rejected", "client-é", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateClientID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateClientID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func FuzzMatchTopic(f *testing.F) {
	f.Add("sensors/+/temperature", "sensors/living-room/temperature")
	f.Add("sensors/#", "sensors/living-room/temperature")
	f.Add("+/+/+", "a/b/c")
	f.Add("#", "any/topic/here")

	f.Fuzz(func(t *testing.T, filter, topic string) {
		_ = matchTopic(filter, topic)
	})
}

func FuzzValidatePublishTopic(f *testing.F) {
	f.Add("sensors/temperature")
	f.Add("")
	f.Add("sensors/+/temp")
	f.Add("sensors/#")

	f.Fuzz(func(t *testing.T, topic string) {
		_ = validatePublishTopic(topic, 0)
	})
}
