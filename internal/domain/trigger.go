package domain

// TriggerKind identifies which tagged variant a Trigger holds.
type TriggerKind string

const (
	TriggerHTTP    TriggerKind = "http"
	TriggerPubSub  TriggerKind = "pubsub"
	TriggerBucket  TriggerKind = "bucket"
	TriggerGeneric TriggerKind = "event"
)

func (k TriggerKind) IsValid() bool {
	switch k {
	case TriggerHTTP, TriggerPubSub, TriggerBucket, TriggerGeneric:
		return true
	}
	return false
}

// Trigger is a tagged variant: exactly one of the trigger kinds applies to a
// Function. Kind selects which of the remaining fields are meaningful.
type Trigger struct {
	Kind TriggerKind `json:"kind"`

	// EventType is the fully-qualified event name, e.g.
	// "google.storage.object.finalize" or "google.pubsub.topic.publish".
	// Always set for Pub/Sub, bucket and generic triggers; empty for HTTP.
	EventType string `json:"eventType,omitempty"`

	// Resource names the Pub/Sub topic, storage bucket, or generic event
	// resource this trigger fires on. Empty for HTTP.
	Resource string `json:"resource,omitempty"`

	// Service is an optional originating service name for generic event
	// triggers (e.g. "storage.googleapis.com").
	Service string `json:"service,omitempty"`
}

// CanonicalizeLegacyFlags converts the legacy CLI flags
// --trigger-http/--trigger-topic/--trigger-bucket into a single Trigger.
// Exactly one of the three strings may be non-empty; httpTrigger set to
// true with empty topic/bucket selects the HTTP variant.
func CanonicalizeLegacyFlags(httpTrigger bool, topic, bucket, eventType, resource, service string) (Trigger, error) {
	set := 0
	if httpTrigger {
		set++
	}
	if topic != "" {
		set++
	}
	if bucket != "" {
		set++
	}
	if eventType != "" && topic == "" && bucket == "" && !httpTrigger {
		set++
	}
	if set != 1 {
		return Trigger{}, errTriggerCardinality
	}

	switch {
	case httpTrigger:
		return Trigger{Kind: TriggerHTTP}, nil
	case topic != "":
		return Trigger{Kind: TriggerPubSub, EventType: "google.pubsub.topic.publish", Resource: topic}, nil
	case bucket != "":
		return Trigger{Kind: TriggerBucket, EventType: "google.storage.object.finalize", Resource: bucket, Service: service}, nil
	default:
		return Trigger{Kind: TriggerGeneric, EventType: eventType, Resource: resource, Service: service}, nil
	}
}
