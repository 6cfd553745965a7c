package main

import (
	"github.com/spf13/cobra"
)

// eventType is one entry in `novafnctl event-types list`: a static
// event-type string and the trigger it belongs to. The pubsub and bucket
// lists include the event types domain.CanonicalizeLegacyFlags assigns
// (internal/domain/trigger.go); "generic" labels entries for generic
// event triggers (domain.TriggerGeneric).
type eventType struct {
	Type    string `json:"type" yaml:"type"`
	Trigger string `json:"trigger" yaml:"trigger"`
}

var knownEventTypes = []eventType{
	{Type: "google.pubsub.topic.publish", Trigger: "pubsub"},
	{Type: "google.storage.object.finalize", Trigger: "bucket"},
	{Type: "google.storage.object.delete", Trigger: "bucket"},
	{Type: "google.storage.object.archive", Trigger: "bucket"},
	{Type: "google.storage.object.metadataUpdate", Trigger: "bucket"},
	{Type: "providers/cloud.firestore/eventTypes/document.write", Trigger: "generic"},
	{Type: "google.firebase.database.ref.write", Trigger: "generic"},
}

func eventTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event-types",
		Short: "Inspect the event types recognized by non-HTTP triggers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every recognized event type",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagOutput == "json" || flagJSON || flagYAML {
				return printer().Print(knownEventTypes)
			}
			for _, et := range knownEventTypes {
				cmd.Printf("%-55s %s\n", et.Type, et.Trigger)
			}
			return nil
		},
	})
	return cmd
}
