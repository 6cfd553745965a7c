package main

import (
	"errors"
	"testing"
	"time"

	"github.com/novafn/novafn/internal/clientconfig"
	"github.com/novafn/novafn/internal/domain"
)

func TestFunctionURLOnlyForHTTPTrigger(t *testing.T) {
	cctx := &cliContext{active: clientconfig.ActiveServer{Host: "localhost", RestPort: 9999}}

	httpFn := domain.Function{Project: "p", Location: "l", ShortName: "hello", Trigger: domain.Trigger{Kind: domain.TriggerHTTP}}
	if got, want := functionURL(cctx, httpFn), "http://localhost:9999/p/l/hello"; got != want {
		t.Fatalf("functionURL = %q, want %q", got, want)
	}

	pubsubFn := domain.Function{Trigger: domain.Trigger{Kind: domain.TriggerPubSub}}
	if got := functionURL(cctx, pubsubFn); got != "" {
		t.Fatalf("functionURL for non-HTTP trigger = %q, want empty", got)
	}
}

func TestToRowMapsTriggerAndResource(t *testing.T) {
	cctx := &cliContext{active: clientconfig.ActiveServer{Host: "localhost", RestPort: 8080}}
	fn := domain.Function{
		Name: "projects/p/locations/l/functions/hello", ShortName: "hello", Runtime: "echo",
		Trigger:   domain.Trigger{Kind: domain.TriggerBucket, Resource: "my-bucket"},
		UpdatedAt: time.Unix(1700000000, 0).UTC(),
	}
	row := toRow(cctx, fn)
	if row.Name != fn.Name || row.Trigger != "bucket" || row.Resource != "my-bucket" {
		t.Fatalf("got %+v", row)
	}
}

func TestValidationErrorUnwraps(t *testing.T) {
	base := validationErrorf("bad input: %s", "x")
	if base.Error() != "bad input: x" {
		t.Fatalf("Error() = %q", base.Error())
	}
	if inner := errors.Unwrap(base); inner == nil || inner.Error() != "bad input: x" {
		t.Fatalf("Unwrap() = %v, want the wrapped error", inner)
	}
}

func TestWaitForOperationReturnsImmediatelyWhenDone(t *testing.T) {
	op := domain.Operation{Name: "operations/x", Done: true}
	got, err := waitForOperation(nil, nil, op)
	if err != nil {
		t.Fatalf("waitForOperation: %v", err)
	}
	if !got.Done {
		t.Fatalf("expected Done operation to be returned unchanged")
	}
}

func TestKnownEventTypesNonEmpty(t *testing.T) {
	if len(knownEventTypes) == 0 {
		t.Fatalf("expected at least one known event type")
	}
	for _, et := range knownEventTypes {
		if et.Type == "" || et.Trigger == "" {
			t.Fatalf("incomplete event type entry: %+v", et)
		}
	}
}
