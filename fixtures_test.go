package eventcore_test

// Package-level fixtures shared by the root test files: a minimal
// "widget" aggregate exercising the generic engine without pulling in
// one of the examples/ domains.

import (
	"context"

	"github.com/defense-allies/eventcore"
)

type widgetEvent interface {
	eventcore.DomainEvent
	isWidgetEvent()
}

type widgetCreated struct {
	eventcore.BaseMessage
	WidgetID eventcore.Id
	Label    string
}

func (*widgetCreated) isWidgetEvent()               {}
func (e *widgetCreated) AggregateID() eventcore.Id  { return e.WidgetID }
func (*widgetCreated) Name() string                 { return "WidgetCreated" }

type widgetRenamed struct {
	eventcore.BaseMessage
	WidgetID eventcore.Id
	Label    string
}

func (*widgetRenamed) isWidgetEvent()             {}
func (e *widgetRenamed) AggregateID() eventcore.Id { return e.WidgetID }
func (*widgetRenamed) Name() string                { return "WidgetRenamed" }

type widgetState struct {
	Label   string
	created bool
}

func (s *widgetState) Apply(event widgetEvent) {
	switch e := event.(type) {
	case *widgetCreated:
		s.Label = e.Label
		s.created = true
	case *widgetRenamed:
		if s.created {
			s.Label = e.Label
		}
	}
}

type widgetRoot = eventcore.AggregateRoot[widgetState, widgetEvent, *widgetState]

func newWidgetRoot(id eventcore.Id) *widgetRoot {
	return eventcore.NewAggregateRoot[widgetState, widgetEvent, *widgetState](id)
}

func loadWidgetFromHistory(id eventcore.Id, history []eventcore.VersionedEvent) (*widgetRoot, error) {
	return eventcore.LoadFromHistory[widgetState, widgetEvent, *widgetState](id, history)
}

var errEmptyLabel = &domainError{"label must not be empty"}

type domainError struct{ msg string }

func (e *domainError) Error() string { return e.msg }

type createWidgetCmd struct {
	eventcore.BaseMessage
	WidgetID eventcore.Id
	Label    string
}

func (c createWidgetCmd) AggregateID() eventcore.Id { return c.WidgetID }

type createWidgetHandler struct{}

func (createWidgetHandler) Handle(ctx context.Context, state *widgetState, cmd createWidgetCmd, services any) ([]widgetEvent, struct{}, error) {
	if cmd.Label == "" {
		return nil, struct{}{}, errEmptyLabel
	}
	return []widgetEvent{&widgetCreated{WidgetID: cmd.WidgetID, Label: cmd.Label}}, struct{}{}, nil
}

type renameWidgetCmd struct {
	eventcore.BaseMessage
	WidgetID eventcore.Id
	Label    string
}

func (c renameWidgetCmd) AggregateID() eventcore.Id { return c.WidgetID }

type renameWidgetHandler struct{}

func (renameWidgetHandler) Handle(ctx context.Context, state *widgetState, cmd renameWidgetCmd, services any) ([]widgetEvent, struct{}, error) {
	if cmd.Label == "" {
		return nil, struct{}{}, errEmptyLabel
	}
	return []widgetEvent{&widgetRenamed{WidgetID: cmd.WidgetID, Label: cmd.Label}}, struct{}{}, nil
}

// misbehavedHandler emits an event stamped with the wrong aggregate id,
// exercising AggregateRoot's applyNewBatch guard.
type misbehavedHandler struct{}

func (misbehavedHandler) Handle(ctx context.Context, state *widgetState, cmd createWidgetCmd, services any) ([]widgetEvent, struct{}, error) {
	return []widgetEvent{&widgetCreated{WidgetID: eventcore.NewId(), Label: cmd.Label}}, struct{}{}, nil
}

// misbehavedMultiHandler emits a correctly-stamped event followed by one
// stamped with the wrong aggregate id, exercising the case where the
// bad event is not the first in the batch: applyNewBatch must reject
// the whole batch without having applied or buffered the leading good
// event.
type misbehavedMultiHandler struct{}

func (misbehavedMultiHandler) Handle(ctx context.Context, state *widgetState, cmd createWidgetCmd, services any) ([]widgetEvent, struct{}, error) {
	return []widgetEvent{
		&widgetCreated{WidgetID: cmd.WidgetID, Label: cmd.Label},
		&widgetRenamed{WidgetID: eventcore.NewId(), Label: "mismatched"},
	}, struct{}{}, nil
}
