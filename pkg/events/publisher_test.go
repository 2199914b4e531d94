package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_PublishTaskStatusSetsTaskIDAndTimestamp(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(TaskChannel("t1"))
	defer cancel()

	p := NewPublisher(bus)
	p.PublishTaskStatus("t1", TaskStatusPayload{Status: "completed"})

	select {
	case evt := <-ch:
		payload, ok := evt.Payload.(TaskStatusPayload)
		require.True(t, ok)
		assert.Equal(t, "t1", payload.TaskID)
		assert.Equal(t, "completed", payload.Status)
		assert.NotEmpty(t, payload.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublisher_PublishAdmissionDeniedRoutesToTaskChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(TaskChannel("t2"))
	defer cancel()

	p := NewPublisher(bus)
	p.PublishAdmissionDenied("t2", AdmissionDeniedPayload{Reason: "queue_full"})

	select {
	case evt := <-ch:
		payload, ok := evt.Payload.(AdmissionDeniedPayload)
		require.True(t, ok)
		assert.Equal(t, "t2", payload.TaskID)
		assert.Equal(t, "queue_full", payload.Reason)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublisher_PublishWorkerHealthGoesToGlobalChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(GlobalChannel)
	defer cancel()

	p := NewPublisher(bus)
	p.PublishWorkerHealth(WorkerHealthPayload{WorkerID: "w1", Health: "offline"})

	select {
	case evt := <-ch:
		assert.Equal(t, EventWorkerHealth, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
