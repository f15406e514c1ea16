package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	t.Parallel()

	id := UUIDToBytes(uuid.New())
	now := time.Now().UTC()

	tests := []struct {
		name    string
		evt     Event
		wantErr bool
	}{
		{name: "start ok", evt: Event{TaskID: id, TS: now, Stage: StageTaskStart}},
		{name: "progress ok", evt: Event{TaskID: id, TS: now, Stage: StageTaskProgress, Done: 5, Size: 10}},
		{name: "done ok", evt: Event{TaskID: id, TS: now, Stage: StageTaskDone, Pages: 10, Words: 100}},
		{name: "error ok", evt: Event{TaskID: id, TS: now, Stage: StageTaskError, Note: "exit status 1"}},
		{name: "missing id", evt: Event{TS: now, Stage: StageTaskStart}, wantErr: true},
		{name: "missing ts", evt: Event{TaskID: id, Stage: StageTaskStart}, wantErr: true},
		{name: "progress zero size", evt: Event{TaskID: id, TS: now, Stage: StageTaskProgress, Done: 1}, wantErr: true},
		{name: "progress done too big", evt: Event{TaskID: id, TS: now, Stage: StageTaskProgress, Done: 11, Size: 10}, wantErr: true},
		{name: "error without note", evt: Event{TaskID: id, TS: now, Stage: StageTaskError}, wantErr: true},
		{name: "unknown stage", evt: Event{TaskID: id, TS: now, Stage: "NOPE"}, wantErr: true},
		{name: "negative duration", evt: Event{TaskID: id, TS: now, Stage: StageTaskStart, Dur: -1}, wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.evt.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTaskUUIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	evt := Event{TaskID: UUIDToBytes(id)}
	assert.Equal(t, id, evt.TaskUUID())
}
