package conveyor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJournalOrdersByTimestamp(t *testing.T) {
	j := NewJournal(10)
	j.Record(MissEvent{At: 300, Task: "controller"})
	j.Record(MissEvent{At: 100, Task: "sampler"})
	j.Record(MissEvent{At: 200, Task: "sort"})

	events := j.Events()
	require.Len(t, events, 3)
	require.Equal(t, []string{"sampler", "sort", "controller"},
		[]string{events[0].Task, events[1].Task, events[2].Task})
}

func TestJournalEvictsOldest(t *testing.T) {
	j := NewJournal(2)
	j.Record(MissEvent{At: 100, Task: "a"})
	j.Record(MissEvent{At: 200, Task: "b"})
	j.Record(MissEvent{At: 300, Task: "c"})

	require.Equal(t, 2, j.Len())
	events := j.Events()
	require.Equal(t, int64(200), events[0].At)
	require.Equal(t, int64(300), events[1].At)
}

func TestJournalSameTimestamp(t *testing.T) {
	j := NewJournal(10)
	j.Record(MissEvent{At: 100, Task: "a"})
	j.Record(MissEvent{At: 100, Task: "b"})
	require.Equal(t, 2, j.Len())
	events := j.Events()
	require.Equal(t, "a", events[0].Task)
	require.Equal(t, "b", events[1].Task)
}
