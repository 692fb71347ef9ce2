package gantt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganttservice/internal/model"
)

var blockIDs = BlockingLinkIDs{Blocks: 2, BlockedBy: 3}

func blocks(id, blocker, blocked int) model.TaskLink {
	return model.TaskLink{ID: id, TaskID: blocker, OppositeTaskID: blocked, LinkTypeID: 2}
}

func blockedBy(id, blocked, blocker int) model.TaskLink {
	return model.TaskLink{ID: id, TaskID: blocked, OppositeTaskID: blocker, LinkTypeID: 3}
}

func TestApplyBlocking_ShiftsStartToBlockerEnd(t *testing.T) {
	bars := []Bar{
		bar(t, 1, "2024-03-01", "2024-03-10"),
		bar(t, 2, "2024-03-05", "2024-03-20"),
	}

	res := ApplyBlocking(bars, []model.TaskLink{blocks(1, 1, 2)}, blockIDs, false)

	require.Len(t, res.Bars, 2)
	assert.Equal(t, "2024-03-10", FormatDay(res.Bars[1].Start))
	assert.Equal(t, "2024-03-20", FormatDay(res.Bars[1].End))
	assert.Equal(t, bars[0], res.Bars[0])
	assert.Equal(t, []int{2}, res.Shifted)
	assert.Equal(t, Tags{BlockedStart: true}, res.Tags[2])
	assert.Equal(t, Tags{BlockerEnd: true}, res.Tags[1])
}

func TestApplyBlocking_LaterStartUnchanged(t *testing.T) {
	bars := []Bar{
		bar(t, 1, "2024-03-01", "2024-03-10"),
		bar(t, 2, "2024-03-12", "2024-03-20"),
	}

	res := ApplyBlocking(bars, []model.TaskLink{blockedBy(1, 2, 1)}, blockIDs, false)

	assert.Equal(t, bars, res.Bars)
	assert.Empty(t, res.Shifted)
	assert.True(t, res.Tags[2].BlockedStart)
	assert.True(t, res.Tags[1].BlockerEnd)
}

func TestApplyBlocking_EndRaisedWhenOvertaken(t *testing.T) {
	bars := []Bar{
		bar(t, 1, "2024-03-01", "2024-03-10"),
		bar(t, 2, "2024-03-02", "2024-03-04"),
	}

	res := ApplyBlocking(bars, []model.TaskLink{blocks(1, 1, 2)}, blockIDs, false)

	assert.Equal(t, "2024-03-10", FormatDay(res.Bars[1].Start))
	assert.Equal(t, "2024-03-10", FormatDay(res.Bars[1].End))
}

func TestApplyBlocking_LatestBlockerWins(t *testing.T) {
	bars := []Bar{
		bar(t, 1, "2024-03-01", "2024-03-10"),
		bar(t, 2, "2024-03-01", "2024-03-15"),
		bar(t, 3, "2024-03-01", "2024-03-30"),
	}
	links := []model.TaskLink{blocks(1, 1, 3), blockedBy(2, 3, 2)}

	res := ApplyBlocking(bars, links, blockIDs, false)

	assert.Equal(t, "2024-03-15", FormatDay(res.MinStart[3]))
	assert.Equal(t, "2024-03-15", FormatDay(res.Bars[2].Start))
}

func TestApplyBlocking_SingleHop(t *testing.T) {
	bars := []Bar{
		bar(t, 1, "2024-03-01", "2024-03-10"),
		bar(t, 2, "2024-03-01", "2024-03-05"),
		bar(t, 3, "2024-03-01", "2024-03-03"),
	}
	links := []model.TaskLink{blocks(1, 1, 2), blocks(2, 2, 3)}

	res := ApplyBlocking(bars, links, blockIDs, false)

	// 3 follows the pre-shift end of 2
	assert.Equal(t, "2024-03-05", FormatDay(res.Bars[2].Start))
	assert.Equal(t, Tags{BlockedStart: true, BlockerEnd: true}, res.Tags[2])
}

func TestApplyBlocking_CycleTerminates(t *testing.T) {
	bars := []Bar{
		bar(t, 1, "2024-03-01", "2024-03-10"),
		bar(t, 2, "2024-03-05", "2024-03-20"),
	}
	links := []model.TaskLink{blocks(1, 1, 2), blocks(2, 2, 1)}

	res := ApplyBlocking(bars, links, blockIDs, false)

	assert.Equal(t, "2024-03-20", FormatDay(res.Bars[0].Start))
	assert.Equal(t, "2024-03-20", FormatDay(res.Bars[0].End))
	assert.Equal(t, "2024-03-10", FormatDay(res.Bars[1].Start))
	assert.Equal(t, []int{1, 2}, res.Shifted)
}

func TestApplyBlocking_IgnoresInvisibleSelfAndCrossProject(t *testing.T) {
	other := bar(t, 3, "2024-03-01", "2024-04-01")
	other.ProjectID = 2
	bars := []Bar{
		bar(t, 1, "2024-03-01", "2024-03-10"),
		bar(t, 2, "2024-03-01", "2024-03-05"),
		other,
	}
	links := []model.TaskLink{
		blocks(1, 99, 1),
		blocks(2, 2, 2),
		blocks(3, 3, 1),
	}

	res := ApplyBlocking(bars, links, blockIDs, true)
	assert.Equal(t, bars, res.Bars)
	assert.Empty(t, res.Tags)

	res = ApplyBlocking(bars, links, blockIDs, false)
	assert.Equal(t, "2024-04-01", FormatDay(res.Bars[0].Start))
}

func TestBlockersOfAndBlockedBy(t *testing.T) {
	links := []model.TaskLink{
		blocks(1, 1, 2),
		blockedBy(2, 2, 3),
		blocks(3, 2, 4),
		blocks(4, 2, 2),
		parentOf(5, 5, 2),
	}

	assert.Equal(t, []int{1, 3}, BlockersOf(2, links, blockIDs))
	assert.Equal(t, []int{4}, BlockedBy(2, links, blockIDs))
	assert.Empty(t, BlockedBy(4, links, blockIDs))
}

func TestMinStart(t *testing.T) {
	_, ok := MinStart(nil)
	assert.False(t, ok)

	got, ok := MinStart([]time.Time{day(t, "2024-01-09"), day(t, "2024-01-20"), day(t, "2024-01-03")})
	assert.True(t, ok)
	assert.Equal(t, "2024-01-20", FormatDay(got))
}

func TestRaiseStart(t *testing.T) {
	min := day(t, "2024-01-10")

	got, changed := RaiseStart(nil, min)
	assert.True(t, changed)
	assert.Equal(t, min, got)

	got, changed = RaiseStart(dayPtr(t, "2024-01-05"), min)
	assert.True(t, changed)
	assert.Equal(t, min, got)

	got, changed = RaiseStart(dayPtr(t, "2024-01-10"), min)
	assert.False(t, changed)
	assert.Equal(t, min, got)

	got, changed = RaiseStart(dayPtr(t, "2024-02-01"), min)
	assert.False(t, changed)
	assert.Equal(t, "2024-02-01", FormatDay(got))
}
