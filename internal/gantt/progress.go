package gantt

import "ganttservice/internal/model"

// Progress is the completion percentage shown on a bar: completed subtasks
// when the task has any, else the score when it lies in 0..100, else 0.
func Progress(t model.Task) int {
	if t.SubtasksTotal > 0 {
		done := t.SubtasksDone
		if done < 0 {
			done = 0
		}
		return clampPercent(done * 100 / t.SubtasksTotal)
	}
	if t.Score != nil && *t.Score >= 0 && *t.Score <= 100 {
		return *t.Score
	}
	return 0
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
