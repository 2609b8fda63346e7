package planner

import (
	"math"
	"sort"
	"time"

	"github.com/phrazzld/augur/internal/domain"
)

// Snapshot is the per-user state the engine ranks: tasks, goals, and the
// links between them. Archived tasks and non-active goals are ignored.
type Snapshot struct {
	Tasks []*domain.Task
	Goals []*domain.Goal
	Links []*domain.EntityLink
}

// Config carries the scoring weights and window sizes.
type Config struct {
	// TopNToday is how many ready tasks today_plan holds
	TopNToday int

	// TopNNext is how many ready tasks next_actions holds
	TopNNext int

	// WeightUrgency scales due-date pressure, doubled when overdue
	WeightUrgency float64

	// WeightImpact scales the 1-5 impact score
	WeightImpact float64

	// WeightGoalAlignment rewards links into active goals
	WeightGoalAlignment float64

	// WeightStaleness rewards tasks untouched for over a week
	WeightStaleness float64
}

// DefaultConfig returns the standard weights and window sizes.
func DefaultConfig() Config {
	return Config{
		TopNToday:           6,
		TopNNext:            8,
		WeightUrgency:       4.0,
		WeightImpact:        3.0,
		WeightGoalAlignment: 2.0,
		WeightStaleness:     1.0,
	}
}

// quickWinBonus is the flat boost for priority-4 tasks.
const quickWinBonus = 0.5

// missingPriority sorts tasks without a priority after priority 1-4.
const missingPriority = 99

// dueDateMax stands in for a missing due date when ordering; every real
// date sorts before it.
var dueDateMax = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// scoredTask pairs a ready task with its computed score and factors.
type scoredTask struct {
	task    *domain.Task
	score   float64
	factors []string
}

// blockedTask pairs a blocked task id with its reasons, in evaluation
// order.
type blockedTask struct {
	taskID  string
	reasons []string
}

// Build produces the plan payload for one snapshot. It is pure: identical
// snapshots with an identical now yield byte-identical Marshal output.
func Build(snap Snapshot, now time.Time, cfg Config) Payload {
	topToday := cfg.TopNToday
	if topToday < 0 {
		topToday = 0
	}
	topNext := cfg.TopNNext
	if topNext < 0 {
		topNext = 0
	}

	tasks := liveTasks(snap.Tasks)
	readyIDs, blocked := detectBlocked(tasks, snap.Links)

	ready := make(map[string]bool, len(readyIDs))
	for _, id := range readyIDs {
		ready[id] = true
	}

	activeGoals := make(map[string]bool, len(snap.Goals))
	for _, g := range snap.Goals {
		if g.Status == domain.GoalStatusActive {
			activeGoals[g.ID] = true
		}
	}

	scored := make([]scoredTask, 0, len(readyIDs))
	for _, task := range tasks {
		if !ready[task.ID] {
			continue
		}
		score, factors := scoreTask(task, snap.Links, activeGoals, now, cfg)
		scored = append(scored, scoredTask{task: task, score: score, factors: factors})
	}
	sortScored(scored)

	today := make([]Item, 0, topToday)
	why := make([]Rationale, 0, topToday)
	for i := 0; i < len(scored) && i < topToday; i++ {
		st := scored[i]
		today = append(today, Item{
			TaskID: st.task.ID,
			Rank:   i + 1,
			Title:  st.task.Title,
			Score:  st.score,
		})
		factors := st.factors
		if len(factors) == 0 {
			factors = []string{"dependency_ready"}
		}
		why = append(why, Rationale{TaskID: st.task.ID, Factors: factors})
	}

	next := make([]Item, 0, topNext)
	for i := topToday; i < len(scored) && i < topToday+topNext; i++ {
		st := scored[i]
		next = append(next, Item{
			TaskID: st.task.ID,
			Rank:   i + 1,
			Title:  st.task.Title,
			Score:  st.score,
		})
	}

	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	blockedItems := make([]BlockedItem, 0, len(blocked))
	for _, b := range blocked {
		task, ok := byID[b.taskID]
		if !ok {
			continue
		}
		blockedItems = append(blockedItems, BlockedItem{
			TaskID:    b.taskID,
			Title:     task.Title,
			BlockedBy: b.reasons,
		})
	}

	return Payload{
		SchemaVersion: SchemaVersion,
		PlanWindow:    PlanWindowToday,
		GeneratedAt:   now.UTC().Format(generatedAtLayout),
		TodayPlan:     today,
		NextActions:   next,
		BlockedItems:  blockedItems,
		WhyThisOrder:  why,
		Assumptions:   []string{},
	}
}

// liveTasks drops archived tasks; they neither rank nor resolve
// dependencies.
func liveTasks(tasks []*domain.Task) []*domain.Task {
	live := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != domain.TaskStatusArchived {
			live = append(live, t)
		}
	}
	return live
}

// detectBlocked evaluates open and blocked tasks against the blocking
// rules: an explicit blocked status, a depends_on link to an unfinished
// task, or a blocks link from an unfinished task. Links into tasks missing
// from the snapshot still block and render a placeholder title. Ready
// tasks are open with zero reasons.
func detectBlocked(tasks []*domain.Task, links []*domain.EntityLink) ([]string, []blockedTask) {
	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var readyIDs []string
	var blocked []blockedTask

	for _, task := range tasks {
		if task.Status != domain.TaskStatusOpen && task.Status != domain.TaskStatusBlocked {
			continue
		}

		var reasons []string
		if task.Status == domain.TaskStatusBlocked {
			reasons = append(reasons, "Task status is explicitly set to 'blocked'.")
		}

		for _, link := range links {
			if link.LinkType == domain.LinkTypeDependsOn &&
				link.FromEntityType == domain.EntityTypeTask &&
				link.FromEntityID == task.ID {
				dep := byID[link.ToEntityID]
				if dep == nil || dep.Status != domain.TaskStatusDone {
					reasons = append(reasons, "Depends on unfinished task: "+taskTitle(dep, link.ToEntityID))
				}
			}

			if link.LinkType == domain.LinkTypeBlocks &&
				link.ToEntityType == domain.EntityTypeTask &&
				link.ToEntityID == task.ID {
				blocker := byID[link.FromEntityID]
				if blocker == nil || blocker.Status != domain.TaskStatusDone {
					reasons = append(reasons, "Blocked by unfinished task: "+taskTitle(blocker, link.FromEntityID))
				}
			}
		}

		switch {
		case len(reasons) > 0:
			blocked = append(blocked, blockedTask{taskID: task.ID, reasons: reasons})
		case task.Status == domain.TaskStatusOpen:
			readyIDs = append(readyIDs, task.ID)
		}
	}

	return readyIDs, blocked
}

// taskTitle renders a link target's title, or a placeholder when the task
// is not in the snapshot.
func taskTitle(task *domain.Task, id string) string {
	if task == nil {
		return "Unknown Task " + id
	}
	return task.Title
}

// scoreTask computes the weighted score and factor list for one ready
// task.
func scoreTask(task *domain.Task, links []*domain.EntityLink, activeGoals map[string]bool, now time.Time, cfg Config) (float64, []string) {
	score := 0.0
	var factors []string

	if task.DueDate != nil {
		diff := daysBetweenDates(now, *task.DueDate)
		switch {
		case diff < 0:
			score += cfg.WeightUrgency * 2
			factors = append(factors, "overdue")
		case diff <= 2:
			score += cfg.WeightUrgency
			factors = append(factors, "due_soon")
		}
	}

	if task.ImpactScore != nil && *task.ImpactScore > 0 {
		score += float64(*task.ImpactScore) / 5.0 * cfg.WeightImpact
		if *task.ImpactScore >= 4 {
			factors = append(factors, "high_impact")
		}
	}

	for _, link := range links {
		if link.FromEntityID != task.ID || link.FromEntityType != domain.EntityTypeTask {
			continue
		}
		if link.LinkType != domain.LinkTypeSupportsGoal && link.ToEntityType != domain.EntityTypeGoal {
			continue
		}
		if activeGoals[link.ToEntityID] {
			score += cfg.WeightGoalAlignment
			factors = append(factors, "goal_alignment")
			break
		}
	}

	if staleDays := int(now.Sub(task.UpdatedAt) / (24 * time.Hour)); staleDays > 7 {
		score += math.Min(float64(staleDays)/30.0, 1.0) * cfg.WeightStaleness
		factors = append(factors, "stale")
	}

	if task.Priority != nil && *task.Priority == 4 {
		score += quickWinBonus
		factors = append(factors, "quick_win")
	}

	return score, factors
}

// daysBetweenDates counts whole calendar days from now's UTC date to the
// target's UTC date; negative when the target is already past.
func daysBetweenDates(now, target time.Time) int {
	return int(midnightUTC(target).Sub(midnightUTC(now)) / (24 * time.Hour))
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sortScored orders candidates by score descending, then due date
// ascending (missing last), priority number ascending (missing as 99),
// updated_at ascending, and finally id ascending, which makes the order
// total.
func sortScored(scored []scoredTask) {
	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		aDue, bDue := dueOrMax(a.task), dueOrMax(b.task)
		if !aDue.Equal(bDue) {
			return aDue.Before(bDue)
		}
		aPri, bPri := priorityOrMissing(a.task), priorityOrMissing(b.task)
		if aPri != bPri {
			return aPri < bPri
		}
		if !a.task.UpdatedAt.Equal(b.task.UpdatedAt) {
			return a.task.UpdatedAt.Before(b.task.UpdatedAt)
		}
		return a.task.ID < b.task.ID
	})
}

func dueOrMax(t *domain.Task) time.Time {
	if t.DueDate == nil {
		return dueDateMax
	}
	return *t.DueDate
}

func priorityOrMissing(t *domain.Task) int {
	if t.Priority == nil {
		return missingPriority
	}
	return *t.Priority
}
