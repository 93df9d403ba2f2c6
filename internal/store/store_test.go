package store

import (
	"path/filepath"
	"testing"
	"time"

	"taskgrid/pkg/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUserRoundTrip(t *testing.T) {
	db := testDB(t)

	u := &models.User{
		ID:       "u1",
		Username: "alice",
		IsActive: true,
		NotificationPrefs: map[models.NotificationKind]bool{
			models.NotifyDependencyReady: false,
		},
	}
	if err := db.CreateUser(u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := db.GetUser("u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got == nil || got.Username != "alice" || !got.IsActive {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.WantsNotification(models.NotifyDependencyReady) {
		t.Error("expected dependency_ready pref off after round trip")
	}
	if !got.WantsNotification(models.NotifyTaskAssigned) {
		t.Error("expected unset pref to default on")
	}

	missing, err := db.GetUser("ghost")
	if err != nil {
		t.Fatalf("get missing user: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing user, got %+v", missing)
	}
}

func TestUserUniqueUsername(t *testing.T) {
	db := testDB(t)
	if err := db.CreateUser(&models.User{ID: "u1", Username: "alice", IsActive: true}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	err := db.CreateUser(&models.User{ID: "u2", Username: "alice", IsActive: true})
	if !IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	db := testDB(t)

	p := &models.Project{ID: "p1", Name: "Launch", Slug: "launch", Status: models.ProjectActive, CreatedAt: time.Now()}
	if err := db.CreateProject(p); err != nil {
		t.Fatalf("create project: %v", err)
	}

	got, err := db.GetProjectBySlug("launch")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got == nil || got.ID != "p1" || got.Status != models.ProjectActive {
		t.Fatalf("unexpected project: %+v", got)
	}

	got.Status = models.ProjectDeleted
	if err := db.UpdateProject(got); err != nil {
		t.Fatalf("update project: %v", err)
	}
	got, err = db.GetProject("p1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Status != models.ProjectDeleted {
		t.Errorf("expected deleted status, got %s", got.Status)
	}
}

func TestRolesAndMembers(t *testing.T) {
	db := testDB(t)

	if err := db.SeedDefaultRoles(); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	// Seeding twice must not fail.
	if err := db.SeedDefaultRoles(); err != nil {
		t.Fatalf("reseed roles: %v", err)
	}

	role, err := db.GetRole(models.RoleManager)
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role == nil || !role.CanEditAnyTask || role.CanDeleteProject {
		t.Fatalf("unexpected manager role: %+v", role)
	}

	now := time.Now()
	m := &models.ProjectMember{ProjectID: "p1", UserID: "u1", Role: models.RoleDeveloper, IsActive: true, AddedAt: now, UpdatedAt: now}
	if err := db.UpsertMember(m); err != nil {
		t.Fatalf("upsert member: %v", err)
	}

	m.Role = models.RoleManager
	if err := db.UpsertMember(m); err != nil {
		t.Fatalf("re-upsert member: %v", err)
	}

	got, err := db.GetMember("p1", "u1")
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if got == nil || got.Role != models.RoleManager {
		t.Fatalf("unexpected member: %+v", got)
	}

	members, err := db.ListMembers("p1")
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("expected 1 member, got %d", len(members))
	}
}

func TestTaskRoundTrip(t *testing.T) {
	db := testDB(t)
	now := time.Now().Truncate(time.Second)
	deadline := now.Add(48 * time.Hour)

	task := &models.Task{
		ID:        "t1",
		ProjectID: "p1",
		Name:      "Write migration",
		Status:    models.StatusTodo,
		CreatorID: "u1",
		CreatedAt: now,
		UpdatedAt: now,
		Deadline:  &deadline,
		Priority:  models.PriorityHigh,
		Metadata:  []byte(`{"source":"import"}`),
	}
	if err := db.CreateTask(task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := db.GetTask("t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got == nil || got.Name != "Write migration" || got.Status != models.StatusTodo {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.AssigneeID != "" {
		t.Errorf("expected empty assignee, got %q", got.AssigneeID)
	}
	if got.Deadline == nil || !got.Deadline.Equal(deadline.UTC()) {
		t.Errorf("expected deadline %v, got %v", deadline.UTC(), got.Deadline)
	}
	if string(got.Metadata) != `{"source":"import"}` {
		t.Errorf("unexpected metadata %q", got.Metadata)
	}

	started := now.Add(time.Hour)
	got.Status = models.StatusInProgress
	got.StartedAt = &started
	got.AssigneeID = "u2"
	if err := db.UpdateTask(got); err != nil {
		t.Fatalf("update task: %v", err)
	}

	got, err = db.GetTask("t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != models.StatusInProgress || got.StartedAt == nil || got.AssigneeID != "u2" {
		t.Fatalf("unexpected task after update: %+v", got)
	}

	if err := db.DeleteTask("t1"); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	got, err = db.GetTask("t1")
	if err != nil {
		t.Fatalf("get deleted task: %v", err)
	}
	if got != nil {
		t.Errorf("expected task deleted, got %+v", got)
	}
}

func TestProjectTasksFilterAndOrder(t *testing.T) {
	db := testDB(t)
	now := time.Now().Truncate(time.Second)

	add := func(id string, priority int, status models.Status, assignee string, age time.Duration) {
		t.Helper()
		task := &models.Task{
			ID: id, ProjectID: "p1", Name: id, Status: status,
			AssigneeID: assignee, CreatorID: "u1",
			CreatedAt: now.Add(-age), UpdatedAt: now, Priority: priority,
		}
		if err := db.CreateTask(task); err != nil {
			t.Fatalf("create task %s: %v", id, err)
		}
	}

	add("low-old", models.PriorityNormal, models.StatusTodo, "u2", 2*time.Hour)
	add("low-new", models.PriorityNormal, models.StatusTodo, "", time.Hour)
	add("urgent", models.PriorityUrgent, models.StatusInProgress, "u2", 3*time.Hour)

	tasks, err := db.ProjectTasks("p1", TaskFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	// Highest priority first, then newest.
	if tasks[0].ID != "urgent" || tasks[1].ID != "low-new" || tasks[2].ID != "low-old" {
		t.Errorf("unexpected order: %s, %s, %s", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}

	tasks, err = db.ProjectTasks("p1", TaskFilter{Status: models.StatusTodo, AssigneeID: "u2"})
	if err != nil {
		t.Fatalf("list filtered tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "low-old" {
		t.Errorf("unexpected filtered tasks: %+v", tasks)
	}

	tasks, err = db.ProjectTasks("p1", TaskFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list paged tasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "low-new" {
		t.Errorf("unexpected page: %+v", tasks)
	}
}

func TestProjectTaskStats(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	past := now.Add(-time.Hour)

	tasks := []*models.Task{
		{ID: "t1", ProjectID: "p1", Name: "a", Status: models.StatusTodo, AssigneeID: "u1", CreatedAt: now, UpdatedAt: now, Deadline: &past},
		{ID: "t2", ProjectID: "p1", Name: "b", Status: models.StatusCompleted, AssigneeID: "u1", CreatedAt: now, UpdatedAt: now, Deadline: &past},
		{ID: "t3", ProjectID: "p1", Name: "c", Status: models.StatusTodo, CreatedAt: now, UpdatedAt: now},
		{ID: "t4", ProjectID: "p2", Name: "d", Status: models.StatusTodo, CreatedAt: now, UpdatedAt: now},
	}
	for _, task := range tasks {
		if err := db.CreateTask(task); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	stats, err := db.ProjectTaskStats("p1", now)
	if err != nil {
		t.Fatalf("task stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("expected 3 tasks, got %d", stats.Total)
	}
	if stats.ByStatus[models.StatusTodo] != 2 || stats.ByStatus[models.StatusCompleted] != 1 {
		t.Errorf("unexpected status counts: %v", stats.ByStatus)
	}
	if stats.ByAssignee["u1"] != 2 {
		t.Errorf("unexpected assignee counts: %v", stats.ByAssignee)
	}
	// t2 is final, so only t1 counts as overdue.
	if stats.Overdue != 1 {
		t.Errorf("expected 1 overdue, got %d", stats.Overdue)
	}
}

func TestUserStats(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	tasks := []*models.Task{
		{ID: "t1", ProjectID: "p1", Name: "a", Status: models.StatusCompleted, AssigneeID: "u1", CreatorID: "u1", CreatedAt: now, UpdatedAt: now},
		{ID: "t2", ProjectID: "p1", Name: "b", Status: models.StatusInProgress, AssigneeID: "u1", CreatorID: "u2", CreatedAt: now, UpdatedAt: now},
		{ID: "t3", ProjectID: "p1", Name: "c", Status: models.StatusTodo, AssigneeID: "u2", CreatorID: "u1", CreatedAt: now, UpdatedAt: now},
	}
	for _, task := range tasks {
		if err := db.CreateTask(task); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	stats, err := db.UserStats("u1", now)
	if err != nil {
		t.Fatalf("user stats: %v", err)
	}
	if stats.Assigned != 2 || stats.Created != 2 {
		t.Errorf("expected assigned=2 created=2, got %+v", stats)
	}
	if stats.Completed != 1 || stats.InProgress != 1 {
		t.Errorf("expected completed=1 in_progress=1, got %+v", stats)
	}
	if stats.CompletionRate != 0.5 {
		t.Errorf("expected completion rate 0.5, got %f", stats.CompletionRate)
	}
}

func TestDependencyUniqueEdge(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	d := &models.Dependency{ID: "d1", ProjectID: "p1", SourceTaskID: "t1", TargetTaskID: "t2", Type: models.DependencyTypeSimple, CreatedAt: now}
	if err := db.CreateDependency(d); err != nil {
		t.Fatalf("create dependency: %v", err)
	}

	dup := &models.Dependency{ID: "d2", ProjectID: "p1", SourceTaskID: "t1", TargetTaskID: "t2", Type: models.DependencyTypeSimple, CreatedAt: now}
	if err := db.CreateDependency(dup); !IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}

func TestDependencyQueries(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	deps := []*models.Dependency{
		{ID: "d1", ProjectID: "p1", SourceTaskID: "t1", TargetTaskID: "t3", Type: models.DependencyTypeSimple, CreatedAt: now},
		{ID: "d2", ProjectID: "p1", SourceTaskID: "t2", TargetTaskID: "t3", Type: models.DependencyTypeSimple, CreatedAt: now.Add(time.Second)},
		{ID: "d3", ProjectID: "p1", SourceTaskID: "t3", TargetTaskID: "t4", Type: models.DependencyTypeSimple, CreatedAt: now.Add(2 * time.Second)},
	}
	for _, d := range deps {
		if err := db.CreateDependency(d); err != nil {
			t.Fatalf("create dependency: %v", err)
		}
	}

	in, err := db.IncomingDependencies("t3")
	if err != nil {
		t.Fatalf("incoming: %v", err)
	}
	if len(in) != 2 || in[0].ID != "d1" || in[1].ID != "d2" {
		t.Errorf("unexpected incoming edges: %+v", in)
	}

	out, err := db.OutgoingDependencies("t3")
	if err != nil {
		t.Fatalf("outgoing: %v", err)
	}
	if len(out) != 1 || out[0].ID != "d3" {
		t.Errorf("unexpected outgoing edges: %+v", out)
	}

	all, err := db.ProjectDependencies("p1")
	if err != nil {
		t.Fatalf("project dependencies: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 edges, got %d", len(all))
	}

	if err := db.DeleteTaskDependencies("t3"); err != nil {
		t.Fatalf("delete task dependencies: %v", err)
	}
	all, err = db.ProjectDependencies("p1")
	if err != nil {
		t.Fatalf("project dependencies: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected all edges removed, got %+v", all)
	}
}

func TestDependencyActionsOrdering(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	// z2 and a3 share an execute_order; their ids sort against their
	// insertion order, so the tie must break on creation time.
	actions := []*models.DependencyAction{
		{ID: "z2", DependencyID: "d1", Type: models.ActionNotifyCreator, ExecuteOrder: 1, IsActive: true, CreatedAt: now},
		{ID: "a1", DependencyID: "d1", Type: models.ActionNotifyAssignee, ExecuteOrder: 0, IsActive: true, CreatedAt: now},
		{ID: "a3", DependencyID: "d1", Type: models.ActionChangeStatus, TargetStatus: models.StatusInProgress, ExecuteOrder: 1, IsActive: false, CreatedAt: now.Add(time.Second)},
	}
	for _, a := range actions {
		if err := db.CreateDependencyAction(a); err != nil {
			t.Fatalf("create action: %v", err)
		}
	}

	got, err := db.ListDependencyActions("d1")
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(got))
	}
	// execute_order ascending, insertion order as tie-break.
	if got[0].ID != "a1" || got[1].ID != "z2" || got[2].ID != "a3" {
		t.Errorf("unexpected order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[2].TargetStatus != models.StatusInProgress {
		t.Errorf("unexpected target status: %q", got[2].TargetStatus)
	}

	if err := db.DeleteDependencyAction("z2"); err != nil {
		t.Fatalf("delete action: %v", err)
	}
	got, err = db.ListDependencyActions("d1")
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 actions, got %d", len(got))
	}
}

func TestEventLog(t *testing.T) {
	db := testDB(t)
	now := time.Now().Truncate(time.Second)

	events := []*models.Event{
		{ID: "e1", ProjectID: "p1", TaskID: "t1", UserID: "u1", Type: models.EventCreated, CreatedAt: now},
		{ID: "e2", ProjectID: "p1", TaskID: "t1", UserID: "u1", Type: models.EventStatusChanged, OldValue: "todo", NewValue: "in_progress", CreatedAt: now.Add(time.Second)},
	}
	for _, e := range events {
		if err := db.AppendEvent(e); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}

	got, err := db.TaskEvents("t1", 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != models.EventCreated || got[1].NewValue != "in_progress" {
		t.Errorf("unexpected events: %+v", got)
	}

	got, err = db.TaskEvents("t1", 1)
	if err != nil {
		t.Fatalf("list limited events: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 event, got %d", len(got))
	}
}

func TestScheduledClaimAndMark(t *testing.T) {
	db := testDB(t)
	now := time.Now().Truncate(time.Second)

	rows := []*models.ScheduledAction{
		{ID: "s1", ProjectID: "p1", TaskID: "t1", Type: models.ScheduledDeadlineApproaching, ScheduledFor: now.Add(-2 * time.Minute), Status: models.ScheduledPending, CreatedAt: now},
		{ID: "s2", ProjectID: "p1", TaskID: "t1", Type: models.ScheduledDelayedNotification, ScheduledFor: now.Add(-time.Minute), Status: models.ScheduledPending, CreatedAt: now},
		{ID: "s3", ProjectID: "p1", TaskID: "t2", Type: models.ScheduledDeadlineApproaching, ScheduledFor: now.Add(time.Hour), Status: models.ScheduledPending, CreatedAt: now},
	}
	for _, a := range rows {
		if err := db.CreateScheduledAction(a); err != nil {
			t.Fatalf("create scheduled action: %v", err)
		}
	}

	claimed, err := db.ClaimDueScheduledActions(now, 10)
	if err != nil {
		t.Fatalf("claim due: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("expected 2 claimed, got %d", len(claimed))
	}
	// Oldest due first.
	if claimed[0].ID != "s1" || claimed[1].ID != "s2" {
		t.Errorf("unexpected claim order: %s, %s", claimed[0].ID, claimed[1].ID)
	}
	for _, c := range claimed {
		if c.Status != models.ScheduledProcessing {
			t.Errorf("expected processing, got %s", c.Status)
		}
		if c.ClaimedAt == nil {
			t.Errorf("expected claim stamp on %s", c.ID)
		}
	}

	// A second claim sees nothing: the rows are processing now.
	again, err := db.ClaimDueScheduledActions(now, 10)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected no rows on second claim, got %d", len(again))
	}

	if err := db.MarkScheduledActionDone("s1", models.ScheduledCompleted, now, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	got, err := db.GetScheduledAction("s1")
	if err != nil {
		t.Fatalf("get scheduled action: %v", err)
	}
	if got.Status != models.ScheduledCompleted || got.ExecutedAt == nil {
		t.Errorf("unexpected row after mark: %+v", got)
	}
}

func TestRequeueStaleProcessing(t *testing.T) {
	db := testDB(t)
	now := time.Now().Truncate(time.Second)

	rows := []*models.ScheduledAction{
		{ID: "s1", ProjectID: "p1", TaskID: "t1", Type: models.ScheduledDelayedNotification, ScheduledFor: now.Add(-2 * time.Hour), Status: models.ScheduledPending, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "s2", ProjectID: "p1", TaskID: "t1", Type: models.ScheduledDelayedNotification, ScheduledFor: now.Add(-90 * time.Minute), Status: models.ScheduledPending, CreatedAt: now.Add(-2 * time.Hour)},
	}
	for _, a := range rows {
		if err := db.CreateScheduledAction(a); err != nil {
			t.Fatalf("create scheduled action: %v", err)
		}
	}

	// s1 was claimed by a worker that died an hour ago; s2 was claimed
	// moments ago by a live worker.
	if _, err := db.ClaimDueScheduledActions(now.Add(-time.Hour), 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := db.ClaimDueScheduledActions(now, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}

	n, err := db.RequeueStaleProcessing(now.Add(-10 * time.Minute))
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 requeued, got %d", n)
	}

	// Only the abandoned row comes back; s2 being long overdue does not
	// make its fresh claim stale.
	claimed, err := db.ClaimDueScheduledActions(now, 10)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != "s1" {
		t.Errorf("expected only s1 reclaimable, got %+v", claimed)
	}
	s2, err := db.GetScheduledAction("s2")
	if err != nil {
		t.Fatalf("get s2: %v", err)
	}
	if s2.Status != models.ScheduledProcessing {
		t.Errorf("expected s2 still processing, got %s", s2.Status)
	}
}

func TestCancelScheduledActions(t *testing.T) {
	db := testDB(t)
	now := time.Now().Truncate(time.Second)

	rows := []*models.ScheduledAction{
		{ID: "s1", ProjectID: "p1", TaskID: "t1", Type: models.ScheduledDeadlineApproaching, ScheduledFor: now.Add(time.Hour), Status: models.ScheduledPending, CreatedAt: now},
		{ID: "s2", ProjectID: "p1", TaskID: "t1", Type: models.ScheduledDelayedNotification, ScheduledFor: now.Add(time.Hour), Status: models.ScheduledPending, CreatedAt: now},
		{ID: "s3", ProjectID: "p1", TaskID: "t2", Type: models.ScheduledDeadlineApproaching, ScheduledFor: now.Add(time.Hour), Status: models.ScheduledPending, CreatedAt: now},
	}
	for _, a := range rows {
		if err := db.CreateScheduledAction(a); err != nil {
			t.Fatalf("create scheduled action: %v", err)
		}
	}

	n, err := db.CancelScheduledActions("t1", models.ScheduledDeadlineApproaching)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 cancelled, got %d", n)
	}
	pending, err := db.PendingScheduledActions("t1")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "s2" {
		t.Errorf("expected only s2 pending, got %+v", pending)
	}

	n, err = db.CancelProjectScheduledActions("p1")
	if err != nil {
		t.Fatalf("cancel project: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 cancelled, got %d", n)
	}
}

func TestClearUserReferences(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	task := &models.Task{ID: "t1", ProjectID: "p1", Name: "a", Status: models.StatusTodo, AssigneeID: "gone", CreatorID: "gone", CreatedAt: now, UpdatedAt: now}
	if err := db.CreateTask(task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := db.ClearUserReferences("gone"); err != nil {
		t.Fatalf("clear references: %v", err)
	}

	got, err := db.GetTask("t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.AssigneeID != "" || got.CreatorID != "" {
		t.Errorf("expected weak references cleared, got %+v", got)
	}
}
