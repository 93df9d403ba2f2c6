package models

// NotificationKind names a category of notification a user can opt out of.
type NotificationKind string

const (
	// NotifyDependencyReady gates "your task is ready to start" messages.
	NotifyDependencyReady NotificationKind = "dependency_ready"
	// NotifyTaskCompleted gates "a task you created was completed" messages.
	NotifyTaskCompleted NotificationKind = "task_completed"
	// NotifyTaskAssigned gates "a task was assigned to you" messages.
	NotifyTaskAssigned NotificationKind = "task_assigned"
	// NotifyDeadline gates deadline reminder messages.
	NotifyDeadline NotificationKind = "deadline_approaching"
)

// User is the acting principal. Authentication lives outside the engine;
// only the fields the engine reads are modeled here.
type User struct {
	// ID is the unique identifier for this user.
	ID string `json:"id"`
	// Username is the display handle, shown as "unknown" after deactivation.
	Username string `json:"username"`
	// IsActive is false once the user has been deactivated.
	IsActive bool `json:"is_active"`
	// IsSuperuser grants every capability; checked in one place, the
	// authz package.
	IsSuperuser bool `json:"is_superuser"`
	// NotificationPrefs maps notification kind to enabled/disabled.
	// A missing kind counts as enabled.
	NotificationPrefs map[NotificationKind]bool `json:"notification_prefs,omitempty"`
}

// WantsNotification reports whether the user accepts the given kind.
// Unset preferences default to true.
func (u *User) WantsNotification(kind NotificationKind) bool {
	if u == nil || u.NotificationPrefs == nil {
		return true
	}
	enabled, ok := u.NotificationPrefs[kind]
	if !ok {
		return true
	}
	return enabled
}

// DisplayName returns the username, or "unknown" for deactivated or
// missing users. Task and event references to users are weak and must
// survive user deactivation.
func (u *User) DisplayName() string {
	if u == nil || u.Username == "" {
		return "unknown"
	}
	return u.Username
}
