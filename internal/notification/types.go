package notification

// Type is the notification category.
//
// Values outside the known set are tolerated: they pass the preference gate
// and render with the default icon.
type Type string

const (
	TypeWaterReminder       Type = "water_reminder"
	TypeMealReminder        Type = "meal_reminder"
	TypeCalorieLimitWarning Type = "calorie_limit_warning"
	TypeGoalAchievement     Type = "goal_achievement"
	TypeWeeklyProgress      Type = "weekly_progress"
	TypeDailySummary        Type = "daily_summary"
)

// Types lists the known categories in display order.
var Types = []Type{
	TypeWaterReminder,
	TypeMealReminder,
	TypeCalorieLimitWarning,
	TypeGoalAchievement,
	TypeWeeklyProgress,
	TypeDailySummary,
}

// Known reports whether t is one of the six built-in categories.
func (t Type) Known() bool {
	switch t {
	case TypeWaterReminder, TypeMealReminder, TypeCalorieLimitWarning,
		TypeGoalAchievement, TypeWeeklyProgress, TypeDailySummary:
		return true
	default:
		return false
	}
}

// Icon returns the UI icon name for the category.
func (t Type) Icon() string {
	switch t {
	case TypeWaterReminder:
		return "droplet"
	case TypeMealReminder:
		return "utensils"
	case TypeCalorieLimitWarning:
		return "alert-triangle"
	case TypeGoalAchievement:
		return "trophy"
	case TypeWeeklyProgress:
		return "bar-chart"
	case TypeDailySummary:
		return "clipboard"
	default:
		return "bell"
	}
}

// Priority is the display urgency of a notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Color returns the UI accent colour for the priority.
func (p Priority) Color() string {
	switch p {
	case PriorityLow:
		return "#6c757d"
	case PriorityMedium:
		return "#0d6efd"
	case PriorityHigh:
		return "#fd7e14"
	case PriorityUrgent:
		return "#dc3545"
	default:
		return "#6c757d"
	}
}

// Status is the read state of a notification.
type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)
