package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultWaterReminderFrequencyHours is the interval between water reminders
// for a freshly provisioned record.
const DefaultWaterReminderFrequencyHours = 2

// Preferences are one user's notification settings. There is exactly one
// record per user.
type Preferences struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	WaterRemindersEnabled       bool `json:"water_reminders_enabled"`
	MealRemindersEnabled        bool `json:"meal_reminders_enabled"`
	CalorieLimitWarningsEnabled bool `json:"calorie_limit_warnings_enabled"`
	GoalAchievementsEnabled     bool `json:"goal_achievements_enabled"`
	WeeklyProgressEnabled       bool `json:"weekly_progress_enabled"`
	DailySummaryEnabled         bool `json:"daily_summary_enabled"`

	// nil means no scheduled time for that reminder
	WaterReminderTime     *TimeOfDay `json:"water_reminder_time"`
	BreakfastReminderTime *TimeOfDay `json:"breakfast_reminder_time"`
	LunchReminderTime     *TimeOfDay `json:"lunch_reminder_time"`
	DinnerReminderTime    *TimeOfDay `json:"dinner_reminder_time"`

	WaterReminderFrequencyHours int  `json:"water_reminder_frequency_hours"`
	SendNotificationsOnWeekends bool `json:"send_notifications_on_weekends"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPreferences returns the record provisioned on first access.
func DefaultPreferences(userID uuid.UUID, now time.Time) *Preferences {
	water, breakfast, lunch, dinner := At(9, 0), At(8, 0), At(12, 0), At(18, 0)

	return &Preferences{
		ID:                          uuid.New(),
		UserID:                      userID,
		WaterRemindersEnabled:       true,
		MealRemindersEnabled:        true,
		CalorieLimitWarningsEnabled: true,
		GoalAchievementsEnabled:     true,
		WeeklyProgressEnabled:       true,
		DailySummaryEnabled:         true,
		WaterReminderTime:           &water,
		BreakfastReminderTime:       &breakfast,
		LunchReminderTime:           &lunch,
		DinnerReminderTime:          &dinner,
		WaterReminderFrequencyHours: DefaultWaterReminderFrequencyHours,
		SendNotificationsOnWeekends: true,
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}
}

// Enabled reports the per-category flag for t. The second result is false
// when t is not a known category.
func (p *Preferences) Enabled(t Type) (enabled bool, known bool) {
	switch t {
	case TypeWaterReminder:
		return p.WaterRemindersEnabled, true
	case TypeMealReminder:
		return p.MealRemindersEnabled, true
	case TypeCalorieLimitWarning:
		return p.CalorieLimitWarningsEnabled, true
	case TypeGoalAchievement:
		return p.GoalAchievementsEnabled, true
	case TypeWeeklyProgress:
		return p.WeeklyProgressEnabled, true
	case TypeDailySummary:
		return p.DailySummaryEnabled, true
	default:
		return true, false
	}
}

// OptionalTime is a tri-state time field in a partial update: absent (leave
// as is), null (clear), or a value.
type OptionalTime struct {
	Set   bool
	Value *TimeOfDay
}

// SetTime returns an OptionalTime that assigns t.
func SetTime(t TimeOfDay) OptionalTime {
	return OptionalTime{Set: true, Value: &t}
}

// ClearTime returns an OptionalTime that clears the field.
func ClearTime() OptionalTime {
	return OptionalTime{Set: true}
}

// UnmarshalJSON is only invoked when the key is present, so both null and a
// value mark the field as set.
func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var t TimeOfDay
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

// PreferencesUpdate is a partial update. Nil pointers and unset
// OptionalTime fields leave the stored value untouched.
type PreferencesUpdate struct {
	WaterRemindersEnabled       *bool `json:"water_reminders_enabled,omitempty"`
	MealRemindersEnabled        *bool `json:"meal_reminders_enabled,omitempty"`
	CalorieLimitWarningsEnabled *bool `json:"calorie_limit_warnings_enabled,omitempty"`
	GoalAchievementsEnabled     *bool `json:"goal_achievements_enabled,omitempty"`
	WeeklyProgressEnabled       *bool `json:"weekly_progress_enabled,omitempty"`
	DailySummaryEnabled         *bool `json:"daily_summary_enabled,omitempty"`

	WaterReminderTime     OptionalTime `json:"water_reminder_time"`
	BreakfastReminderTime OptionalTime `json:"breakfast_reminder_time"`
	LunchReminderTime     OptionalTime `json:"lunch_reminder_time"`
	DinnerReminderTime    OptionalTime `json:"dinner_reminder_time"`

	WaterReminderFrequencyHours *int  `json:"water_reminder_frequency_hours,omitempty"`
	SendNotificationsOnWeekends *bool `json:"send_notifications_on_weekends,omitempty"`
}

// Validate rejects values the record cannot hold.
func (u PreferencesUpdate) Validate() error {
	if u.WaterReminderFrequencyHours != nil && *u.WaterReminderFrequencyHours < 1 {
		return fmt.Errorf("%w: water_reminder_frequency_hours must be >= 1", ErrInvalidInput)
	}
	return nil
}

// Apply writes every present field of u into p and refreshes UpdatedAt.
func (p *Preferences) Apply(u PreferencesUpdate, now time.Time) {
	applyBool(&p.WaterRemindersEnabled, u.WaterRemindersEnabled)
	applyBool(&p.MealRemindersEnabled, u.MealRemindersEnabled)
	applyBool(&p.CalorieLimitWarningsEnabled, u.CalorieLimitWarningsEnabled)
	applyBool(&p.GoalAchievementsEnabled, u.GoalAchievementsEnabled)
	applyBool(&p.WeeklyProgressEnabled, u.WeeklyProgressEnabled)
	applyBool(&p.DailySummaryEnabled, u.DailySummaryEnabled)
	applyBool(&p.SendNotificationsOnWeekends, u.SendNotificationsOnWeekends)

	applyTime(&p.WaterReminderTime, u.WaterReminderTime)
	applyTime(&p.BreakfastReminderTime, u.BreakfastReminderTime)
	applyTime(&p.LunchReminderTime, u.LunchReminderTime)
	applyTime(&p.DinnerReminderTime, u.DinnerReminderTime)

	if u.WaterReminderFrequencyHours != nil {
		p.WaterReminderFrequencyHours = *u.WaterReminderFrequencyHours
	}

	p.UpdatedAt = now
}

func applyBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func applyTime(dst **TimeOfDay, v OptionalTime) {
	if !v.Set {
		return
	}
	if v.Value == nil {
		*dst = nil
		return
	}
	t := *v.Value
	*dst = &t
}
