package notification

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTypeIcon(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeWaterReminder, "droplet"},
		{TypeMealReminder, "utensils"},
		{TypeCalorieLimitWarning, "alert-triangle"},
		{TypeGoalAchievement, "trophy"},
		{TypeWeeklyProgress, "bar-chart"},
		{TypeDailySummary, "clipboard"},
		{Type("something_new"), "bell"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.Icon(); got != tt.want {
				t.Errorf("Icon() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPriorityColor_DefaultArm(t *testing.T) {
	if got := Priority("critical").Color(); got != PriorityLow.Color() {
		t.Errorf("unknown priority colour = %q, want default %q", got, PriorityLow.Color())
	}
	if PriorityUrgent.Color() == PriorityMedium.Color() {
		t.Error("urgent and medium should render differently")
	}
}

func TestNotification_MarkAsRead(t *testing.T) {
	created := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	n := New(Params{UserID: uuid.New(), Title: "t", Message: "m", Type: TypeWaterReminder}, created)

	if n.Status != StatusUnread || n.ReadAt != nil {
		t.Fatalf("new notification should be unread with nil ReadAt, got %s %v", n.Status, n.ReadAt)
	}
	if n.Priority != PriorityMedium {
		t.Errorf("expected default priority medium, got %s", n.Priority)
	}

	first := created.Add(time.Minute)
	if !n.MarkAsRead(first) {
		t.Fatal("first MarkAsRead should transition")
	}
	if n.MarkAsRead(first.Add(time.Hour)) {
		t.Error("second MarkAsRead should be a no-op")
	}
	if n.Status != StatusRead || !n.ReadAt.Equal(first) {
		t.Errorf("expected read at %v, got %s at %v", first, n.Status, n.ReadAt)
	}
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("07:45")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if tod != At(7, 45) || tod.String() != "07:45" || tod.Minutes() != 465 {
		t.Errorf("unexpected time of day %+v", tod)
	}

	if _, err := ParseTimeOfDay("25:00"); err == nil {
		t.Error("expected error for 25:00")
	}

	day := time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC)
	if got := At(8, 0).On(day); !got.Equal(time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("On() = %v", got)
	}
}

func TestMealPeriod(t *testing.T) {
	tests := []struct {
		at   TimeOfDay
		want string
	}{
		{At(6, 30), "breakfast"},
		{At(10, 59), "breakfast"},
		{At(11, 0), "lunch"},
		{At(15, 59), "lunch"},
		{At(16, 0), "dinner"},
		{At(21, 0), "dinner"},
	}
	for _, tt := range tests {
		if got := MealPeriod(tt.at); got != tt.want {
			t.Errorf("MealPeriod(%s) = %s, want %s", tt.at, got, tt.want)
		}
	}
}

func TestPreferencesUpdate_JSONTriState(t *testing.T) {
	var u PreferencesUpdate
	body := `{"breakfast_reminder_time":"07:30","dinner_reminder_time":null,"meal_reminders_enabled":false}`
	if err := json.Unmarshal([]byte(body), &u); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !u.BreakfastReminderTime.Set || u.BreakfastReminderTime.Value == nil || *u.BreakfastReminderTime.Value != At(7, 30) {
		t.Errorf("breakfast should be set to 07:30, got %+v", u.BreakfastReminderTime)
	}
	if !u.DinnerReminderTime.Set || u.DinnerReminderTime.Value != nil {
		t.Errorf("dinner should be cleared, got %+v", u.DinnerReminderTime)
	}
	if u.LunchReminderTime.Set {
		t.Error("lunch was omitted and should be untouched")
	}
	if u.MealRemindersEnabled == nil || *u.MealRemindersEnabled {
		t.Error("meal_reminders_enabled should be present and false")
	}
	if u.WaterRemindersEnabled != nil {
		t.Error("water_reminders_enabled was omitted")
	}
}

func TestPreferences_Apply(t *testing.T) {
	created := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	p := DefaultPreferences(uuid.New(), created)

	off := false
	freq := 3
	p.Apply(PreferencesUpdate{
		WaterRemindersEnabled:       &off,
		WaterReminderFrequencyHours: &freq,
		LunchReminderTime:           ClearTime(),
		DinnerReminderTime:          SetTime(At(19, 30)),
	}, created.Add(time.Hour))

	if p.WaterRemindersEnabled {
		t.Error("water reminders should be disabled")
	}
	if p.WaterReminderFrequencyHours != 3 {
		t.Errorf("expected frequency 3, got %d", p.WaterReminderFrequencyHours)
	}
	if p.LunchReminderTime != nil {
		t.Error("lunch time should be cleared")
	}
	if p.DinnerReminderTime == nil || *p.DinnerReminderTime != At(19, 30) {
		t.Errorf("dinner time should be 19:30, got %v", p.DinnerReminderTime)
	}
	if p.BreakfastReminderTime == nil || *p.BreakfastReminderTime != At(8, 0) {
		t.Error("breakfast time should be untouched")
	}
	if !p.MealRemindersEnabled {
		t.Error("meal reminders should be untouched")
	}
	if !p.UpdatedAt.After(created) {
		t.Error("UpdatedAt should be refreshed")
	}
}

func TestPreferencesUpdate_Validate(t *testing.T) {
	zero := 0
	if err := (PreferencesUpdate{WaterReminderFrequencyHours: &zero}).Validate(); err == nil {
		t.Error("expected frequency 0 to be rejected")
	}
	if err := (PreferencesUpdate{}).Validate(); err != nil {
		t.Errorf("empty update should be valid, got %v", err)
	}
}
