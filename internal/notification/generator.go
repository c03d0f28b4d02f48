package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generator builds category notifications from fixed templates. It never
// fails; only persisting the result can.
type Generator struct {
	clock Clock
}

// NewGenerator creates a Generator stamping CreatedAt from clock.
func NewGenerator(clock Clock) *Generator {
	return &Generator{clock: clock}
}

// Custom builds an ad-hoc notification from caller supplied text.
func (g *Generator) Custom(p Params) *Notification {
	return New(p, g.clock.Now())
}

func (g *Generator) WaterReminder(userID uuid.UUID) *Notification {
	return g.build(userID, TypeWaterReminder, PriorityMedium,
		"Time to hydrate",
		"Have a glass of water. Staying hydrated keeps your energy up and helps you reach your goals.",
		map[string]string{"route": "/diary/water"},
	)
}

// MealReminder embeds the meal period and wall-clock time of localTime.
func (g *Generator) MealReminder(userID uuid.UUID, localTime TimeOfDay) *Notification {
	period := MealPeriod(localTime)
	return g.build(userID, TypeMealReminder, PriorityMedium,
		fmt.Sprintf("%s reminder", capitalize(period)),
		fmt.Sprintf("It's %s, time for %s. Don't forget to log what you eat.", localTime, period),
		map[string]string{"route": "/diary/meals", "meal": period, "time": localTime.String()},
	)
}

func (g *Generator) CalorieLimitWarning(userID uuid.UUID) *Notification {
	return g.build(userID, TypeCalorieLimitWarning, PriorityHigh,
		"Calorie limit warning",
		"You are close to or above your daily calorie limit. Review today's entries before your next meal.",
		map[string]string{"route": "/diary"},
	)
}

func (g *Generator) GoalAchievement(userID uuid.UUID) *Notification {
	return g.build(userID, TypeGoalAchievement, PriorityMedium,
		"Goal achieved!",
		"Congratulations, you reached your goal! Keep up the great work.",
		map[string]string{"route": "/goals"},
	)
}

// WeeklyProgress covers the seven days ending today.
func (g *Generator) WeeklyProgress(userID uuid.UUID) *Notification {
	today := g.clock.Now()
	from := today.AddDate(0, 0, -6)
	return g.build(userID, TypeWeeklyProgress, PriorityMedium,
		"Your weekly progress",
		fmt.Sprintf("Here is how your week went from %s to %s. Open your diary to see the full report.",
			from.Format("Jan 2"), today.Format("Jan 2")),
		map[string]string{
			"route": "/reports/weekly",
			"from":  from.Format(time.DateOnly),
			"to":    today.Format(time.DateOnly),
		},
	)
}

func (g *Generator) DailySummary(userID uuid.UUID) *Notification {
	today := g.clock.Now()
	return g.build(userID, TypeDailySummary, PriorityMedium,
		fmt.Sprintf("Daily summary for %s", today.Format("Monday, Jan 2")),
		"Your food diary summary for today is ready. See how your meals, water and calories added up.",
		map[string]string{"route": "/reports/daily", "date": today.Format(time.DateOnly)},
	)
}

func (g *Generator) build(userID uuid.UUID, t Type, priority Priority, title, message string, ctx map[string]string) *Notification {
	p := Params{
		UserID:   userID,
		Title:    title,
		Message:  message,
		Type:     t,
		Priority: priority,
	}
	if data, err := json.Marshal(ctx); err == nil {
		s := string(data)
		p.ContextData = &s
	}
	return New(p, g.clock.Now())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
