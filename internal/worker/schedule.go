package worker

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
)

// Kind names a scheduled job.
type Kind string

const (
	KindWater          Kind = "water"
	KindMeal           Kind = "meal"
	KindDailySummary   Kind = "daily_summary"
	KindWeeklyProgress Kind = "weekly_progress"
	KindCleanup        Kind = "cleanup"
)

// Schedule holds the service-wide times for jobs that have no per-user time.
type Schedule struct {
	DailySummaryAt    notification.TimeOfDay
	WeeklyProgressAt  notification.TimeOfDay
	WeeklyProgressDay time.Weekday
	CleanupAt         notification.TimeOfDay
}

// DefaultSchedule: daily summary 21:00, weekly progress Sunday 19:00,
// cleanup 03:00.
func DefaultSchedule() Schedule {
	return Schedule{
		DailySummaryAt:    notification.At(21, 0),
		WeeklyProgressAt:  notification.At(19, 0),
		WeeklyProgressDay: time.Sunday,
		CleanupAt:         notification.At(3, 0),
	}
}

// Job is one due unit of work for one user.
type Job struct {
	Kind   Kind
	UserID uuid.UUID
	// Slot is the wall-clock instant the job was scheduled for.
	Slot time.Time
	// MealTime is set for KindMeal.
	MealTime notification.TimeOfDay
}

// Key identifies the slot across scheduler replicas.
func (j Job) Key() string {
	return fmt.Sprintf("%s:%s:%s", j.Kind, j.UserID, j.Slot.Format("2006-01-02T15:04"))
}

// DueReminders returns the jobs whose slot falls in (from, now]. Slots are
// wall-clock times in now's location. Categories the user disabled are left
// out; the weekend rule is applied later by the service.
func DueReminders(prefs *notification.Preferences, from, now time.Time, schedule Schedule) []Job {
	if !now.After(from) {
		return nil
	}

	due := func(slot time.Time) bool {
		return slot.After(from) && !slot.After(now)
	}

	var jobs []Job
	seen := make(map[string]bool)
	add := func(j Job) {
		if !due(j.Slot) {
			return
		}
		if k := j.Key(); !seen[k] {
			seen[k] = true
			jobs = append(jobs, j)
		}
	}

	// every calendar day the range touches, starting with from's
	first := from.In(now.Location())
	for day := notification.At(0, 0).On(first); !day.After(now); day = day.AddDate(0, 0, 1) {
		if prefs.WaterRemindersEnabled && prefs.WaterReminderTime != nil {
			for _, slot := range waterSlots(*prefs.WaterReminderTime, prefs.WaterReminderFrequencyHours, day) {
				add(Job{Kind: KindWater, UserID: prefs.UserID, Slot: slot})
			}
		}

		if prefs.MealRemindersEnabled {
			for _, meal := range []*notification.TimeOfDay{
				prefs.BreakfastReminderTime,
				prefs.LunchReminderTime,
				prefs.DinnerReminderTime,
			} {
				if meal != nil {
					add(Job{Kind: KindMeal, UserID: prefs.UserID, Slot: meal.On(day), MealTime: *meal})
				}
			}
		}

		if prefs.DailySummaryEnabled {
			add(Job{Kind: KindDailySummary, UserID: prefs.UserID, Slot: schedule.DailySummaryAt.On(day)})
		}

		if prefs.WeeklyProgressEnabled && day.Weekday() == schedule.WeeklyProgressDay {
			add(Job{Kind: KindWeeklyProgress, UserID: prefs.UserID, Slot: schedule.WeeklyProgressAt.On(day)})
		}

		add(Job{Kind: KindCleanup, UserID: prefs.UserID, Slot: schedule.CleanupAt.On(day)})
	}

	return jobs
}

// waterSlots repeats every frequencyHours from start until midnight.
func waterSlots(start notification.TimeOfDay, frequencyHours int, day time.Time) []time.Time {
	if frequencyHours < 1 {
		frequencyHours = notification.DefaultWaterReminderFrequencyHours
	}

	var slots []time.Time
	for h := start.Hour; h < 24; h += frequencyHours {
		slots = append(slots, notification.At(h, start.Minute).On(day))
	}
	return slots
}
