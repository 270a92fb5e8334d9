package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rmitchellscott/marquee/internal/utils"
	"gorm.io/gorm"
)

// ErrScheduleOverlap is returned when a schedule would overlap an existing
// slot on the same screen and day.
var ErrScheduleOverlap = fmt.Errorf("schedule overlaps an existing slot")

// ScheduleService handles schedule-related database operations
type ScheduleService struct {
	db *gorm.DB
}

// NewScheduleService creates a new schedule service
func NewScheduleService(db *gorm.DB) *ScheduleService {
	return &ScheduleService{db: db}
}

// CreateSchedule creates a schedule slot after validating times and checking
// for overlaps within the same screen+day.
func (scs *ScheduleService) CreateSchedule(screenID, playlistID uuid.UUID, dayOfWeek int, startTime, endTime string, note *string) (*Schedule, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, fmt.Errorf("day_of_week must be in range 0-6, got %d", dayOfWeek)
	}
	startSec, startNorm, err := utils.ParseClock(startTime)
	if err != nil {
		return nil, err
	}
	endSec, endNorm, err := utils.ParseClock(endTime)
	if err != nil {
		return nil, err
	}
	if endSec <= startSec {
		return nil, fmt.Errorf("end_time must be after start_time")
	}

	if err := scs.checkOverlap(screenID, dayOfWeek, startSec, endSec, uuid.Nil); err != nil {
		return nil, err
	}

	schedule := &Schedule{
		ScreenID:   screenID,
		PlaylistID: playlistID,
		DayOfWeek:  dayOfWeek,
		StartTime:  startNorm,
		EndTime:    endNorm,
		Note:       note,
	}
	if err := scs.db.Create(schedule).Error; err != nil {
		return nil, err
	}
	return schedule, nil
}

// checkOverlap rejects a slot intersecting any other slot on the screen+day.
// exclude skips one schedule id so updates don't collide with themselves.
func (scs *ScheduleService) checkOverlap(screenID uuid.UUID, dayOfWeek, startSec, endSec int, exclude uuid.UUID) error {
	var existing []Schedule
	q := scs.db.Where("screen_id = ? AND day_of_week = ?", screenID, dayOfWeek)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Find(&existing).Error; err != nil {
		return err
	}
	for _, s := range existing {
		otherStart, _, err := utils.ParseClock(s.StartTime)
		if err != nil {
			continue
		}
		otherEnd, _, err := utils.ParseClock(s.EndTime)
		if err != nil {
			continue
		}
		if startSec < otherEnd && otherStart < endSec {
			return ErrScheduleOverlap
		}
	}
	return nil
}

// GetScheduleByID returns a schedule by its ID
func (scs *ScheduleService) GetScheduleByID(scheduleID uuid.UUID) (*Schedule, error) {
	var schedule Schedule
	if err := scs.db.First(&schedule, "id = ?", scheduleID).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

// GetSchedulesByScreenID returns all schedules for a screen ordered by day and start
func (scs *ScheduleService) GetSchedulesByScreenID(screenID uuid.UUID) ([]Schedule, error) {
	var schedules []Schedule
	err := scs.db.Where("screen_id = ?", screenID).
		Order("day_of_week ASC, start_time ASC").Find(&schedules).Error
	return schedules, err
}

// GetSchedulesByScreenIDs returns all schedules for the given screens
func (scs *ScheduleService) GetSchedulesByScreenIDs(screenIDs []uuid.UUID) ([]Schedule, error) {
	if len(screenIDs) == 0 {
		return nil, nil
	}
	var schedules []Schedule
	err := scs.db.Where("screen_id IN ?", screenIDs).
		Order("day_of_week ASC, start_time ASC").Find(&schedules).Error
	return schedules, err
}

// DeleteSchedule removes a schedule slot
func (scs *ScheduleService) DeleteSchedule(scheduleID uuid.UUID) error {
	return scs.db.Delete(&Schedule{}, "id = ?", scheduleID).Error
}
