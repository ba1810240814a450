package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/catalog"
)

// base is spaced per seed call so created_at tie-breaks are deterministic.
var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func stamp(n int) time.Time { return base.Add(time.Duration(n) * time.Second) }

func SeedModule(tb testing.TB, tx *gorm.DB, orderNo int) *types.Module {
	tb.Helper()
	m := &types.Module{ID: uuid.New(), Title: "module", OrderNo: orderNo, CreatedAt: stamp(orderNo), UpdatedAt: stamp(orderNo)}
	if err := tx.Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

func SeedUnit(tb testing.TB, tx *gorm.DB, moduleID uuid.UUID, orderNo int) *types.Unit {
	tb.Helper()
	u := &types.Unit{ID: uuid.New(), ModuleID: moduleID, Title: "unit", OrderNo: orderNo, CreatedAt: stamp(orderNo), UpdatedAt: stamp(orderNo)}
	if err := tx.Create(u).Error; err != nil {
		tb.Fatalf("seed unit: %v", err)
	}
	return u
}

func SeedLesson(tb testing.TB, tx *gorm.DB, unitID uuid.UUID, orderNo int) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{ID: uuid.New(), UnitID: unitID, Title: "lesson", OrderNo: orderNo, CreatedAt: stamp(orderNo), UpdatedAt: stamp(orderNo)}
	if err := tx.Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

// SeedItem creates a single-choice question whose accepted answer is "a".
func SeedItem(tb testing.TB, tx *gorm.DB, lessonID uuid.UUID, orderNo, xp int) *types.LessonItem {
	tb.Helper()
	return SeedItemKind(tb, tx, lessonID, orderNo, xp, catalog.ItemKindSingleChoice, "a")
}

func SeedItemKind(tb testing.TB, tx *gorm.DB, lessonID uuid.UUID, orderNo, xp int, kind string, answers ...string) *types.LessonItem {
	tb.Helper()
	raw, err := json.Marshal(answers)
	if err != nil {
		tb.Fatalf("marshal answers: %v", err)
	}
	it := &types.LessonItem{
		ID:             uuid.New(),
		LessonID:       lessonID,
		Prompt:         "question",
		Kind:           kind,
		CorrectAnswers: datatypes.JSON(raw),
		XP:             xp,
		OrderNo:        orderNo,
		CreatedAt:      stamp(orderNo),
		UpdatedAt:      stamp(orderNo),
	}
	if err := tx.Create(it).Error; err != nil {
		tb.Fatalf("seed item: %v", err)
	}
	return it
}

func SeedGame(tb testing.TB, tx *gorm.DB, unitID uuid.UUID, orderNo, xp int) *types.Game {
	tb.Helper()
	g := &types.Game{ID: uuid.New(), UnitID: unitID, Title: "game", XP: xp, OrderNo: orderNo, CreatedAt: stamp(orderNo), UpdatedAt: stamp(orderNo)}
	if err := tx.Create(g).Error; err != nil {
		tb.Fatalf("seed game: %v", err)
	}
	return g
}

func SeedStreak(tb testing.TB, tx *gorm.DB, learnerID uuid.UUID, value int, lastAchieved time.Time) *types.StreakProgress {
	tb.Helper()
	s := &types.StreakProgress{
		ID:               uuid.New(),
		StreakID:         uuid.New(),
		LearnerID:        learnerID,
		CurrentValue:     value,
		IsAchieved:       true,
		InProgress:       true,
		StartDate:        lastAchieved.AddDate(0, 0, -(value - 1)),
		LastAchievedDate: &lastAchieved,
	}
	if err := tx.Create(s).Error; err != nil {
		tb.Fatalf("seed streak: %v", err)
	}
	return s
}

func SeedDailyGoal(tb testing.TB, tx *gorm.DB, learnerID uuid.UUID, goal, current int, start time.Time) *types.DailyGoalProgress {
	tb.Helper()
	g := &types.DailyGoalProgress{
		ID:           uuid.New(),
		GoalID:       uuid.New(),
		LearnerID:    learnerID,
		GoalValue:    goal,
		CurrentValue: current,
		InProgress:   true,
		StartDate:    start,
	}
	if err := tx.Create(g).Error; err != nil {
		tb.Fatalf("seed daily goal: %v", err)
	}
	return g
}

// Tree is a module with ordered units, lessons and items.
type Tree struct {
	Module  *types.Module
	Units   []*types.Unit
	Lessons map[uuid.UUID][]*types.Lesson
	Items   map[uuid.UUID][]*types.LessonItem
}

// SeedTree builds one module; shape[u][l] is the number of items in lesson l of unit u.
func SeedTree(tb testing.TB, tx *gorm.DB, moduleOrder, itemXP int, shape [][]int) *Tree {
	tb.Helper()
	t := &Tree{
		Module:  SeedModule(tb, tx, moduleOrder),
		Lessons: map[uuid.UUID][]*types.Lesson{},
		Items:   map[uuid.UUID][]*types.LessonItem{},
	}
	for ui, lessons := range shape {
		u := SeedUnit(tb, tx, t.Module.ID, ui+1)
		t.Units = append(t.Units, u)
		for li, items := range lessons {
			l := SeedLesson(tb, tx, u.ID, li+1)
			t.Lessons[u.ID] = append(t.Lessons[u.ID], l)
			for ii := 0; ii < items; ii++ {
				t.Items[l.ID] = append(t.Items[l.ID], SeedItem(tb, tx, l.ID, ii+1, itemXP))
			}
		}
	}
	return t
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
