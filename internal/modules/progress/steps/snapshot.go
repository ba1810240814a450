package steps

import (
	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
)

// Snapshot is a read-only view of one module's content tree, loaded fresh per event so
// child counts reflect the catalog at the moment the event is applied. Every slice is in
// sibling order (order_no, created_at, id).
type Snapshot struct {
	Module     *types.Module
	NextModule *types.Module
	Units      []*types.Unit
	lessons    map[uuid.UUID][]*types.Lesson
	items      map[uuid.UUID][]*types.LessonItem
	games      map[uuid.UUID][]*types.Game
	lessonUnit map[uuid.UUID]uuid.UUID
	itemLesson map[uuid.UUID]uuid.UUID
}

// LoadSnapshot loads the tree of the given module plus the module that follows it.
func LoadSnapshot(dbc dbctx.Context, catalog repos.CatalogRepo, moduleID uuid.UUID) (*Snapshot, error) {
	modules, err := catalog.ListModules(dbc)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		lessons:    map[uuid.UUID][]*types.Lesson{},
		items:      map[uuid.UUID][]*types.LessonItem{},
		games:      map[uuid.UUID][]*types.Game{},
		lessonUnit: map[uuid.UUID]uuid.UUID{},
		itemLesson: map[uuid.UUID]uuid.UUID{},
	}
	for i, m := range modules {
		if m.ID != moduleID {
			continue
		}
		s.Module = m
		if i+1 < len(modules) {
			s.NextModule = modules[i+1]
		}
		break
	}
	if s.Module == nil {
		return nil, nil
	}

	if s.Units, err = catalog.ListUnitsByModule(dbc, moduleID); err != nil {
		return nil, err
	}
	unitIDs := make([]uuid.UUID, 0, len(s.Units))
	for _, u := range s.Units {
		unitIDs = append(unitIDs, u.ID)
	}

	lessons, err := catalog.ListLessonsByUnitIDs(dbc, unitIDs)
	if err != nil {
		return nil, err
	}
	lessonIDs := make([]uuid.UUID, 0, len(lessons))
	for _, l := range lessons {
		s.lessons[l.UnitID] = append(s.lessons[l.UnitID], l)
		s.lessonUnit[l.ID] = l.UnitID
		lessonIDs = append(lessonIDs, l.ID)
	}

	items, err := catalog.ListItemsByLessonIDs(dbc, lessonIDs)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		s.items[it.LessonID] = append(s.items[it.LessonID], it)
		s.itemLesson[it.ID] = it.LessonID
	}

	games, err := catalog.ListGamesByUnitIDs(dbc, unitIDs)
	if err != nil {
		return nil, err
	}
	for _, g := range games {
		s.games[g.UnitID] = append(s.games[g.UnitID], g)
	}
	return s, nil
}

func (s *Snapshot) Lessons(unitID uuid.UUID) []*types.Lesson { return s.lessons[unitID] }

func (s *Snapshot) Items(lessonID uuid.UUID) []*types.LessonItem { return s.items[lessonID] }

func (s *Snapshot) Games(unitID uuid.UUID) []*types.Game { return s.games[unitID] }

func (s *Snapshot) GameIDs(unitID uuid.UUID) []uuid.UUID {
	games := s.games[unitID]
	out := make([]uuid.UUID, 0, len(games))
	for _, g := range games {
		out = append(out, g.ID)
	}
	return out
}

func (s *Snapshot) UnitOfLesson(lessonID uuid.UUID) (uuid.UUID, bool) {
	id, ok := s.lessonUnit[lessonID]
	return id, ok
}

func (s *Snapshot) LessonOfItem(itemID uuid.UUID) (uuid.UUID, bool) {
	id, ok := s.itemLesson[itemID]
	return id, ok
}

// NextItem is the item after itemID in its lesson, or nil when it is the last one.
func (s *Snapshot) NextItem(itemID uuid.UUID) *types.LessonItem {
	lessonID, ok := s.itemLesson[itemID]
	if !ok {
		return nil
	}
	return nextOf(s.items[lessonID], itemID, func(it *types.LessonItem) uuid.UUID { return it.ID })
}

// FollowingItem is what a learner sees after itemID: the next item in the lesson, else the
// first item of the next lesson in the unit, else nil.
func (s *Snapshot) FollowingItem(itemID uuid.UUID) *types.LessonItem {
	if next := s.NextItem(itemID); next != nil {
		return next
	}
	lessonID, ok := s.itemLesson[itemID]
	if !ok {
		return nil
	}
	for l := s.NextLesson(lessonID); l != nil; l = s.NextLesson(l.ID) {
		if first := s.FirstItem(l.ID); first != nil {
			return first
		}
	}
	return nil
}

func (s *Snapshot) NextLesson(lessonID uuid.UUID) *types.Lesson {
	unitID, ok := s.lessonUnit[lessonID]
	if !ok {
		return nil
	}
	return nextOf(s.lessons[unitID], lessonID, func(l *types.Lesson) uuid.UUID { return l.ID })
}

func (s *Snapshot) NextUnit(unitID uuid.UUID) *types.Unit {
	return nextOf(s.Units, unitID, func(u *types.Unit) uuid.UUID { return u.ID })
}

func (s *Snapshot) FirstLesson(unitID uuid.UUID) *types.Lesson {
	if ls := s.lessons[unitID]; len(ls) > 0 {
		return ls[0]
	}
	return nil
}

func (s *Snapshot) FirstItem(lessonID uuid.UUID) *types.LessonItem {
	if its := s.items[lessonID]; len(its) > 0 {
		return its[0]
	}
	return nil
}

func (s *Snapshot) FirstUnit() *types.Unit {
	if len(s.Units) > 0 {
		return s.Units[0]
	}
	return nil
}

func nextOf[T any](list []T, id uuid.UUID, key func(T) uuid.UUID) T {
	var zero T
	for i, v := range list {
		if key(v) == id {
			if i+1 < len(list) {
				return list[i+1]
			}
			return zero
		}
	}
	return zero
}
