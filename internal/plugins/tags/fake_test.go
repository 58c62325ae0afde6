package tags

import (
	"context"
	"sort"
	"time"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tagtypes"
)

// memTree is an in-memory TreeStore and TagRepository for service tests.
type memTree struct {
	tags   map[int]*Tag
	fights map[int]bool
	nextID int

	// failInsert, when set, is returned by the next Insert.
	failInsert error
}

func newMemTree() *memTree {
	return &memTree{tags: map[int]*Tag{}, fights: map[int]bool{}, nextID: 1}
}

var memTypes = map[int]tagtypes.TagType{
	tagtypes.IDSupercategory: {ID: tagtypes.IDSupercategory, Name: tagtypes.NameSupercategory, IsPrivileged: true, IsParent: true, IsActive: true},
	tagtypes.IDCategory:      {ID: tagtypes.IDCategory, Name: tagtypes.NameCategory, IsPrivileged: true, IsParent: true, IsActive: true},
	tagtypes.IDGender:        {ID: tagtypes.IDGender, Name: tagtypes.NameGender, IsPrivileged: true, IsActive: true},
	tagtypes.IDWeapon:        {ID: tagtypes.IDWeapon, Name: tagtypes.NameWeapon, IsActive: true},
	tagtypes.IDLeague:        {ID: tagtypes.IDLeague, Name: tagtypes.NameLeague, IsActive: true},
	tagtypes.IDRuleset:       {ID: tagtypes.IDRuleset, Name: tagtypes.NameRuleset, IsActive: true},
	tagtypes.IDCustom:        {ID: tagtypes.IDCustom, Name: tagtypes.NameCustom, IsActive: true},
	100:                      {ID: 100, Name: "event", IsParent: true, IsActive: true},
}

// addFight registers a fight with its supercategory tag and returns the tag.
func (m *memTree) addFight(fightID int, sc string) *Tag {
	m.fights[fightID] = true
	tag, err := CreateSupercategoryTag(context.Background(), m, fightID, sc)
	if err != nil {
		panic(err)
	}
	return tag
}

func (m *memTree) WithinFight(ctx context.Context, fightID int, fn func(TreeStore) error) error {
	if !m.fights[fightID] {
		return apperror.NewNotFound("fight not found")
	}
	return fn(m)
}

func (m *memTree) FightExists(ctx context.Context, fightID int) (bool, error) {
	return m.fights[fightID], nil
}

func (m *memTree) List(ctx context.Context, filter ListFilter) ([]Tag, error) {
	var out []Tag
	for _, t := range m.sorted() {
		if filter.FightID > 0 && t.FightID != filter.FightID {
			continue
		}
		if filter.TagTypeName != "" && t.TagTypeName != filter.TagTypeName {
			continue
		}
		if !filter.IncludeInactive && !t.IsActive {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *memTree) sorted() []*Tag {
	out := make([]*Tag, 0, len(m.tags))
	for _, t := range m.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memTree) FindByID(ctx context.Context, id int) (*Tag, error) {
	t, ok := m.tags[id]
	if !ok {
		return nil, apperror.NewNotFound("tag not found")
	}
	cp := *t
	return &cp, nil
}

func (m *memTree) FindActiveByType(ctx context.Context, fightID, tagTypeID int) (*Tag, error) {
	for _, t := range m.sorted() {
		if t.FightID == fightID && t.TagTypeID == tagTypeID && t.IsActive {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memTree) ActiveChildren(ctx context.Context, parentID int) ([]Tag, error) {
	var out []Tag
	for _, t := range m.sorted() {
		if t.ParentTagID != nil && *t.ParentTagID == parentID && t.IsActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTree) Insert(ctx context.Context, tag *Tag) error {
	if m.failInsert != nil {
		err := m.failInsert
		m.failInsert = nil
		return err
	}
	tt := memTypes[tag.TagTypeID]
	tag.ID = m.nextID
	m.nextID++
	tag.IsActive = true
	tag.CreatedAt = time.Now().UTC()
	tag.TagTypeName = tt.Name
	tag.typeIsParent = tt.IsParent
	cp := *tag
	m.tags[tag.ID] = &cp
	return nil
}

func (m *memTree) SetValue(ctx context.Context, id int, value string) error {
	m.tags[id].Value = value
	return nil
}

func (m *memTree) DeactivateSubtree(ctx context.Context, rootID int) (int, error) {
	queue := []int{rootID}
	seen := map[int]bool{}
	changed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		if t, ok := m.tags[id]; ok && t.IsActive {
			t.IsActive = false
			changed++
		}
		for _, t := range m.sorted() {
			if t.ParentTagID != nil && *t.ParentTagID == id {
				queue = append(queue, t.ID)
			}
		}
	}
	return changed, nil
}

func (m *memTree) DeactivateFight(ctx context.Context, fightID int) (int, error) {
	changed := 0
	for _, t := range m.tags {
		if t.FightID == fightID && t.IsActive {
			t.IsActive = false
			changed++
		}
	}
	return changed, nil
}

func (m *memTree) Delete(ctx context.Context, id int) error {
	delete(m.tags, id)
	for _, t := range m.tags {
		if t.ParentTagID != nil && *t.ParentTagID == id {
			t.ParentTagID = nil
		}
	}
	return nil
}

// stubTypes serves memTypes through the TagTypeService interface.
type stubTypes struct{}

func (stubTypes) List(ctx context.Context, includeInactive bool) ([]tagtypes.TagType, error) {
	return nil, nil
}

func (stubTypes) GetByID(ctx context.Context, id int) (*tagtypes.TagType, error) {
	tt, ok := memTypes[id]
	if !ok {
		return nil, apperror.NewNotFound("tag type not found")
	}
	return &tt, nil
}

func (stubTypes) GetByName(ctx context.Context, name string) (*tagtypes.TagType, error) {
	for _, tt := range memTypes {
		if tt.Name == name {
			cp := tt
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("tag type not found")
}

func (stubTypes) Create(ctx context.Context, req tagtypes.CreateTagTypeRequest) (*tagtypes.TagType, error) {
	return nil, nil
}

func (stubTypes) Update(ctx context.Context, id int, req tagtypes.UpdateTagTypeRequest) (*tagtypes.TagType, error) {
	return nil, nil
}

func (stubTypes) Deactivate(ctx context.Context, id int) error {
	return nil
}
