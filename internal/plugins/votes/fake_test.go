package votes

import (
	"context"
	"sort"
	"time"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tags"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tagtypes"
)

var testTypes = map[int]tagtypes.TagType{
	tagtypes.IDSupercategory: {ID: tagtypes.IDSupercategory, Name: tagtypes.NameSupercategory, IsPrivileged: true, IsParent: true, IsActive: true},
	tagtypes.IDCategory:      {ID: tagtypes.IDCategory, Name: tagtypes.NameCategory, IsPrivileged: true, IsParent: true, IsActive: true},
	tagtypes.IDGender:        {ID: tagtypes.IDGender, Name: tagtypes.NameGender, IsPrivileged: true, IsActive: true},
	tagtypes.IDWeapon:        {ID: tagtypes.IDWeapon, Name: tagtypes.NameWeapon, IsActive: true},
	tagtypes.IDLeague:        {ID: tagtypes.IDLeague, Name: tagtypes.NameLeague, IsActive: true},
	tagtypes.IDRuleset:       {ID: tagtypes.IDRuleset, Name: tagtypes.NameRuleset, IsActive: true},
	tagtypes.IDCustom:        {ID: tagtypes.IDCustom, Name: tagtypes.NameCustom, IsActive: true},
	101:                      {ID: 101, Name: "retired", IsPrivileged: true, IsActive: false},
}

// --- tag tree fake (tags.TagRepository + tags.TreeStore) ---

type fakeTree struct {
	tags   map[int]*tags.Tag
	fights map[int]bool
	nextID int
}

func newFakeTree() *fakeTree {
	return &fakeTree{tags: map[int]*tags.Tag{}, fights: map[int]bool{}, nextID: 1}
}

func (f *fakeTree) addFight(fightID int, sc string) {
	f.fights[fightID] = true
	if _, err := tags.CreateSupercategoryTag(context.Background(), f, fightID, sc); err != nil {
		panic(err)
	}
}

func (f *fakeTree) add(fightID, typeID int, parent *int, value string) *tags.Tag {
	t := &tags.Tag{FightID: fightID, TagTypeID: typeID, ParentTagID: parent, Value: value}
	if err := f.Insert(context.Background(), t); err != nil {
		panic(err)
	}
	return t
}

func (f *fakeTree) sorted() []*tags.Tag {
	out := make([]*tags.Tag, 0, len(f.tags))
	for _, t := range f.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeTree) WithinFight(ctx context.Context, fightID int, fn func(tags.TreeStore) error) error {
	if !f.fights[fightID] {
		return apperror.NewNotFound("fight not found")
	}
	return fn(f)
}

func (f *fakeTree) FightExists(ctx context.Context, fightID int) (bool, error) {
	return f.fights[fightID], nil
}

func (f *fakeTree) List(ctx context.Context, filter tags.ListFilter) ([]tags.Tag, error) {
	return nil, nil
}

func (f *fakeTree) FindByID(ctx context.Context, id int) (*tags.Tag, error) {
	t, ok := f.tags[id]
	if !ok {
		return nil, apperror.NewNotFound("tag not found")
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTree) FindActiveByType(ctx context.Context, fightID, tagTypeID int) (*tags.Tag, error) {
	for _, t := range f.sorted() {
		if t.FightID == fightID && t.TagTypeID == tagTypeID && t.IsActive {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTree) ActiveChildren(ctx context.Context, parentID int) ([]tags.Tag, error) {
	var out []tags.Tag
	for _, t := range f.sorted() {
		if t.ParentTagID != nil && *t.ParentTagID == parentID && t.IsActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTree) Insert(ctx context.Context, t *tags.Tag) error {
	t.ID = f.nextID
	f.nextID++
	t.IsActive = true
	t.TagTypeName = testTypes[t.TagTypeID].Name
	cp := *t
	f.tags[t.ID] = &cp
	return nil
}

func (f *fakeTree) SetValue(ctx context.Context, id int, value string) error {
	f.tags[id].Value = value
	return nil
}

func (f *fakeTree) DeactivateSubtree(ctx context.Context, rootID int) (int, error) {
	changed := 0
	queue := []int{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if t := f.tags[id]; t != nil && t.IsActive {
			t.IsActive = false
			changed++
		}
		for _, t := range f.sorted() {
			if t.ParentTagID != nil && *t.ParentTagID == id {
				queue = append(queue, t.ID)
			}
		}
	}
	return changed, nil
}

func (f *fakeTree) DeactivateFight(ctx context.Context, fightID int) (int, error) {
	changed := 0
	for _, t := range f.tags {
		if t.FightID == fightID && t.IsActive {
			t.IsActive = false
			changed++
		}
	}
	return changed, nil
}

func (f *fakeTree) Delete(ctx context.Context, id int) error {
	delete(f.tags, id)
	return nil
}

// --- change request fake ---

type fakeRequests struct {
	reqs   map[int]*TagChangeRequest
	votes  map[int]map[string]bool
	tree   *fakeTree
	nextID int
}

func newFakeRequests(tree *fakeTree) *fakeRequests {
	return &fakeRequests{reqs: map[int]*TagChangeRequest{}, votes: map[int]map[string]bool{}, tree: tree, nextID: 1}
}

func (f *fakeRequests) Create(ctx context.Context, req *TagChangeRequest) error {
	if ok, _ := f.HasPending(ctx, req.FightID, req.TagTypeID); ok {
		return apperror.NewConflict("a change request for this tag is already pending")
	}
	req.ID = f.nextID
	f.nextID++
	req.Status = StatusPending
	cp := *req
	f.reqs[req.ID] = &cp
	return nil
}

func (f *fakeRequests) FindByID(ctx context.Context, id int) (*TagChangeRequest, error) {
	r, ok := f.reqs[id]
	if !ok {
		return nil, apperror.NewNotFound("change request not found")
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequests) ListByFight(ctx context.Context, fightID int, status Status) ([]TagChangeRequest, error) {
	var out []TagChangeRequest
	for _, r := range f.reqs {
		if r.FightID == fightID && (status == "" || r.Status == status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRequests) HasPending(ctx context.Context, fightID, tagTypeID int) (bool, error) {
	for _, r := range f.reqs {
		if r.FightID == fightID && r.TagTypeID == tagTypeID && r.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

// WithinRequest stages ballots and request changes, keeping them only
// when fn succeeds.
func (f *fakeRequests) WithinRequest(ctx context.Context, id int, fn func(RequestStore) error) error {
	r, ok := f.reqs[id]
	if !ok {
		return apperror.NewNotFound("change request not found")
	}
	cp := *r
	rs := &fakeRequestStore{parent: f, req: &cp, staged: map[string]bool{}}
	if err := fn(rs); err != nil {
		return err
	}
	*r = cp
	if f.votes[id] == nil {
		f.votes[id] = map[string]bool{}
	}
	for hash, up := range rs.staged {
		f.votes[id][hash] = up
	}
	return nil
}

type fakeRequestStore struct {
	parent *fakeRequests
	req    *TagChangeRequest
	staged map[string]bool
}

func (s *fakeRequestStore) Request() *TagChangeRequest { return s.req }

func (s *fakeRequestStore) InsertVote(ctx context.Context, v *Vote) error {
	_, committed := s.parent.votes[s.req.ID][v.SessionHash]
	_, staged := s.staged[v.SessionHash]
	if committed || staged {
		return apperror.NewConflict("this session has already voted on the change request")
	}
	s.staged[v.SessionHash] = v.IsUpvote
	return nil
}

func (s *fakeRequestStore) Tally(ctx context.Context) (int, int, error) {
	up, down := 0, 0
	count := func(m map[string]bool) {
		for _, isUp := range m {
			if isUp {
				up++
			} else {
				down++
			}
		}
	}
	count(s.parent.votes[s.req.ID])
	count(s.staged)
	return up, down, nil
}

func (s *fakeRequestStore) SaveTally(ctx context.Context, votesFor, votesAgainst int) error {
	s.req.VotesFor, s.req.VotesAgainst = votesFor, votesAgainst
	return nil
}

func (s *fakeRequestStore) Resolve(ctx context.Context, status Status, at time.Time) error {
	s.req.Status = status
	s.req.ResolvedAt = &at
	return nil
}

func (s *fakeRequestStore) Tree(ctx context.Context) (tags.TreeStore, error) {
	if !s.parent.tree.fights[s.req.FightID] {
		return nil, apperror.NewNotFound("fight not found")
	}
	return s.parent.tree, nil
}

// --- tag type stub ---

type stubTypes struct{}

func (stubTypes) List(ctx context.Context, includeInactive bool) ([]tagtypes.TagType, error) {
	return nil, nil
}

func (stubTypes) GetByID(ctx context.Context, id int) (*tagtypes.TagType, error) {
	tt, ok := testTypes[id]
	if !ok {
		return nil, apperror.NewNotFound("tag type not found")
	}
	return &tt, nil
}

func (stubTypes) GetByName(ctx context.Context, name string) (*tagtypes.TagType, error) {
	for _, tt := range testTypes {
		if tt.Name == name && tt.IsActive {
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

func (stubTypes) Deactivate(ctx context.Context, id int) error { return nil }
