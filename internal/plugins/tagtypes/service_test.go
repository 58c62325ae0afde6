package tagtypes

import (
	"context"
	"errors"
	"testing"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
)

// --- Mock Repository ---

// mockTagTypeRepo implements TagTypeRepository for testing.
type mockTagTypeRepo struct {
	createFn     func(ctx context.Context, tt *TagType) error
	findByIDFn   func(ctx context.Context, id int) (*TagType, error)
	findByNameFn func(ctx context.Context, name string) (*TagType, error)
	listFn       func(ctx context.Context, includeInactive bool) ([]TagType, error)
	updateFn     func(ctx context.Context, tt *TagType) error
	deactivateFn func(ctx context.Context, id int) error

	findByNameCalls int
}

func (m *mockTagTypeRepo) Create(ctx context.Context, tt *TagType) error {
	if m.createFn != nil {
		return m.createFn(ctx, tt)
	}
	tt.ID = 100
	return nil
}

func (m *mockTagTypeRepo) FindByID(ctx context.Context, id int) (*TagType, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("tag type not found")
}

func (m *mockTagTypeRepo) FindByName(ctx context.Context, name string) (*TagType, error) {
	m.findByNameCalls++
	if m.findByNameFn != nil {
		return m.findByNameFn(ctx, name)
	}
	return nil, apperror.NewNotFound("tag type not found")
}

func (m *mockTagTypeRepo) List(ctx context.Context, includeInactive bool) ([]TagType, error) {
	if m.listFn != nil {
		return m.listFn(ctx, includeInactive)
	}
	return nil, nil
}

func (m *mockTagTypeRepo) Update(ctx context.Context, tt *TagType) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, tt)
	}
	return nil
}

func (m *mockTagTypeRepo) Deactivate(ctx context.Context, id int) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, id)
	}
	return nil
}

// --- Test Helpers ---

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func categoryType() *TagType {
	return &TagType{ID: IDCategory, Name: NameCategory, IsPrivileged: true, IsParent: true, DisplayOrder: 2, IsActive: true}
}

// --- GetByName Tests ---

func TestGetByName_CachesLookups(t *testing.T) {
	repo := &mockTagTypeRepo{
		findByNameFn: func(ctx context.Context, name string) (*TagType, error) {
			return categoryType(), nil
		},
	}
	svc := NewTagTypeService(repo)

	for i := 0; i < 3; i++ {
		tt, err := svc.GetByName(context.Background(), " Category ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tt.ID != IDCategory {
			t.Errorf("expected id %d, got %d", IDCategory, tt.ID)
		}
	}
	if repo.findByNameCalls != 1 {
		t.Errorf("expected 1 repository lookup, got %d", repo.findByNameCalls)
	}
}

func TestGetByName_InactiveIsNotFound(t *testing.T) {
	repo := &mockTagTypeRepo{
		findByNameFn: func(ctx context.Context, name string) (*TagType, error) {
			return &TagType{ID: 101, Name: "venue", IsActive: false}, nil
		},
	}
	_, err := NewTagTypeService(repo).GetByName(context.Background(), "venue")
	assertAppError(t, err, 404)
}

func TestGetByName_Missing(t *testing.T) {
	_, err := NewTagTypeService(&mockTagTypeRepo{}).GetByName(context.Background(), "nope")
	assertAppError(t, err, 404)
}

// --- Create Tests ---

func TestCreate_Success(t *testing.T) {
	var captured *TagType
	repo := &mockTagTypeRepo{
		createFn: func(ctx context.Context, tt *TagType) error {
			captured = tt
			tt.ID = 101
			return nil
		},
	}
	tt, err := NewTagTypeService(repo).Create(context.Background(), CreateTagTypeRequest{
		Name: " Venue ", DisplayOrder: 8,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Name != "venue" {
		t.Errorf("expected normalized name venue, got %s", captured.Name)
	}
	if tt.ID != 101 {
		t.Errorf("expected id 101, got %d", tt.ID)
	}
}

func TestCreate_InvalidName(t *testing.T) {
	svc := NewTagTypeService(&mockTagTypeRepo{})
	for _, name := range []string{"", "a", "9lives", "has space", "semi;colon"} {
		_, err := svc.Create(context.Background(), CreateTagTypeRequest{Name: name})
		assertAppError(t, err, 422)
	}
}

func TestCreate_FlushesCache(t *testing.T) {
	calls := 0
	repo := &mockTagTypeRepo{
		findByNameFn: func(ctx context.Context, name string) (*TagType, error) {
			calls++
			return &TagType{ID: 101, Name: name, IsActive: true}, nil
		},
	}
	svc := NewTagTypeService(repo)
	_, _ = svc.GetByName(context.Background(), "venue")
	_, _ = svc.Create(context.Background(), CreateTagTypeRequest{Name: "arena"})
	_, _ = svc.GetByName(context.Background(), "venue")
	if calls != 2 {
		t.Errorf("expected cache flush to force a second lookup, got %d lookups", calls)
	}
}

// --- Update Tests ---

func TestUpdate_WellKnownCannotBeRenamed(t *testing.T) {
	repo := &mockTagTypeRepo{
		findByIDFn: func(ctx context.Context, id int) (*TagType, error) { return categoryType(), nil },
	}
	name := "division"
	_, err := NewTagTypeService(repo).Update(context.Background(), IDCategory, UpdateTagTypeRequest{Name: &name})
	assertAppError(t, err, 422)
}

func TestUpdate_WellKnownCannotDropParentFlag(t *testing.T) {
	repo := &mockTagTypeRepo{
		findByIDFn: func(ctx context.Context, id int) (*TagType, error) { return categoryType(), nil },
	}
	no := false
	_, err := NewTagTypeService(repo).Update(context.Background(), IDCategory, UpdateTagTypeRequest{IsParent: &no})
	assertAppError(t, err, 422)
}

func TestUpdate_WellKnownKeepsPrivilegedFlag(t *testing.T) {
	repo := &mockTagTypeRepo{
		findByIDFn: func(ctx context.Context, id int) (*TagType, error) { return categoryType(), nil },
	}
	no := false
	_, err := NewTagTypeService(repo).Update(context.Background(), IDCategory, UpdateTagTypeRequest{IsPrivileged: &no})
	assertAppError(t, err, 422)
}

func TestUpdate_WellKnownDisplayOrder(t *testing.T) {
	var saved *TagType
	repo := &mockTagTypeRepo{
		findByIDFn: func(ctx context.Context, id int) (*TagType, error) { return categoryType(), nil },
		updateFn: func(ctx context.Context, tt *TagType) error {
			saved = tt
			return nil
		},
	}
	order := 9
	same := NameCategory
	tt, err := NewTagTypeService(repo).Update(context.Background(), IDCategory, UpdateTagTypeRequest{
		Name: &same, DisplayOrder: &order,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved == nil || saved.DisplayOrder != 9 || tt.Name != NameCategory {
		t.Errorf("expected display order 9 persisted, got %+v", saved)
	}
}

// --- Deactivate Tests ---

func TestDeactivate_WellKnownRejected(t *testing.T) {
	repo := &mockTagTypeRepo{
		findByIDFn: func(ctx context.Context, id int) (*TagType, error) { return categoryType(), nil },
		deactivateFn: func(ctx context.Context, id int) error {
			t.Fatal("deactivate must not be called for well-known types")
			return nil
		},
	}
	err := NewTagTypeService(repo).Deactivate(context.Background(), IDCategory)
	assertAppError(t, err, 422)
}

func TestDeactivate_AdminType(t *testing.T) {
	deactivated := 0
	repo := &mockTagTypeRepo{
		findByIDFn: func(ctx context.Context, id int) (*TagType, error) {
			return &TagType{ID: id, Name: "venue", IsActive: true}, nil
		},
		deactivateFn: func(ctx context.Context, id int) error {
			deactivated = id
			return nil
		},
	}
	if err := NewTagTypeService(repo).Deactivate(context.Background(), 101); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deactivated != 101 {
		t.Errorf("expected tag type 101 deactivated, got %d", deactivated)
	}
}

func TestAllowsMultiple(t *testing.T) {
	if !(&TagType{Name: NameCustom}).AllowsMultiple() {
		t.Error("custom tags must allow multiple")
	}
	for _, name := range []string{NameSupercategory, NameCategory, NameGender, NameWeapon, "venue"} {
		if (&TagType{Name: name}).AllowsMultiple() {
			t.Errorf("%s must be singular", name)
		}
	}
}
