// internal/service/focus/manager_test.go

package focus

import (
	"context"
	"errors"
	"strings"
	"testing"

	"feedcore/internal/adapter/storage"
	"feedcore/internal/domain/content"
	"feedcore/internal/domain/focus"
)

type stubHistory struct {
	topics []string
}

func (s *stubHistory) EngagedTopics(userID string) []string { return s.topics }

func newTestManager(history HistorySource) (*Manager, *storage.MemoryFocusStore) {
	store := storage.NewMemoryFocusStore()
	return NewManager(store, history, DefaultManagerConfig()), store
}

func TestCreateFocusAreaValidation(t *testing.T) {
	m, _ := newTestManager(nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		draft focus.Draft
	}{
		{"name too short", focus.Draft{Name: "x"}},
		{"name too long", focus.Draft{Name: strings.Repeat("a", 101)}},
		{"unknown priority", focus.Draft{Name: "Tech", Priority: "extreme"}},
	}
	for _, tt := range tests {
		_, err := m.CreateFocusArea(ctx, "u1", tt.draft)
		if !errors.Is(err, focus.ErrValidation) {
			t.Errorf("%s: error = %v, want ErrValidation", tt.name, err)
		}
	}
}

func TestCreateFocusAreaDefaultsAndDedupe(t *testing.T) {
	m, _ := newTestManager(nil)

	a, err := m.CreateFocusArea(context.Background(), "u1", focus.Draft{
		Name:   "  Tech  ",
		Topics: []string{"AI", "ai", " AI ", "Robotics", ""},
	})
	if err != nil {
		t.Fatalf("CreateFocusArea: %v", err)
	}

	if a.Name != "Tech" {
		t.Errorf("name = %q, want trimmed", a.Name)
	}
	if a.Priority != focus.PriorityMedium {
		t.Errorf("priority = %v, want medium default", a.Priority)
	}
	if !a.IsActive {
		t.Error("new area not active")
	}
	if len(a.Topics) != 2 {
		t.Errorf("topics = %v, want deduplicated to 2", a.Topics)
	}
}

func TestCreateFocusAreaEnforcesPerUserLimit(t *testing.T) {
	cfg := DefaultManagerConfig()
	cfg.MaxPerUser = 2
	m := NewManager(storage.NewMemoryFocusStore(), nil, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := m.CreateFocusArea(ctx, "u1", focus.Draft{Name: "Area"}); err != nil {
			t.Fatalf("CreateFocusArea: %v", err)
		}
	}

	_, err := m.CreateFocusArea(ctx, "u1", focus.Draft{Name: "One too many"})
	if !errors.Is(err, focus.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation at the limit", err)
	}

	// The limit is per user.
	if _, err := m.CreateFocusArea(ctx, "u2", focus.Draft{Name: "Area"}); err != nil {
		t.Errorf("other user blocked: %v", err)
	}
}

func TestUpdateAndDeleteFocusArea(t *testing.T) {
	m, _ := newTestManager(nil)
	ctx := context.Background()

	a, err := m.CreateFocusArea(ctx, "u1", focus.Draft{Name: "Tech", Topics: []string{"AI"}})
	if err != nil {
		t.Fatalf("CreateFocusArea: %v", err)
	}

	updated, err := m.UpdateFocusArea(ctx, "u1", a.ID, focus.Draft{
		Name:     "Tech & Science",
		Topics:   []string{"AI", "Physics"},
		Priority: focus.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("UpdateFocusArea: %v", err)
	}
	if updated.Name != "Tech & Science" || updated.Priority != focus.PriorityHigh {
		t.Errorf("updated = %+v", updated)
	}

	// Another user cannot reach the area.
	if _, err := m.GetFocusArea(ctx, "u2", a.ID); !errors.Is(err, focus.ErrNotFound) {
		t.Errorf("cross-user get error = %v, want ErrNotFound", err)
	}

	if err := m.DeleteFocusArea(ctx, "u1", a.ID); err != nil {
		t.Fatalf("DeleteFocusArea: %v", err)
	}
	if err := m.DeleteFocusArea(ctx, "u1", a.ID); !errors.Is(err, focus.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestSetActiveFiltersValidatesOwnershipAndState(t *testing.T) {
	m, _ := newTestManager(nil)
	ctx := context.Background()

	a, err := m.CreateFocusArea(ctx, "u1", focus.Draft{Name: "Tech", Topics: []string{"AI"}})
	if err != nil {
		t.Fatalf("CreateFocusArea: %v", err)
	}

	if err := m.SetActiveFilters(ctx, "u1", []string{a.ID}); err != nil {
		t.Fatalf("SetActiveFilters: %v", err)
	}

	if err := m.SetActiveFilters(ctx, "u1", []string{"nonexistent"}); !errors.Is(err, focus.ErrValidation) {
		t.Errorf("unknown id error = %v, want ErrValidation", err)
	}

	if _, err := m.SetActive(ctx, "u1", a.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := m.SetActiveFilters(ctx, "u1", []string{a.ID}); !errors.Is(err, focus.ErrValidation) {
		t.Errorf("inactive area error = %v, want ErrValidation", err)
	}
}

func TestDeactivationRemovesFromActiveSet(t *testing.T) {
	m, _ := newTestManager(nil)
	ctx := context.Background()

	a, err := m.CreateFocusArea(ctx, "u1", focus.Draft{Name: "Tech", Topics: []string{"AI"}})
	if err != nil {
		t.Fatalf("CreateFocusArea: %v", err)
	}
	if err := m.SetActiveFilters(ctx, "u1", []string{a.ID}); err != nil {
		t.Fatalf("SetActiveFilters: %v", err)
	}

	if _, err := m.SetActive(ctx, "u1", a.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	active, err := m.ActiveFilters(ctx, "u1")
	if err != nil {
		t.Fatalf("ActiveFilters: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active filters = %d, want 0 after deactivation", len(active))
	}
}

func TestFilterContentPassThroughWithoutActiveFilters(t *testing.T) {
	m, _ := newTestManager(nil)

	items := []content.Item{{ID: "c1"}, {ID: "c2"}}
	matched, err := m.FilterContent(context.Background(), "u1", items)
	if err != nil {
		t.Fatalf("FilterContent: %v", err)
	}

	if len(matched) != 2 {
		t.Fatalf("matched = %d, want all items passed through", len(matched))
	}
	for _, mi := range matched {
		if mi.Score != 0 || len(mi.MatchedAreas) != 0 {
			t.Errorf("pass-through item = %+v, want zero score and no areas", mi)
		}
	}
}

func TestFilterContentMatchesAndExcludes(t *testing.T) {
	m, store := newTestManager(nil)
	ctx := context.Background()

	a, err := m.CreateFocusArea(ctx, "u1", focus.Draft{
		Name:     "AI coverage",
		Topics:   []string{"Artificial Intelligence"},
		Keywords: []string{"model"},
		Priority: focus.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("CreateFocusArea: %v", err)
	}
	if err := m.SetActiveFilters(ctx, "u1", []string{a.ID}); err != nil {
		t.Fatalf("SetActiveFilters: %v", err)
	}

	items := []content.Item{
		{ID: "hit", Title: "A new model ships", Topics: []string{"Artificial Intelligence"}},
		{ID: "miss", Title: "Baking sourdough", Topics: []string{"Cooking"}},
	}

	matched, err := m.FilterContent(ctx, "u1", items)
	if err != nil {
		t.Fatalf("FilterContent: %v", err)
	}
	if len(matched) != 1 || matched[0].Item.ID != "hit" {
		t.Fatalf("matched = %+v, want only the AI item", matched)
	}
	if matched[0].Score < DefaultManagerConfig().MinimumPassScore {
		t.Errorf("score = %v, below the pass threshold", matched[0].Score)
	}
	if len(matched[0].MatchedAreas) != 1 || matched[0].MatchedAreas[0] != a.ID {
		t.Errorf("matched areas = %v, want [%s]", matched[0].MatchedAreas, a.ID)
	}

	// The matching area's counters advance.
	stored, err := store.Get(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.ContentCount != 1 || stored.LastMatchedAt == nil {
		t.Errorf("stored area = %+v, want counters updated", stored)
	}
}

func TestFilterContentCountsEveryMatchedItem(t *testing.T) {
	m, store := newTestManager(nil)
	ctx := context.Background()

	a, err := m.CreateFocusArea(ctx, "u1", focus.Draft{
		Name:   "AI coverage",
		Topics: []string{"AI"},
	})
	if err != nil {
		t.Fatalf("CreateFocusArea: %v", err)
	}
	if err := m.SetActiveFilters(ctx, "u1", []string{a.ID}); err != nil {
		t.Fatalf("SetActiveFilters: %v", err)
	}

	items := []content.Item{
		{ID: "c1", Topics: []string{"AI"}},
		{ID: "c2", Topics: []string{"AI"}},
		{ID: "c3", Topics: []string{"AI"}},
		{ID: "miss", Topics: []string{"Cooking"}},
	}
	matched, err := m.FilterContent(ctx, "u1", items)
	if err != nil {
		t.Fatalf("FilterContent: %v", err)
	}
	if len(matched) != 3 {
		t.Fatalf("matched = %d, want 3", len(matched))
	}

	stored, err := store.Get(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.ContentCount != 3 {
		t.Errorf("ContentCount = %d after 3 matched items, want 3", stored.ContentCount)
	}

	// Counts accumulate across filter calls.
	if _, err := m.FilterContent(ctx, "u1", items[:2]); err != nil {
		t.Fatalf("FilterContent: %v", err)
	}
	stored, err = store.Get(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.ContentCount != 5 {
		t.Errorf("ContentCount = %d after two batches, want 5", stored.ContentCount)
	}
}

func TestFilterContentWeighsPriority(t *testing.T) {
	m, _ := newTestManager(nil)
	ctx := context.Background()

	high, err := m.CreateFocusArea(ctx, "u1", focus.Draft{
		Name: "High", Topics: []string{"AI"}, Priority: focus.PriorityHigh,
	})
	if err != nil {
		t.Fatal(err)
	}
	low, err := m.CreateFocusArea(ctx, "u1", focus.Draft{
		Name: "Low", Topics: []string{"Cooking"}, Priority: focus.PriorityLow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetActiveFilters(ctx, "u1", []string{high.ID, low.ID}); err != nil {
		t.Fatal(err)
	}

	items := []content.Item{
		{ID: "ai", Topics: []string{"AI"}},
		{ID: "cooking", Topics: []string{"Cooking"}},
	}
	matched, err := m.FilterContent(ctx, "u1", items)
	if err != nil {
		t.Fatalf("FilterContent: %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("matched = %d, want 2", len(matched))
	}
	// Both items match a single area fully, so the priority-weighted average
	// equals the per-area score and the ordering is by score only. Both score
	// topic weight alone.
	if matched[0].Score != matched[1].Score {
		t.Errorf("single-area scores differ: %v vs %v", matched[0].Score, matched[1].Score)
	}
}

func TestTemplatesAndCreateFromTemplate(t *testing.T) {
	m, _ := newTestManager(nil)
	ctx := context.Background()

	templates := m.Templates()
	if len(templates) == 0 {
		t.Fatal("template library empty")
	}

	a, err := m.CreateFromTemplate(ctx, "u1", "technology", &focus.Draft{
		Name:   "My Tech",
		Topics: []string{"Quantum Computing"},
	})
	if err != nil {
		t.Fatalf("CreateFromTemplate: %v", err)
	}
	if a.Name != "My Tech" {
		t.Errorf("name = %q, want customization to win", a.Name)
	}

	found := false
	for _, topic := range a.Topics {
		if topic == "Quantum Computing" {
			found = true
		}
	}
	if !found {
		t.Errorf("topics = %v, want template plus custom topics", a.Topics)
	}
	if a.Priority != focus.PriorityHigh {
		t.Errorf("priority = %v, want template default", a.Priority)
	}

	if _, err := m.CreateFromTemplate(ctx, "u1", "nope", nil); !errors.Is(err, focus.ErrValidation) {
		t.Errorf("unknown template error = %v, want ErrValidation", err)
	}
}

func TestSuggestFocusAreasFallsBackToTemplates(t *testing.T) {
	m, _ := newTestManager(nil)

	drafts, err := m.SuggestFocusAreas(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SuggestFocusAreas: %v", err)
	}
	if len(drafts) != len(templateLibrary) {
		t.Errorf("drafts = %d, want the template library", len(drafts))
	}
}

func TestSuggestFocusAreasClustersEngagedTopics(t *testing.T) {
	history := &stubHistory{topics: []string{
		"machine learning", "machine learning", "machine vision", "machine vision",
		"sourdough baking", "sourdough baking",
	}}
	m, _ := newTestManager(history)

	drafts, err := m.SuggestFocusAreas(context.Background(), "u1")
	if err != nil {
		t.Fatalf("SuggestFocusAreas: %v", err)
	}
	if len(drafts) == 0 {
		t.Fatal("no suggestions from engagement history")
	}

	var machineDraft *focus.Draft
	for i := range drafts {
		if strings.Contains(strings.ToLower(drafts[i].Name), "machine") {
			machineDraft = &drafts[i]
		}
	}
	if machineDraft == nil {
		t.Fatalf("drafts = %+v, want a machine-topic cluster", drafts)
	}
	if len(machineDraft.Topics) != 2 {
		t.Errorf("cluster topics = %v, want the two machine topics", machineDraft.Topics)
	}
}

func TestSuggestFocusAreasSkipsCoveredTopics(t *testing.T) {
	history := &stubHistory{topics: []string{
		"machine learning", "machine learning", "machine vision", "machine vision",
	}}
	m, _ := newTestManager(history)
	ctx := context.Background()

	if _, err := m.CreateFocusArea(ctx, "u1", focus.Draft{
		Name:   "ML",
		Topics: []string{"machine learning", "machine vision"},
	}); err != nil {
		t.Fatalf("CreateFocusArea: %v", err)
	}

	drafts, err := m.SuggestFocusAreas(ctx, "u1")
	if err != nil {
		t.Fatalf("SuggestFocusAreas: %v", err)
	}
	// Everything engaged is already covered, so the templates come back.
	if len(drafts) != len(templateLibrary) {
		t.Errorf("drafts = %d, want template fallback", len(drafts))
	}
}
