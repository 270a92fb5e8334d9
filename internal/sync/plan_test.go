package sync

import (
	"sort"
	"testing"
	"time"
)

// planNow is an arbitrary Monday morning; schedule-sensitive tests anchor
// relative to it.
var planNow = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func TestBuildPlanPriorityLanes(t *testing.T) {
	f := newFixture(t)
	flashMedia := f.addMedia(t, "sale-banner", 100)
	pinnedMedia := f.addMedia(t, "now-showing", 200)
	upcomingMedia := f.addMedia(t, "next-hour", 300)
	backgroundMedia := f.addMedia(t, "evergreen", 400)

	pinned := f.addPlaylist(t, f.screen.ID, "pinned", pinnedMedia.ID)
	f.pinPlaylist(t, pinned.ID)
	upcoming := f.addPlaylist(t, f.screen.ID, "upcoming", upcomingMedia.ID)
	f.addSchedule(t, upcoming.ID, 0, "10:00", "11:00") // Monday, one hour out
	f.addPlaylist(t, f.screen.ID, "background", backgroundMedia.ID)
	f.addFlashSale(t, flashMedia.ID)

	plan := f.buildPlan(t, planNow)

	wantLanes := map[string]struct {
		priority   string
		requiredBy string
	}{
		flashMedia.ID.String():      {PriorityP0, ReasonFlashSaleActive},
		pinnedMedia.ID.String():     {PriorityP1, ReasonPlaylistActive},
		upcomingMedia.ID.String():   {PriorityP2, ReasonScheduleUpcoming},
		backgroundMedia.ID.String(): {PriorityP3, ReasonBackgroundRequired},
	}
	if len(plan.Items) != len(wantLanes) {
		t.Fatalf("plan has %d items, want %d", len(plan.Items), len(wantLanes))
	}
	for _, item := range plan.Items {
		want, ok := wantLanes[item.MediaID.String()]
		if !ok {
			t.Errorf("unexpected plan item %s", item.MediaID)
			continue
		}
		if item.Priority != want.priority || item.RequiredBy != want.requiredBy {
			t.Errorf("media %s classified %s/%s, want %s/%s",
				item.MediaID, item.Priority, item.RequiredBy, want.priority, want.requiredBy)
		}
	}
}

func TestBuildPlanNeverDowngradesPriority(t *testing.T) {
	f := newFixture(t)
	shared := f.addMedia(t, "shared", 100)

	// Same media is both a flash-sale product and in the pinned playlist.
	pinned := f.addPlaylist(t, f.screen.ID, "pinned", shared.ID)
	f.pinPlaylist(t, pinned.ID)
	f.addFlashSale(t, shared.ID)

	plan := f.buildPlan(t, planNow)
	if len(plan.Items) != 1 {
		t.Fatalf("plan has %d items, want 1", len(plan.Items))
	}
	if plan.Items[0].Priority != PriorityP0 {
		t.Errorf("priority = %s, want P0 to win over P1", plan.Items[0].Priority)
	}
	if plan.Items[0].RequiredBy != ReasonFlashSaleActive {
		t.Errorf("requiredBy = %s, want %s", plan.Items[0].RequiredBy, ReasonFlashSaleActive)
	}
}

func TestBuildPlanStableOrder(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		media := f.addMedia(t, "asset", int64(100+i))
		f.addPlaylist(t, f.screen.ID, "wrap", media.ID)
	}

	first := f.buildPlan(t, planNow)
	second := f.buildPlan(t, planNow)

	sorted := sort.SliceIsSorted(first.Items, func(i, j int) bool {
		ri, rj := priorityRank(first.Items[i].Priority), priorityRank(first.Items[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return first.Items[i].MediaID.String() < first.Items[j].MediaID.String()
	})
	if !sorted {
		t.Error("plan items are not sorted by (priority, media id)")
	}
	if len(first.Items) != len(second.Items) {
		t.Fatalf("rebuild changed item count: %d vs %d", len(first.Items), len(second.Items))
	}
	for i := range first.Items {
		if first.Items[i].MediaID != second.Items[i].MediaID {
			t.Errorf("item %d differs between identical builds", i)
		}
	}
}

func TestBuildPlanSkipAndStatus(t *testing.T) {
	f := newFixture(t)
	cachedMedia := f.addMedia(t, "cached", 500)
	missingMedia := f.addMedia(t, "missing", 700)
	pinned := f.addPlaylist(t, f.screen.ID, "pinned", cachedMedia.ID, missingMedia.ID)
	f.pinPlaylist(t, pinned.ID)
	f.reportCache(t, cachedMedia.ID)

	plan := f.buildPlan(t, planNow)
	if plan.DownloadCount != 1 || plan.SkipCount != 1 {
		t.Fatalf("downloads/skips = %d/%d, want 1/1", plan.DownloadCount, plan.SkipCount)
	}
	if plan.DownloadBytes != 700 {
		t.Errorf("DownloadBytes = %d, want 700", plan.DownloadBytes)
	}
	if plan.TotalBytes != 1200 {
		t.Errorf("TotalBytes = %d, want 1200", plan.TotalBytes)
	}
	if plan.QueueStatus != QueueStatusQueued {
		t.Errorf("QueueStatus = %q, want queued while downloads remain", plan.QueueStatus)
	}

	// Once everything is cached the plan is immediately ready.
	f.reportCache(t, cachedMedia.ID, missingMedia.ID)
	plan = f.buildPlan(t, planNow)
	if plan.DownloadCount != 0 {
		t.Fatalf("DownloadCount = %d, want 0", plan.DownloadCount)
	}
	if plan.QueueStatus != QueueStatusReady {
		t.Errorf("QueueStatus = %q, want ready with zero downloads", plan.QueueStatus)
	}
}

func TestBuildPlanRevisionsAreMonotonic(t *testing.T) {
	f := newFixture(t)
	media := f.addMedia(t, "single", 100)
	pinned := f.addPlaylist(t, f.screen.ID, "pinned", media.ID)
	f.pinPlaylist(t, pinned.ID)

	first := f.buildPlan(t, planNow)
	second := f.buildPlan(t, planNow.Add(time.Millisecond))
	if !(first.Revision < second.Revision) {
		t.Errorf("revisions not monotonic: %q then %q", first.Revision, second.Revision)
	}
}

func TestBuildPlanDraftCampaignContributesNothing(t *testing.T) {
	f := newFixture(t)
	flashMedia := f.addMedia(t, "sale-banner", 100)
	cfg := f.addFlashSale(t, flashMedia.ID)
	if err := f.db.Model(cfg).Update("is_draft", true).Error; err != nil {
		t.Fatalf("mark draft: %v", err)
	}

	plan := f.buildPlan(t, planNow)
	if len(plan.Items) != 0 {
		t.Errorf("draft campaign produced %d plan items, want none", len(plan.Items))
	}
}
