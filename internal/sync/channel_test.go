package sync

import (
	"os"
	"strings"
	"testing"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestGetDownloadChunkPagination(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for i := 0; i < 5; i++ {
		media := f.addMedia(t, "asset", int64(100+i))
		f.addPlaylist(t, f.screen.ID, "holder", media.ID)
		ids = append(ids, media.ID.String())
	}

	first, err := f.svc.GetDownloadChunk(f.device, 0, 2, false)
	if err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	if len(first.Items) != 2 || !first.HasMore || first.NextCursor != 2 {
		t.Fatalf("first chunk: %d items, hasMore=%v, next=%d; want 2/true/2",
			len(first.Items), first.HasMore, first.NextCursor)
	}
	if first.TotalItems != len(ids) {
		t.Errorf("TotalItems = %d, want %d", first.TotalItems, len(ids))
	}

	last, err := f.svc.GetDownloadChunk(f.device, first.NextCursor, 100, false)
	if err != nil {
		t.Fatalf("last chunk: %v", err)
	}
	if len(last.Items) != 3 || last.HasMore {
		t.Errorf("last chunk: %d items, hasMore=%v; want 3/false", len(last.Items), last.HasMore)
	}
}

func TestGetDownloadChunkClamps(t *testing.T) {
	f := newFixture(t)
	media := f.addMedia(t, "single", 100)
	pinned := f.addPlaylist(t, f.screen.ID, "pinned", media.ID)
	f.pinPlaylist(t, pinned.ID)

	chunk, err := f.svc.GetDownloadChunk(f.device, -5, -1, false)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunk.Items) != 1 {
		t.Errorf("negative cursor/limit should clamp and still serve, got %d items", len(chunk.Items))
	}

	past, err := f.svc.GetDownloadChunk(f.device, 999, 10, false)
	if err != nil {
		t.Fatalf("chunk past end: %v", err)
	}
	if len(past.Items) != 0 || past.HasMore {
		t.Errorf("cursor past end must return an empty page, got %d items", len(past.Items))
	}
}

func TestGetDownloadChunkSkippedItems(t *testing.T) {
	f := newFixture(t)
	cached := f.addMedia(t, "cached", 100)
	missing := f.addMedia(t, "missing", 200)
	pinned := f.addPlaylist(t, f.screen.ID, "pinned", cached.ID, missing.ID)
	f.pinPlaylist(t, pinned.ID)
	f.reportCache(t, cached.ID)

	downloads, err := f.svc.GetDownloadChunk(f.device, 0, 10, false)
	if err != nil {
		t.Fatalf("downloads chunk: %v", err)
	}
	if len(downloads.Items) != 1 || downloads.Items[0].MediaID != missing.ID {
		t.Fatalf("download-only chunk should hold the missing item, got %d items", len(downloads.Items))
	}

	all, err := f.svc.GetDownloadChunk(f.device, 0, 10, true)
	if err != nil {
		t.Fatalf("full chunk: %v", err)
	}
	if len(all.Items) != 2 {
		t.Errorf("includeSkipped chunk has %d items, want 2", len(all.Items))
	}
}

func TestGetDownloadChunkURLsAndPolicy(t *testing.T) {
	t.Setenv("MEDIA_BASE_URL", "https://cdn.example.com/media/")
	t.Setenv("MEDIA_MIRROR_URL", "https://mirror.example.com/media")

	f := newFixture(t)
	media := f.addMedia(t, "banner", 100)
	pinned := f.addPlaylist(t, f.screen.ID, "pinned", media.ID)
	f.pinPlaylist(t, pinned.ID)

	chunk, err := f.svc.GetDownloadChunk(f.device, 0, 10, false)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunk.Items) != 1 {
		t.Fatalf("chunk has %d items, want 1", len(chunk.Items))
	}

	urls := chunk.Items[0].URLs
	if len(urls) != 2 {
		t.Fatalf("URLs = %v, want primary plus mirror", urls)
	}
	if !strings.HasPrefix(urls[0], "https://cdn.example.com/media/") ||
		strings.Contains(strings.TrimPrefix(urls[0], "https://"), "//") {
		t.Errorf("primary URL malformed: %q", urls[0])
	}
	if !strings.HasPrefix(urls[1], "https://mirror.example.com/media/") {
		t.Errorf("mirror URL malformed: %q", urls[1])
	}

	policy := chunk.Policy
	if policy.MaxAttempts < 1 || policy.MaxParallel < 1 {
		t.Error("policy must carry sane retry defaults")
	}
	if len(policy.BackoffSec) == 0 || len(policy.RetryableStatusCodes) == 0 {
		t.Error("policy must carry backoff schedule and retryable status codes")
	}
}

func TestGetDownloadChunkRePersistsPlan(t *testing.T) {
	f := newFixture(t)
	media := f.addMedia(t, "single", 100)
	pinned := f.addPlaylist(t, f.screen.ID, "pinned", media.ID)
	f.pinPlaylist(t, pinned.ID)

	chunk, err := f.svc.GetDownloadChunk(f.device, 0, 10, false)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}

	status, err := f.svc.GetSyncStatus(f.device.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.PlanRevision != chunk.PlanRevision {
		t.Errorf("state revision %q, chunk revision %q; each fetch must persist its plan",
			status.PlanRevision, chunk.PlanRevision)
	}
	if status.QueueStatus != QueueStatusQueued {
		t.Errorf("QueueStatus = %q, want queued", status.QueueStatus)
	}
}

func TestDefaultPolicyIsUsedWithoutOverride(t *testing.T) {
	policy := LoadPolicy()
	want := DefaultPolicy()
	if policy.MaxAttempts != want.MaxAttempts || policy.ConnectTimeoutSec != want.ConnectTimeoutSec {
		t.Errorf("policy = %+v, want defaults %+v", policy, want)
	}
}

func TestLoadPolicyBrokenFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/policy.yaml"
	if err := writeFile(path, "max_attempts: [not an int"); err != nil {
		t.Fatalf("write policy file: %v", err)
	}
	t.Setenv("SYNC_POLICY_FILE", path)

	policy := LoadPolicy()
	if policy.MaxAttempts != DefaultPolicy().MaxAttempts {
		t.Errorf("broken override must fall back to defaults, got %+v", policy)
	}
}

func TestLoadPolicyOverride(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/policy.yaml"
	if err := writeFile(path, "max_attempts: 9\nmax_parallel: 4\n"); err != nil {
		t.Fatalf("write policy file: %v", err)
	}
	t.Setenv("SYNC_POLICY_FILE", path)

	policy := LoadPolicy()
	if policy.MaxAttempts != 9 || policy.MaxParallel != 4 {
		t.Errorf("override not applied: %+v", policy)
	}
	if len(policy.BackoffSec) == 0 {
		t.Error("unset fields must keep their defaults")
	}
}
