package inputs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/devicestats/internal/manifest"
	"github.com/j-veylop/devicestats/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
}

func newTestService(t *testing.T, watch bool) (*Service, string, string) {
	t.Helper()
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "ids.txt")
	mappingPath := filepath.Join(dir, "mapping.csv")
	writeFile(t, manifestPath, "dev1\ndev2\n")
	writeFile(t, mappingPath, "FullName;Name;Category\ncom.a;Alpha;social\n")

	svc, err := New(manifestPath, models.FormatLancs, mappingPath, watch, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Logf("Close() failed: %v", err)
		}
	})
	return svc, manifestPath, mappingPath
}

func TestNew(t *testing.T) {
	svc, _, _ := newTestService(t, false)

	ev := <-svc.Events()
	if ev.Type != EventLoaded {
		t.Errorf("first event = %v, want EventLoaded", ev.Type)
	}

	snap := svc.Snapshot()
	if snap.Manifest.Len() != 2 {
		t.Errorf("devices = %d, want 2", snap.Manifest.Len())
	}
	if cat, ok := snap.Mapping.Category("com.a"); !ok || cat != "social" {
		t.Errorf("Category(com.a) = %q, %v", cat, ok)
	}
	if len(svc.Paths()) != 2 {
		t.Errorf("Paths() = %v", svc.Paths())
	}
}

func TestNew_MissingManifest(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.txt"), models.FormatDA, "", false, 0)
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestLoad_EmptyManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	writeFile(t, path, "\n\n")
	if _, err := Load(path, models.FormatLancs, ""); err != manifest.ErrNoDevices {
		t.Errorf("Load() err = %v, want ErrNoDevices", err)
	}
}

func TestReload_KeepsPreviousOnError(t *testing.T) {
	svc, manifestPath, _ := newTestService(t, false)
	before := svc.Snapshot()

	writeFile(t, manifestPath, "")
	if _, err := svc.Reload(); err == nil {
		t.Fatal("expected reload error for empty manifest")
	}
	if svc.Snapshot() != before {
		t.Error("failed reload should keep the previous snapshot")
	}

	writeFile(t, manifestPath, "dev1\ndev2\ndev3\n")
	snap, err := svc.Reload()
	if err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if snap.Manifest.Len() != 3 || svc.Snapshot() != snap {
		t.Errorf("snapshot not replaced: %d devices", snap.Manifest.Len())
	}
}

func TestWatchFileChange(t *testing.T) {
	svc, manifestPath, _ := newTestService(t, true)

	// Wait for initial load event
	<-svc.Events()

	writeFile(t, manifestPath, "dev1\ndev2\ndev3\n")

	timeout := time.After(2 * time.Second)
	for {
		select {
		case event := <-svc.Events():
			if event.Type != EventReloaded {
				continue
			}
			if event.Snapshot.Manifest.Len() != 3 {
				t.Errorf("reloaded devices = %d, want 3", event.Snapshot.Manifest.Len())
			}
			if len(event.Paths) != 1 || event.Paths[0] != manifestPath {
				t.Errorf("Paths = %v", event.Paths)
			}
			return
		case <-timeout:
			t.Fatal("timeout waiting for EventReloaded")
		}
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	svc, manifestPath, _ := newTestService(t, true)
	<-svc.Events()

	writeFile(t, filepath.Join(filepath.Dir(manifestPath), "other.txt"), "x")

	select {
	case ev := <-svc.Events():
		t.Errorf("unexpected event %v for unrelated file", ev.Type)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSendEvent_DropsOldest(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	for range 150 {
		svc.sendEvent(Event{Type: EventError})
	}
	if len(svc.Events()) != 100 {
		t.Errorf("expected 100 events, got %d", len(svc.Events()))
	}
}
