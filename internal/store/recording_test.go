package store

import (
	"errors"
	"testing"
)

func TestRecordingRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	rec := &Recording{Name: "slow nod", ExpectedKind: "nod"}
	samples := []Sample{{X: 0, Y: 1, Z: 0}, {X: 0, Y: 0.9, Z: -0.3}, {X: 0, Y: 1, Z: 0}}
	if err := repo.Create(rec, samples); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("Create should assign an ID")
	}
	if rec.IntervalMs != 50 {
		t.Errorf("IntervalMs default = %d, want 50", rec.IntervalMs)
	}

	got, err := repo.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "slow nod" || got.Samples != len(samples) || got.ExpectedKind != "nod" {
		t.Errorf("unexpected recording: %+v", got)
	}

	stored, err := repo.Samples(rec.ID)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(stored) != len(samples) {
		t.Fatalf("Samples returned %d, want %d", len(stored), len(samples))
	}
	for i := range samples {
		if stored[i] != samples[i] {
			t.Errorf("sample %d = %+v, want %+v", i, stored[i], samples[i])
		}
	}
}

func TestRecordingRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Recordings().GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID = %v, want ErrNotFound", err)
	}
}

func TestRecordingRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	for _, name := range []string{"a", "b"} {
		if err := repo.Create(&Recording{Name: name}, nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	recs, err := repo.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("List returned %d recordings, want 2", len(recs))
	}
}

func TestRecordingRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	rec := &Recording{Name: "shake"}
	if err := repo.Create(rec, []Sample{{X: 1}, {X: 2}}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Delete(rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM recording_samples WHERE recording_id = ?`, rec.ID).Scan(&n); err != nil {
		t.Fatalf("count samples: %v", err)
	}
	if n != 0 {
		t.Errorf("%d samples left after delete", n)
	}
}
