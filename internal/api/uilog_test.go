package api

import "testing"

func TestLogRingBounded(t *testing.T) {
	r := NewLogRing(3)
	for i := 0; i < 5; i++ {
		r.Append(LogEntry{Message: "m"})
	}
	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}
	all := r.Since(0)
	if all[0].Seq != 3 || all[2].Seq != 5 {
		t.Errorf("unexpected seqs %d..%d", all[0].Seq, all[2].Seq)
	}
	if got := r.Since(5); len(got) != 0 {
		t.Errorf("Since(last) = %v", got)
	}
}

func TestLogRingDefaults(t *testing.T) {
	r := NewLogRing(0)
	e := r.Append(LogEntry{Message: "x"})
	if e.Seq != 1 || e.Time.IsZero() {
		t.Errorf("entry not stamped: %+v", e)
	}
	if r.cap != defaultLogCapacity {
		t.Errorf("cap = %d", r.cap)
	}
}
