package wire

import (
	"math"
	"testing"
)

func TestVaruintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 63, 64, 127, 128, 300, 16384, 1<<32 - 1, 1 << 40}
	for _, n := range cases {
		w := NewWriter()
		w.WriteVaruint(n)
		r := NewReader(w.Bytes())
		got, err := r.ReadVaruint()
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if got != n {
			t.Fatalf("n=%d: got %d", n, got)
		}
		if r.pos != len(w.Bytes()) {
			t.Fatalf("n=%d: varuint left %d unread bytes", n, len(w.Bytes())-r.pos)
		}
	}
}

func TestVaruintMinimalBytes(t *testing.T) {
	// 127 fits in one byte (no continuation), 128 needs two.
	w := NewWriter()
	w.WriteVaruint(127)
	if len(w.Bytes()) != 1 {
		t.Fatalf("expected 1 byte for 127, got %d", len(w.Bytes()))
	}
	w2 := NewWriter()
	w2.WriteVaruint(128)
	if len(w2.Bytes()) != 2 {
		t.Fatalf("expected 2 bytes for 128, got %d", len(w2.Bytes()))
	}
}

func TestReadPastEndIsEndOfInput(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if _, err := r.ReadBytes(3); err == nil {
		t.Fatal("expected EndOfInputError")
	}
	if _, ok := mustErr(t, r, 3).(*EndOfInputError); !ok {
		t.Fatalf("wrong error type")
	}
}

func mustErr(t *testing.T, r *ByteStream, n int) error {
	t.Helper()
	_, err := r.ReadBytes(n)
	if err == nil {
		t.Fatal("expected error")
	}
	return err
}

func TestWriterGrowsCapacity(t *testing.T) {
	w := NewWriter()
	if cap(w.buf) != initialWriteCapacity {
		t.Fatalf("expected initial capacity %d, got %d", initialWriteCapacity, cap(w.buf))
	}
	big := make([]byte, initialWriteCapacity+1)
	w.WriteBytes(big)
	if cap(w.buf) < len(big) {
		t.Fatalf("capacity did not grow: cap=%d len=%d", cap(w.buf), len(big))
	}
	if len(w.Bytes()) != len(big) {
		t.Fatalf("expected %d bytes written, got %d", len(big), len(w.Bytes()))
	}
}

func TestFloatRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteF32(3.5)
	w.WriteF64(math.Pi)
	r := NewReader(w.Bytes())
	f32, err := r.ReadF32()
	if err != nil || f32 != 3.5 {
		t.Fatalf("f32 round trip: %v %v", f32, err)
	}
	f64, err := r.ReadF64()
	if err != nil || f64 != math.Pi {
		t.Fatalf("f64 round trip: %v %v", f64, err)
	}
}

func TestCrdtIdRoundTrip(t *testing.T) {
	w := NewWriter()
	id := CrdtId{Author: 7, Counter: 1 << 40}
	w.WriteCrdtId(id)
	r := NewReader(w.Bytes())
	got, err := r.ReadCrdtId()
	if err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Fatalf("got %+v want %+v", got, id)
	}
}

func TestCrdtIdOrdering(t *testing.T) {
	a := CrdtId{Author: 1, Counter: 5}
	b := CrdtId{Author: 2, Counter: 0}
	if !a.Less(b) {
		t.Fatal("expected (1,5) < (2,0)")
	}
	if (CrdtId{}).Less(CrdtId{}) {
		t.Fatal("id is not less than itself")
	}
	if !(CrdtId{}).IsEndMarker() {
		t.Fatal("(0,0) must be the end marker")
	}
}

func TestRemainingReadVsWrite(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	r.ReadU8()
	if got := r.Remaining(); got != 2 {
		t.Fatalf("reader remaining: got %d want 2", got)
	}

	w := NewWriter()
	w.WriteU8(1)
	w.WriteU8(2)
	if got := w.Remaining(); got != 2 {
		t.Fatalf("writer remaining: got %d want 2", got)
	}
}
