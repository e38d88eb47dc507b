package wire

import "testing"

func TestBlockEnvelopeRoundTrip(t *testing.T) {
	bw := NewBlockWriter()
	err := bw.WriteBlock(0x0A, 0, 1, func(c *Codec) error {
		c.WriteU32(1, 7)
		c.WriteU32(2, 0)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	br := NewBlockReader(bw.Bytes())
	fb, err := br.Next()
	if err != nil {
		t.Fatal(err)
	}
	if fb.BlockType != 0x0A || fb.MinVersion != 0 || fb.CurrentVersion != 1 {
		t.Fatalf("unexpected frame: %+v", fb)
	}
	loads, err := br.Codec.ReadU32(1)
	if err != nil || loads != 7 {
		t.Fatalf("loads: %v %v", loads, err)
	}
	merges, err := br.Codec.ReadU32(2)
	if err != nil || merges != 0 {
		t.Fatalf("merges: %v %v", merges, err)
	}
	if err := br.EndBlock(); err != nil {
		t.Fatal(err)
	}

	if _, err := br.Next(); err != ErrEndOfStream {
		t.Fatalf("expected clean end of stream, got %v", err)
	}
}

func TestMultipleBlocksSequential(t *testing.T) {
	bw := NewBlockWriter()
	for i := 0; i < 3; i++ {
		n := uint32(i)
		err := bw.WriteBlock(0x00, 0, 0, func(c *Codec) error {
			c.WriteU32(1, n)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	br := NewBlockReader(bw.Bytes())
	for i := 0; i < 3; i++ {
		fb, err := br.Next()
		if err != nil {
			t.Fatal(err)
		}
		v, err := br.Codec.ReadU32(1)
		if err != nil || v != uint32(i) {
			t.Fatalf("block %d: got %v %v", i, v, err)
		}
		if err := br.EndBlock(); err != nil {
			t.Fatal(err)
		}
		_ = fb
	}
	if _, err := br.Next(); err != ErrEndOfStream {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReservedByteNonzeroRejected(t *testing.T) {
	bw := NewBlockWriter()
	if err := bw.WriteBlock(0x00, 0, 0, func(c *Codec) error { return nil }); err != nil {
		t.Fatal(err)
	}
	data := bw.Bytes()
	data[4] = 1 // reserved byte, right after the u32 length

	br := NewBlockReader(data)
	if _, err := br.Next(); err == nil {
		t.Fatal("expected ReservedByteError")
	} else if _, ok := err.(*ReservedByteError); !ok {
		t.Fatalf("expected ReservedByteError, got %T", err)
	}
}

func TestUnknownBlockCapturedAsOpaqueBytes(t *testing.T) {
	bw := NewBlockWriter()
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := bw.WriteBlock(0xFE, 0, 0, func(c *Codec) error {
		c.BS.WriteBytes(payload)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	br := NewBlockReader(bw.Bytes())
	fb, err := br.Next()
	if err != nil {
		t.Fatal(err)
	}
	got, err := br.SkipBlock(fb)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %x want %x", got, payload)
	}
	if _, err := br.Next(); err != ErrEndOfStream {
		t.Fatalf("stream should continue cleanly after skip, got %v", err)
	}
}

func TestFileHeaderRoundTrip(t *testing.T) {
	buf := WriteFileHeader(nil)
	body, err := ReadFileHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(body) != 0 {
		t.Fatalf("expected empty body, got %d bytes", len(body))
	}
}

func TestBadHeaderRejected(t *testing.T) {
	bad := []byte("not a remarkable file at all, padded to 43 bytes!!!!!!!!!!")
	if _, err := ReadFileHeader(bad[:43]); err == nil {
		t.Fatal("expected BadHeaderError")
	}
	if _, err := ReadFileHeader([]byte("short")); err == nil {
		t.Fatal("expected BadHeaderError for truncated header")
	}
}
