package trace

import (
	"bufio"
	"io"
	"strings"
	"testing"
)

func TestNextDecodesFullRecord(t *testing.T) {
	r := NewReader(strings.NewReader(
		"EIP (5): 1000\n" +
			"dstM: 2000 0000000A   srcM: 3000 0000000B\n",
	))

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec.InstrAddr != 0x1000 || rec.InstrLen != 5 {
		t.Fatalf("got InstrAddr=%#x InstrLen=%d, want 0x1000/5", rec.InstrAddr, rec.InstrLen)
	}
	if !rec.HasDst || rec.DstAddr != 0x2000 {
		t.Fatalf("got HasDst=%v DstAddr=%#x, want true/0x2000", rec.HasDst, rec.DstAddr)
	}
	if !rec.HasSrc || rec.SrcAddr != 0x3000 {
		t.Fatalf("got HasSrc=%v SrcAddr=%#x, want true/0x3000", rec.HasSrc, rec.SrcAddr)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF after the only record, got %v", err)
	}
}

func TestNextTreatsAbsentMarkersAsMissingFields(t *testing.T) {
	r := NewReader(strings.NewReader(
		"EIP (1): FF\n" +
			"dstM: -------- --------   srcM: -------- --------\n",
	))

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec.HasDst || rec.HasSrc {
		t.Fatalf("expected both fields absent, got HasDst=%v HasSrc=%v", rec.HasDst, rec.HasSrc)
	}
}

func TestNextSkipsBlankLinesBetweenRecords(t *testing.T) {
	r := NewReader(strings.NewReader(
		"EIP (1): 10\n" +
			"dstM: -------- --------   srcM: -------- --------\n" +
			"\n" +
			"EIP (2): 20\n" +
			"dstM: -------- --------   srcM: -------- --------\n",
	))

	first, err := r.Next()
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	second, err := r.Next()
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if first.InstrAddr != 0x10 || second.InstrAddr != 0x20 {
		t.Fatalf("got addrs %#x, %#x, want 0x10, 0x20", first.InstrAddr, second.InstrAddr)
	}
}

func TestNextReturnsEOFOnMalformedEIPLine(t *testing.T) {
	r := NewReader(strings.NewReader("garbage line\n"))
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("got %v, want io.EOF for an unrecognized EIP line", err)
	}
}

func TestNextReturnsEOFOnTruncatedRecord(t *testing.T) {
	r := NewReader(strings.NewReader("EIP (1): 10\n"))
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("got %v, want io.EOF when the memory-access line is missing", err)
	}
}

func TestSplitHeaderConsumesVersionLine(t *testing.T) {
	br := bufio.NewReader(strings.NewReader(
		HeaderPrefix + "1.0.0\n" +
			"EIP (1): 10\n" +
			"dstM: -------- --------   srcM: -------- --------\n",
	))

	header, err := SplitHeader(br)
	if err != nil {
		t.Fatalf("SplitHeader: %v", err)
	}
	if header != "1.0.0" {
		t.Fatalf("got header %q, want 1.0.0", header)
	}

	rec, err := NewReader(br).Next()
	if err != nil {
		t.Fatalf("Next after header: %v", err)
	}
	if rec.InstrAddr != 0x10 {
		t.Fatalf("got InstrAddr=%#x, want 0x10", rec.InstrAddr)
	}
}

func TestSplitHeaderIsNoopWithoutHeader(t *testing.T) {
	br := bufio.NewReader(strings.NewReader(
		"EIP (1): 10\n" +
			"dstM: -------- --------   srcM: -------- --------\n",
	))

	header, err := SplitHeader(br)
	if err != nil {
		t.Fatalf("SplitHeader: %v", err)
	}
	if header != "" {
		t.Fatalf("got header %q, want empty", header)
	}

	rec, err := NewReader(br).Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec.InstrAddr != 0x10 {
		t.Fatalf("got InstrAddr=%#x, want 0x10", rec.InstrAddr)
	}
}
