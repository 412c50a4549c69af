package frame

import (
	"bytes"
	"testing"
)

func TestEncodeReadAll(t *testing.T) {
	frames := [][]byte{[]byte("a"), {}, bytes.Repeat([]byte("xyz"), 1000), []byte(`{"k":1}`)}

	for _, codec := range []string{None, Gzip, Zstd} {
		t.Run(codec, func(t *testing.T) {
			data, err := Encode(frames, codec, 0)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := ReadAll(data)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if len(got) != len(frames) {
				t.Fatalf("got %d frames, want %d", len(got), len(frames))
			}
			for i := range frames {
				if !bytes.Equal(got[i], frames[i]) {
					t.Errorf("frame %d = %q, want %q", i, got[i], frames[i])
				}
			}
		})
	}
}

func TestReadAllEmpty(t *testing.T) {
	got, err := ReadAll(nil)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d frames, want 0", len(got))
	}
}

func TestUnsupportedCodec(t *testing.T) {
	if _, err := NewWriter(&bytes.Buffer{}, "brotli", 0); err == nil {
		t.Fatal("expected error for unsupported codec")
	}
}

func TestTruncatedFrame(t *testing.T) {
	data, err := Encode([][]byte{[]byte("hello world")}, None, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ReadAll(data[:len(data)-3]); err == nil {
		t.Fatal("expected error for truncated frame")
	}
}
