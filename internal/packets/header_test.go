package packets

import (
	"bytes"
	"io"
	"testing"
)

// genericWriter is a simple io.Writer that does NOT implement io.ByteWriter.
// This forces the fallback path in FixedHeader.WriteTo.
type genericWriter struct {
	w io.Writer
}

func (g *genericWriter) Write(p []byte) (n int, err error) {
	return g.w.Write(p)
}

func TestFixedHeader_WriteTo_Fallback(t *testing.T) {
	tests := []struct {
		name   string
		header FixedHeader
	}{
		{
			name: "Connect Header",
			header: FixedHeader{
				PacketType:      CONNECT,
				Flags:           0,
				RemainingLength: 10,
			},
		},
		{
			name: "Large Payload Header",
			header: FixedHeader{
				PacketType:      PUBLISH,
				Flags:           0x02,          // QoS 1
				RemainingLength: 128 * 128 * 2, // Large enough to use multiple bytes for varint
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			gw := &genericWriter{w: &buf}

			// Write using the fallback path
			n, err := tt.header.WriteTo(gw)
			if err != nil {
				t.Fatalf("WriteTo() error = %v", err)
			}

			// Verify correct number of bytes returned
			expectedBytes := 1 + encodedVarIntLen(tt.header.RemainingLength)
			if int(n) != expectedBytes {
				t.Errorf("WriteTo() returned %d bytes, want %d", n, expectedBytes)
			}

			// Verify content against the optimized path (which writes to bytes.Buffer directly)
			var expectedBuf bytes.Buffer
			_, _ = tt.header.WriteTo(&expectedBuf)

			if !bytes.Equal(buf.Bytes(), expectedBuf.Bytes()) {
				t.Errorf("Written bytes mismatch:\ngot  %x\nwant %x", buf.Bytes(), expectedBuf.Bytes())
			}
		})
	}
}

func TestDecodeFixedHeaderBuf(t *testing.T) {
	var buf bytes.Buffer
	h := FixedHeader{PacketType: PUBLISH, Flags: 0x02, RemainingLength: 300}
	if _, err := h.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	decoded, n, err := decodeFixedHeaderBuf(buf.Bytes())
	if err != nil {
		t.Fatalf("decodeFixedHeaderBuf() error = %v", err)
	}
	if decoded != h {
		t.Errorf("decodeFixedHeaderBuf() = %+v, want %+v", decoded, h)
	}
	if n != buf.Len() {
		t.Errorf("decodeFixedHeaderBuf() consumed = %d, want %d", n, buf.Len())
	}
}

func TestDecodeFixedHeaderBufNeedsMore(t *testing.T) {
	// A two-byte varint whose continuation byte is present but the
	// terminating byte hasn't arrived yet.
	_, _, err := decodeFixedHeaderBuf([]byte{0x30, 0x80})
	if err != errNeedMoreData {
		t.Errorf("decodeFixedHeaderBuf() error = %v, want errNeedMoreData", err)
	}

	_, _, err = decodeFixedHeaderBuf(nil)
	if err != errNeedMoreData {
		t.Errorf("decodeFixedHeaderBuf(nil) error = %v, want errNeedMoreData", err)
	}
}

func encodedVarIntLen(x int) int {
	if x == 0 {
		return 1
	}
	count := 0
	for x > 0 {
		x /= 128
		count++
	}
	return count
}
