package packets

import (
	"bytes"
	"testing"
)

// TestConnectEncodeDecodeRoundTrip builds a CONNECT packet the way Dial
// does for a fresh v3.1.1 session and checks the wire bytes decode back to
// the same fields, including the protocol level a broker branches its
// parsing on.
func TestConnectEncodeDecodeRoundTrip(t *testing.T) {
	pkt := &ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		CleanSession:  true,
		KeepAlive:     60,
		ClientID:      "rig-01",
	}

	encoded := encodeToBytes(pkt)

	r := bytes.NewReader(encoded)
	header, err := DecodeFixedHeader(r)
	if err != nil {
		t.Fatalf("DecodeFixedHeader() error = %v", err)
	}

	body := make([]byte, header.RemainingLength)
	if _, err := r.Read(body); err != nil {
		t.Fatalf("reading variable header + payload: %v", err)
	}

	decoded, err := DecodeConnect(body)
	if err != nil {
		t.Fatalf("DecodeConnect() error = %v", err)
	}

	if decoded.ProtocolLevel != pkt.ProtocolLevel {
		t.Errorf("ProtocolLevel = %d, want %d", decoded.ProtocolLevel, pkt.ProtocolLevel)
	}
	if decoded.ClientID != pkt.ClientID {
		t.Errorf("ClientID = %q, want %q", decoded.ClientID, pkt.ClientID)
	}
	if decoded.KeepAlive != pkt.KeepAlive {
		t.Errorf("KeepAlive = %d, want %d", decoded.KeepAlive, pkt.KeepAlive)
	}
	if !decoded.CleanSession {
		t.Error("CleanSession = false, want true")
	}
}

// TestConnackReturnCodes covers both the happy path and a refusal code, the
// two CONNACK shapes connectSequence has to distinguish.
func TestConnackReturnCodes(t *testing.T) {
	cases := []struct {
		label          string
		wire           []byte
		wantCode       uint8
		wantSessPresnt bool
	}{
		{
			label:    "accepted, no session present",
			wire:     []byte{0x00, 0x00},
			wantCode: ConnAccepted,
		},
		{
			label:    "refused, unacceptable protocol version",
			wire:     []byte{0x00, 0x01},
			wantCode: ConnRefusedUnacceptableProtocol,
		},
	}

	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			decoded, err := DecodeConnack(tc.wire, 4)
			if err != nil {
				t.Fatalf("DecodeConnack() error = %v", err)
			}
			if decoded.ReturnCode != tc.wantCode {
				t.Errorf("ReturnCode = %d, want %d", decoded.ReturnCode, tc.wantCode)
			}
			if decoded.SessionPresent != tc.wantSessPresnt {
				t.Errorf("SessionPresent = %v, want %v", decoded.SessionPresent, tc.wantSessPresnt)
			}
		})
	}
}
