package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAV_Header(t *testing.T) {
	samples := []int16{100, -100, 200, -200}

	data, err := EncodeWAV(samples, 16000, 1)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(data) != 44+len(samples)*2 {
		t.Fatalf("Expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("Missing RIFF/WAVE magic")
	}
	if string(data[36:40]) != "data" {
		t.Error("Missing data chunk at canonical offset")
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Errorf("Expected sample rate 16000 in header, got %d", rate)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); size != uint32(len(samples)*2) {
		t.Errorf("Expected data size %d, got %d", len(samples)*2, size)
	}
}

func TestEncodeWAV_Validation(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000, 1); err == nil {
		t.Error("Expected error for empty samples")
	}
	if _, err := EncodeWAV([]int16{1}, 0, 1); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := EncodeWAV([]int16{1}, 16000, 0); err == nil {
		t.Error("Expected error for zero channels")
	}
}

func TestWAV_EncodeDecode(t *testing.T) {
	in := []int16{0, 5000, -5000, 32767, -32768}

	data, err := EncodeWAV(in, 16000, 1)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	out, rate, channels, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}
	if channels != 1 {
		t.Errorf("Expected 1 channel, got %d", channels)
	}
	if len(out) != len(in) {
		t.Fatalf("Expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, in[i], out[i])
		}
	}
}

func TestDecodeWAV_Malformed(t *testing.T) {
	if _, _, _, err := DecodeWAV([]byte("too short")); err == nil {
		t.Error("Expected error for truncated data")
	}

	data, _ := EncodeWAV([]int16{1, 2, 3}, 8000, 1)
	data[0] = 'X' // corrupt RIFF magic
	if _, _, _, err := DecodeWAV(data); err == nil {
		t.Error("Expected error for corrupt magic")
	}
}
