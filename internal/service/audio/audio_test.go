package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"testing"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/service/stt"
)

// fakeTranscoder writes a canned WAV or fails after writing partial output.
type fakeTranscoder struct {
	clip    stt.Audio
	raw     []byte // written verbatim when set
	fail    error
	inPaths []string
	inData  [][]byte
}

func (f *fakeTranscoder) Transcode(_ context.Context, inPath, outPath string) error {
	f.inPaths = append(f.inPaths, inPath)
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	f.inData = append(f.inData, data)

	if f.fail != nil {
		os.WriteFile(outPath, []byte("RIFF partial"), 0o600)
		return &TranscodeError{Err: f.fail, Stderr: "Invalid data found when processing input"}
	}
	if f.raw != nil {
		return os.WriteFile(outPath, f.raw, 0o600)
	}
	var buf bytes.Buffer
	if err := WriteWAV(&buf, f.clip); err != nil {
		return err
	}
	return os.WriteFile(outPath, buf.Bytes(), 0o600)
}

func speechClip(samples int) stt.Audio {
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(6000)
		if i%2 == 1 {
			v = -6000
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return stt.Audio{PCM: pcm, SampleRateHz: 16000, Channels: 1, BitsPerSample: 16}
}

func voice(name, body string) models.UploadedArtifact {
	return models.UploadedArtifact{Name: name, Body: bytes.NewBufferString(body)}
}

func voiceNoBody(name string) models.UploadedArtifact {
	return models.UploadedArtifact{Name: name}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		t.Errorf("expected temp dir to be empty, found %s", e.Name())
	}
}
