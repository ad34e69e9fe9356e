package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"ai-offline-assistant/internal/service/stt"
)

var (
	// ErrInvalidWAV is returned for input that is not a RIFF/WAVE stream.
	ErrInvalidWAV = errors.New("not a RIFF/WAVE file")
	// ErrNoAudio is returned when a WAV has no data chunk.
	ErrNoAudio = errors.New("wav file has no data chunk")
	// ErrClipTooLarge is returned when the PCM payload exceeds the limit.
	ErrClipTooLarge = errors.New("voice clip exceeds size limit")
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
	// sizeUnknown marks a data chunk written by a non-seeking encoder.
	sizeUnknown = 0xFFFFFFFF
)

// ReadWAV reads a PCM WAV stream into memory. maxBytes bounds the PCM
// payload; zero means unbounded.
func ReadWAV(r io.Reader, maxBytes int64) (stt.Audio, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return stt.Audio{}, ErrInvalidWAV
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return stt.Audio{}, ErrInvalidWAV
	}

	var (
		clip    stt.Audio
		haveFmt bool
		header  [8]byte
	)
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return stt.Audio{}, ErrNoAudio
			}
			return stt.Audio{}, fmt.Errorf("reading chunk header: %w", err)
		}
		id := string(header[0:4])
		size := binary.LittleEndian.Uint32(header[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return stt.Audio{}, fmt.Errorf("%w: fmt chunk too short", ErrInvalidWAV)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return stt.Audio{}, fmt.Errorf("reading fmt chunk: %w", err)
			}
			tag := binary.LittleEndian.Uint16(body[0:2])
			if tag != formatPCM && tag != formatExtensible {
				return stt.Audio{}, fmt.Errorf("%w: unsupported format tag %d", ErrInvalidWAV, tag)
			}
			clip.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			clip.SampleRateHz = int(binary.LittleEndian.Uint32(body[4:8]))
			clip.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
			if err := skipPad(r, size); err != nil {
				return stt.Audio{}, err
			}

		case "data":
			if !haveFmt {
				return stt.Audio{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			pcm, err := readData(r, size, maxBytes)
			if err != nil {
				return stt.Audio{}, err
			}
			clip.PCM = pcm
			return clip, nil

		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return stt.Audio{}, fmt.Errorf("skipping %q chunk: %w", id, err)
			}
			if err := skipPad(r, size); err != nil {
				return stt.Audio{}, err
			}
		}
	}
}

func readData(r io.Reader, size uint32, maxBytes int64) ([]byte, error) {
	if size == sizeUnknown || size == 0 {
		limit := maxBytes
		if limit <= 0 {
			limit = 1<<63 - 1
		} else {
			limit++
		}
		pcm, err := io.ReadAll(io.LimitReader(r, limit))
		if err != nil {
			return nil, fmt.Errorf("reading data chunk: %w", err)
		}
		if maxBytes > 0 && int64(len(pcm)) > maxBytes {
			return nil, ErrClipTooLarge
		}
		return pcm, nil
	}

	if maxBytes > 0 && int64(size) > maxBytes {
		return nil, ErrClipTooLarge
	}
	pcm := make([]byte, size)
	if _, err := io.ReadFull(r, pcm); err != nil {
		return nil, fmt.Errorf("reading data chunk: %w", err)
	}
	return pcm, nil
}

// skipPad consumes the pad byte that follows an odd-sized chunk.
func skipPad(r io.Reader, size uint32) error {
	if size%2 == 0 {
		return nil
	}
	var pad [1]byte
	if _, err := io.ReadFull(r, pad[:]); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading chunk padding: %w", err)
	}
	return nil
}

// WriteWAV writes clip as a PCM WAV stream.
func WriteWAV(w io.Writer, clip stt.Audio) error {
	blockAlign := clip.Channels * clip.BitsPerSample / 8
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(clip.PCM)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(clip.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(clip.SampleRateHz))
	binary.LittleEndian.PutUint32(header[28:32], uint32(clip.SampleRateHz*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(clip.BitsPerSample))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(clip.PCM)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(clip.PCM)
	return err
}
