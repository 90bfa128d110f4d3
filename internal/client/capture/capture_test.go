package capture

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mp3Header = []byte("ID3\x04\x00\x00\x00\x00\x00\x00fake frames")

func TestLoadFile_Audio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(path, mp3Header, 0o600))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp3", s.Name)
	assert.Equal(t, "audio/mpeg", s.MimeType)
	assert.Equal(t, int64(len(mp3Header)), s.Size)

	raw, err := base64.StdEncoding.DecodeString(s.Base64)
	require.NoError(t, err)
	assert.Equal(t, mp3Header, raw)
}

func TestLoadFile_NotAudio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.mp3")
	require.NoError(t, os.WriteFile(path, []byte("just some text, named like audio\n"), 0o600))

	s, err := LoadFile(path)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrNotAudio)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDetectMimeType_AudioOnlyWebM(t *testing.T) {
	webm := []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42, 0x86, 0x81, 0x01, 0x42, 0xF7, 0x81, 0x01, 0x42, 0xF2, 0x81, 0x04, 0x42, 0xF3, 0x81, 0x08, 0x42, 0x82, 0x84, 'w', 'e', 'b', 'm'}
	assert.Equal(t, "audio/webm", DetectMimeType("recorded.weba", webm))
	assert.Equal(t, "video/webm", DetectMimeType("movie.mkv", webm))
}

func TestEncodeWAV_RoundTrip(t *testing.T) {
	pcm := PCM{
		Samples:     []int{0, 1000, -1000, 32767, -32768, 42, 7, -7},
		SampleRate:  16000,
		NumChannels: 1,
		BitDepth:    16,
	}
	data, err := EncodeWAV(pcm)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, "audio/wav", DetectMimeType("rec.wav", data))

	path := filepath.Join(t.TempDir(), "rec.wav")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	assert.Equal(t, pcm, decodeWAV(t, path))

	s, err := FromBytes("rec.wav", data)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), s.Size)
}

func decodeWAV(t *testing.T, path string) PCM {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile())
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	return PCM{
		Samples:     buf.Data,
		SampleRate:  int(d.SampleRate),
		NumChannels: int(d.NumChans),
		BitDepth:    int(d.BitDepth),
	}
}

func TestEncodeWAV_Invalid(t *testing.T) {
	_, err := EncodeWAV(PCM{})
	assert.ErrorIs(t, err, ErrEmptyRecording)

	_, err = EncodeWAV(PCM{Samples: []int{1}, SampleRate: 0, NumChannels: 1, BitDepth: 16})
	assert.Error(t, err)
}
