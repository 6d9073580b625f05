package tagcodec

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/tunesmith/internal/files"
	"github.com/foxseedlab/tunesmith/internal/media"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func pngCover(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// flacFrames stands in for encoded audio; it starts with a frame sync code.
var flacFrames = []byte{0xFF, 0xF8, 0x69, 0x08, 0x00, 0x11, 0x22}

func writeFLAC(t *testing.T, comments ...string) string {
	t.Helper()
	file := &flac.File{
		Meta:   []*flac.MetaDataBlock{{Type: flac.StreamInfo, Data: make([]byte, 34)}},
		Frames: flacFrames,
	}
	if len(comments) > 0 {
		cmt := flacvorbis.New()
		cmt.Comments = comments
		block := cmt.Marshal()
		file.Meta = append(file.Meta, &block)
	}
	return writeFile(t, "song.flac", file.Marshal())
}

func TestSniff(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want container
	}{
		{name: "id3", data: []byte("ID3\x04\x00\x00\x00\x00\x00\x00"), want: containerMPEG},
		{name: "mpeg frame", data: []byte{0xFF, 0xFB, 0x90, 0x64}, want: containerMPEG},
		{name: "flac", data: []byte("fLaC\x00\x00\x00\x22"), want: containerFLAC},
		{name: "ogg", data: []byte("OggS\x00\x02\x00\x00"), want: containerOgg},
		{name: "mp4", data: []byte("\x00\x00\x00\x18ftypM4A \x00\x00\x00\x00"), want: containerMP4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sniff(writeFile(t, "in", tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := sniff(writeFile(t, "notes.txt", []byte("hello world")))
	assert.ErrorIs(t, err, errUnsupportedContainer)
	_, err = sniff(writeFile(t, "empty", nil))
	assert.ErrorIs(t, err, errUnsupportedContainer)
}

func TestFLACRoundTrip(t *testing.T) {
	path := writeFLAC(t)
	codec := NewCodec(NewID3(), NewFLAC(), NewRemux("", 0))
	cover := pngCover(t)

	want := media.TagSet{
		Artist:      "Googoosh",
		Title:       "Pol",
		Album:       "Best of",
		Genre:       "Pop",
		Year:        1976,
		DiskNumber:  2,
		TrackNumber: 7,
	}
	require.NoError(t, codec.Write(path, want, cover))

	got, err := codec.Read(path)
	require.NoError(t, err)
	want.Artwork = cover
	assert.Equal(t, want, got)

	file, err := flac.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, flac.StreamInfo, file.Meta[0].Type)
	assert.Equal(t, flacFrames, []byte(file.Frames))
	_, err = os.Stat(files.PartialPath(path))
	assert.True(t, os.IsNotExist(err))
}

func TestFLACKeepsUnownedCommentsAndCover(t *testing.T) {
	path := writeFLAC(t, "ARTIST=Old", "COMMENT=keep me", "tracknumber=3/12")
	codec := NewFLAC()

	got, err := codec.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "Old", got.Artist)
	assert.Equal(t, 3, got.TrackNumber)

	cover := pngCover(t)
	require.NoError(t, codec.Write(path, media.TagSet{Artist: "New"}, cover))
	require.NoError(t, codec.Write(path, media.TagSet{Artist: "Newer"}, nil))

	file, err := flac.ParseFile(path)
	require.NoError(t, err)
	var comments []string
	for _, block := range file.Meta {
		if block.Type == flac.VorbisComment {
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
			require.NoError(t, err)
			comments = append(comments, cmt.Comments...)
		}
	}
	assert.ElementsMatch(t, []string{"COMMENT=keep me", "ARTIST=Newer"}, comments)

	got, err = codec.Read(path)
	require.NoError(t, err)
	assert.Zero(t, got.TrackNumber)
	assert.Equal(t, cover, got.Artwork)
}

func TestFLACRejectsTruncatedStream(t *testing.T) {
	data := append([]byte("fLaC\x80\x00\x00\x22"), make([]byte, 34)...)
	path := writeFile(t, "cut.flac", data)

	_, err := NewCodec(NewID3(), NewFLAC(), NewRemux("", 0)).Read(path)
	assert.ErrorIs(t, err, media.ErrUnreadableTags)
}

// oggPage wraps packets in a single Ogg page with a valid checksum.
func oggPage(packets ...[]byte) []byte {
	var lacing, body []byte
	for _, p := range packets {
		n := len(p)
		for ; n >= 255; n -= 255 {
			lacing = append(lacing, 255)
		}
		lacing = append(lacing, byte(n))
		body = append(body, p...)
	}
	page := []byte("OggS")
	page = append(page, 0, 0x02)
	page = append(page, make([]byte, 8)...)
	page = binary.LittleEndian.AppendUint32(page, 1)
	page = binary.LittleEndian.AppendUint32(page, 0)
	page = append(page, 0, 0, 0, 0)
	page = append(page, byte(len(lacing)))
	page = append(page, lacing...)
	page = append(page, body...)
	binary.LittleEndian.PutUint32(page[22:], oggChecksum(page))
	return page
}

func oggChecksum(data []byte) uint32 {
	var crc uint32
	for _, b := range data {
		crc ^= uint32(b) << 24
		for i := 0; i < 8; i++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04c11db7
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func opusTags(comments ...string) []byte {
	packet := []byte("OpusTags")
	vendor := "tunesmith"
	packet = binary.LittleEndian.AppendUint32(packet, uint32(len(vendor)))
	packet = append(packet, vendor...)
	packet = binary.LittleEndian.AppendUint32(packet, uint32(len(comments)))
	for _, c := range comments {
		packet = binary.LittleEndian.AppendUint32(packet, uint32(len(c)))
		packet = append(packet, c...)
	}
	return packet
}

func TestRemuxReadsOggOpusComments(t *testing.T) {
	cover := pngCover(t)
	picture := base64.StdEncoding.EncodeToString(coverPicture(cover).Marshal().Data)
	data := oggPage(opusTags(
		"ARTIST=Dariush",
		"TITLE=Ghalandar",
		"ALBUM=Live",
		"GENRE=Pop",
		"DATE=1999-05-04",
		"TRACKNUMBER=3/12",
		"DISCNUMBER=1",
		"METADATA_BLOCK_PICTURE="+picture,
	))
	path := writeFile(t, "voice.ogg", data)

	got, err := NewCodec(NewID3(), NewFLAC(), NewRemux("", 0)).Read(path)
	require.NoError(t, err)
	assert.Equal(t, media.TagSet{
		Artist:      "Dariush",
		Title:       "Ghalandar",
		Album:       "Live",
		Genre:       "Pop",
		Year:        1999,
		DiskNumber:  1,
		TrackNumber: 3,
		Artwork:     cover,
	}, got)
}

func mp4Atom(name string, payload ...[]byte) []byte {
	body := bytes.Join(payload, nil)
	out := binary.BigEndian.AppendUint32(nil, uint32(8+len(body)))
	out = append(out, name...)
	return append(out, body...)
}

func mp4Data(class byte, value []byte) []byte {
	return mp4Atom("data", []byte{0, 0, 0, class}, []byte{0, 0, 0, 0}, value)
}

func TestRemuxReadsMP4Atoms(t *testing.T) {
	cover := pngCover(t)
	ilst := mp4Atom("ilst",
		mp4Atom("\xa9nam", mp4Data(1, []byte("Gole Yakh"))),
		mp4Atom("\xa9ART", mp4Data(1, []byte("Kourosh"))),
		mp4Atom("\xa9alb", mp4Data(1, []byte("Gole Yakh"))),
		mp4Atom("\xa9day", mp4Data(1, []byte("1990-01-01"))),
		mp4Atom("trkn", mp4Data(0, []byte{0, 0, 0, 4, 0, 10, 0, 0})),
		mp4Atom("covr", mp4Data(14, cover)),
	)
	data := append(mp4Atom("ftyp", []byte("M4A "), []byte{0, 0, 0, 0}),
		mp4Atom("moov", mp4Atom("udta", mp4Atom("meta", []byte{0, 0, 0, 0}, ilst)))...)
	path := writeFile(t, "song.m4a", data)

	got, err := NewCodec(NewID3(), NewFLAC(), NewRemux("", 0)).Read(path)
	require.NoError(t, err)
	assert.Equal(t, "Gole Yakh", got.Title)
	assert.Equal(t, "Kourosh", got.Artist)
	assert.Equal(t, 1990, got.Year)
	assert.Equal(t, 4, got.TrackNumber)
	assert.Equal(t, cover, got.Artwork)
}

type remuxCall struct {
	name     string
	args     []string
	metadata string
	cover    []byte
}

// fakeFFmpeg records the invocation and copies the source to the last argument.
type fakeFFmpeg struct {
	calls  []remuxCall
	err    error
	output []byte
}

func (f *fakeFFmpeg) run(_ context.Context, name string, args ...string) ([]byte, error) {
	call := remuxCall{name: name, args: args}
	if i := slices.Index(args, "ffmetadata"); i >= 0 {
		data, err := os.ReadFile(args[i+2])
		if err != nil {
			return nil, err
		}
		call.metadata = string(data)
	}
	if i := slices.Index(args, "2:v"); i >= 0 {
		coverIdx := slices.Index(args, "-map") - 1
		data, err := os.ReadFile(args[coverIdx])
		if err != nil {
			return nil, err
		}
		call.cover = data
	}
	f.calls = append(f.calls, call)
	if f.err != nil {
		return f.output, f.err
	}
	src, err := os.ReadFile(args[slices.Index(args, "-i")+1])
	if err != nil {
		return nil, err
	}
	return nil, os.WriteFile(args[len(args)-1], src, 0o644)
}

func newFakeRemux(fake *fakeFFmpeg) *Remux {
	r := NewRemux("/usr/bin/ffmpeg", time.Second)
	r.WithCommandRunner(fake.run)
	return r
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRemuxWritesOggThroughFFmetadata(t *testing.T) {
	original := oggPage(opusTags())
	path := writeFile(t, "song.ogg", original)
	fake := &fakeFFmpeg{}
	codec := NewCodec(NewID3(), NewFLAC(), newFakeRemux(fake))
	cover := pngCover(t)

	err := codec.Write(path, media.TagSet{Artist: "A=B; #1", Title: "Two\nLines", TrackNumber: 3}, cover)
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	call := fake.calls[0]
	assert.Equal(t, "/usr/bin/ffmpeg", call.name)
	assert.Equal(t, files.PartialPath(path), call.args[len(call.args)-1])
	assert.Contains(t, strings.Join(call.args, " "), "-map_metadata:s:a 1:g -f ogg")
	assert.NotContains(t, call.args, "2:v")

	lines := strings.Split(strings.TrimSuffix(call.metadata, "\n"), "\n")
	assert.Equal(t, ";FFMETADATA1", lines[0])
	assert.Contains(t, lines, `artist=A\=B\; \#1`)
	assert.Contains(t, call.metadata, "title=Two\\\nLines\n")
	assert.Contains(t, lines, "track=3")
	assert.NotContains(t, call.metadata, "date=")
	picture := base64.StdEncoding.EncodeToString(coverPicture(cover).Marshal().Data)
	assert.Contains(t, lines, "METADATA_BLOCK_PICTURE="+picture)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
	assert.Equal(t, []string{"song.ogg"}, dirEntries(t, filepath.Dir(path)))
}

func TestRemuxWritesMP4Cover(t *testing.T) {
	path := writeFile(t, "song.m4a", mp4Atom("ftyp", []byte("M4A "), []byte{0, 0, 0, 0}))
	fake := &fakeFFmpeg{}
	codec := NewCodec(NewID3(), NewFLAC(), newFakeRemux(fake))
	cover := pngCover(t)

	require.NoError(t, codec.Write(path, media.TagSet{Title: "T", Year: 2020}, cover))
	require.NoError(t, codec.Write(path, media.TagSet{Title: "T"}, nil))

	require.Len(t, fake.calls, 2)
	withCover := strings.Join(fake.calls[0].args, " ")
	assert.Contains(t, withCover, "-map 0:a -map 2:v -disposition:v:0 attached_pic")
	assert.Contains(t, withCover, "-c copy -map_metadata 1 -f mp4")
	assert.Equal(t, cover, fake.calls[0].cover)
	assert.Contains(t, fake.calls[0].metadata, "date=2020\n")
	assert.NotContains(t, fake.calls[0].metadata, "METADATA_BLOCK_PICTURE")

	keepCover := strings.Join(fake.calls[1].args, " ")
	assert.Contains(t, keepCover, "-map 0 -c copy")
	assert.NotContains(t, keepCover, "2:v")
	assert.Equal(t, []string{"song.m4a"}, dirEntries(t, filepath.Dir(path)))
}

func TestRemuxWriteFailureLeavesFileUntouched(t *testing.T) {
	original := oggPage(opusTags("TITLE=Before"))
	path := writeFile(t, "song.ogg", original)
	fake := &fakeFFmpeg{err: errors.New("exit status 1"), output: []byte("Invalid data found")}
	codec := NewCodec(NewID3(), NewFLAC(), newFakeRemux(fake))

	err := codec.Write(path, media.TagSet{Title: "After"}, nil)
	assert.ErrorIs(t, err, media.ErrTagWriteFailed)
	assert.Contains(t, err.Error(), "Invalid data found")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
	assert.Equal(t, []string{"song.ogg"}, dirEntries(t, filepath.Dir(path)))
}

func TestCodecRoutesMP3ToID3(t *testing.T) {
	path := writeMP3(t)
	fake := &fakeFFmpeg{}
	codec := NewCodec(NewID3(), NewFLAC(), newFakeRemux(fake))

	require.NoError(t, codec.Write(path, media.TagSet{Title: "Pol"}, nil))
	got, err := codec.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "Pol", got.Title)
	assert.Empty(t, fake.calls)
}
