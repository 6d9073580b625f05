package tagcodec

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/foxseedlab/tunesmith/internal/media"
)

const (
	frameAttachedPicture = "Attached picture"
	frameTrackNumber     = "Track number/Position in set"
	framePartOfSet       = "Part of a set"
)

// ID3 reads and writes ID3v2 tags. Tags are always written as v2.4 UTF-8.
type ID3 struct{}

func NewID3() *ID3 {
	return &ID3{}
}

func (c *ID3) Read(path string) (media.TagSet, error) {
	if err := requireMPEG(path); err != nil {
		return media.TagSet{}, &media.TagError{Kind: media.TagUnreadable, Path: path, Err: err}
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return media.TagSet{}, &media.TagError{Kind: media.TagUnreadable, Path: path, Err: err}
	}
	defer tag.Close()

	return media.TagSet{
		Artist:      tag.Artist(),
		Title:       tag.Title(),
		Album:       tag.Album(),
		Genre:       tag.Genre(),
		Year:        leadingNumber(tag.Year()),
		DiskNumber:  leadingNumber(tag.GetTextFrame(tag.CommonID(framePartOfSet)).Text),
		TrackNumber: leadingNumber(tag.GetTextFrame(tag.CommonID(frameTrackNumber)).Text),
		Artwork:     frontCover(tag),
	}, nil
}

// Write replaces every field. Zero numbers remove their frame, so they read
// back as zero.
func (c *ID3) Write(path string, tags media.TagSet, artwork []byte) error {
	if err := requireMPEG(path); err != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	tag.SetArtist(tags.Artist)
	tag.SetTitle(tags.Title)
	tag.SetAlbum(tags.Album)
	tag.SetGenre(tags.Genre)
	if tags.Year > 0 {
		tag.SetYear(strconv.Itoa(tags.Year))
	} else {
		tag.DeleteFrames(tag.CommonID("Recording time"))
		tag.DeleteFrames(tag.CommonID("Year"))
	}
	setNumberFrame(tag, framePartOfSet, tags.DiskNumber)
	setNumberFrame(tag, frameTrackNumber, tags.TrackNumber)

	if len(artwork) > 0 {
		tag.DeleteFrames(tag.CommonID(frameAttachedPicture))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    http.DetectContentType(artwork),
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     artwork,
		})
	}

	if err := tag.Save(); err != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}
	return nil
}

func setNumberFrame(tag *id3v2.Tag, description string, n int) {
	id := tag.CommonID(description)
	tag.DeleteFrames(id)
	if n > 0 {
		tag.AddTextFrame(id, tag.DefaultEncoding(), strconv.Itoa(n))
	}
}

func frontCover(tag *id3v2.Tag) []byte {
	var first []byte
	for _, f := range tag.GetFrames(tag.CommonID(frameAttachedPicture)) {
		pic, ok := f.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		if pic.PictureType == id3v2.PTFrontCover {
			return pic.Picture
		}
		if first == nil {
			first = pic.Picture
		}
	}
	return first
}

// leadingNumber parses "3/12" as 3 and "2001-05-04" as 2001. Anything
// else reads as zero.
func leadingNumber(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// requireMPEG rejects anything that is not ID3-tagged or raw MPEG audio.
func requireMPEG(path string) error {
	kind, err := sniff(path)
	if err != nil {
		return err
	}
	if kind != containerMPEG {
		return fmt.Errorf("%w: %s is not mpeg audio", errUnsupportedContainer, kind)
	}
	return nil
}
