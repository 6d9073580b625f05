package tagcodec

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/foxseedlab/tunesmith/internal/files"
	"github.com/foxseedlab/tunesmith/internal/media"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

const (
	vorbisDiscNumber = "DISCNUMBER"
	coverDescription = "Front cover"
)

// vorbisFields are the comments Write owns. Other comments are preserved.
var vorbisFields = []string{
	flacvorbis.FIELD_ARTIST,
	flacvorbis.FIELD_TITLE,
	flacvorbis.FIELD_ALBUM,
	flacvorbis.FIELD_GENRE,
	flacvorbis.FIELD_DATE,
	flacvorbis.FIELD_TRACKNUMBER,
	vorbisDiscNumber,
}

// FLAC reads and writes Vorbis comments and picture blocks of native FLAC
// files.
type FLAC struct{}

func NewFLAC() *FLAC {
	return &FLAC{}
}

func (c *FLAC) Read(path string) (media.TagSet, error) {
	file, err := parseFLAC(path)
	if err != nil {
		return media.TagSet{}, &media.TagError{Kind: media.TagUnreadable, Path: path, Err: err}
	}

	var tags media.TagSet
	for _, block := range file.Meta {
		switch block.Type {
		case flac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				return media.TagSet{}, &media.TagError{Kind: media.TagUnreadable, Path: path, Err: err}
			}
			tags.Artist = firstComment(cmt, flacvorbis.FIELD_ARTIST)
			tags.Title = firstComment(cmt, flacvorbis.FIELD_TITLE)
			tags.Album = firstComment(cmt, flacvorbis.FIELD_ALBUM)
			tags.Genre = firstComment(cmt, flacvorbis.FIELD_GENRE)
			tags.Year = leadingNumber(firstComment(cmt, flacvorbis.FIELD_DATE))
			tags.TrackNumber = leadingNumber(firstComment(cmt, flacvorbis.FIELD_TRACKNUMBER))
			tags.DiskNumber = leadingNumber(firstComment(cmt, vorbisDiscNumber))
		case flac.Picture:
			pic, err := flacpicture.ParseFromMetaDataBlock(*block)
			if err != nil || len(pic.ImageData) == 0 {
				continue
			}
			if tags.Artwork == nil || pic.PictureType == flacpicture.PictureTypeFrontCover {
				tags.Artwork = pic.ImageData
			}
		}
	}
	return tags, nil
}

// Write replaces the owned comments and, when artwork is given, every
// picture block. The result is written next to path and renamed over it.
func (c *FLAC) Write(path string, tags media.TagSet, artwork []byte) error {
	file, err := parseFLAC(path)
	if err != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}

	cmt := flacvorbis.New()
	meta := make([]*flac.MetaDataBlock, 0, len(file.Meta)+2)
	for _, block := range file.Meta {
		switch {
		case block.Type == flac.VorbisComment:
			existing, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
			}
			cmt.Vendor = existing.Vendor
			cmt.Comments = append(cmt.Comments, unownedComments(existing.Comments)...)
		case block.Type == flac.Picture && len(artwork) > 0:
			// replaced by the new cover
		default:
			meta = append(meta, block)
		}
	}

	if err := addComments(cmt, tags); err != nil {
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}
	added := []*flac.MetaDataBlock{marshalled(cmt.Marshal())}
	if len(artwork) > 0 {
		added = append(added, marshalled(coverPicture(artwork).Marshal()))
	}
	file.Meta = insertAfterStreamInfo(meta, added)

	partial := files.PartialPath(path)
	if err := file.Save(partial); err != nil {
		_ = os.Remove(partial)
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}
	if err := os.Rename(partial, path); err != nil {
		_ = os.Remove(partial)
		return &media.TagError{Kind: media.TagWriteFailed, Path: path, Err: err}
	}
	return nil
}

// parseFLAC loads the whole file. go-flac indexes the first frame bytes
// without a length check, so a file that ends after its metadata panics.
func parseFLAC(path string) (file *flac.File, err error) {
	defer func() {
		if r := recover(); r != nil {
			file, err = nil, fmt.Errorf("truncated flac stream: %v", r)
		}
	}()
	return flac.ParseFile(path)
}

func firstComment(cmt *flacvorbis.MetaDataBlockVorbisComment, key string) string {
	values, err := cmt.Get(key)
	if err != nil || len(values) == 0 {
		return ""
	}
	return values[0]
}

func unownedComments(comments []string) []string {
	kept := make([]string, 0, len(comments))
	for _, comment := range comments {
		key, _, _ := strings.Cut(comment, "=")
		owned := false
		for _, field := range vorbisFields {
			if strings.EqualFold(key, field) {
				owned = true
				break
			}
		}
		if !owned {
			kept = append(kept, comment)
		}
	}
	return kept
}

// addComments writes non-empty fields only, so cleared fields read back empty.
func addComments(cmt *flacvorbis.MetaDataBlockVorbisComment, tags media.TagSet) error {
	values := []struct {
		key   string
		value string
	}{
		{flacvorbis.FIELD_ARTIST, tags.Artist},
		{flacvorbis.FIELD_TITLE, tags.Title},
		{flacvorbis.FIELD_ALBUM, tags.Album},
		{flacvorbis.FIELD_GENRE, tags.Genre},
		{flacvorbis.FIELD_DATE, positive(tags.Year)},
		{flacvorbis.FIELD_TRACKNUMBER, positive(tags.TrackNumber)},
		{vorbisDiscNumber, positive(tags.DiskNumber)},
	}
	for _, v := range values {
		if v.value == "" {
			continue
		}
		if err := cmt.Add(v.key, v.value); err != nil {
			return fmt.Errorf("add %s: %w", v.key, err)
		}
	}
	return nil
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// coverPicture builds a front cover block. Dimensions stay zero when the
// image cannot be decoded.
func coverPicture(artwork []byte) *flacpicture.MetadataBlockPicture {
	pic := &flacpicture.MetadataBlockPicture{
		PictureType: flacpicture.PictureTypeFrontCover,
		MIME:        http.DetectContentType(artwork),
		Description: coverDescription,
		ImageData:   artwork,
	}
	if err := pic.ParsePicture(); err != nil {
		pic.Width, pic.Height, pic.ColorDepth, pic.IndexedColorCount = 0, 0, 0, 0
	}
	return pic
}

func marshalled(block flac.MetaDataBlock) *flac.MetaDataBlock {
	return &block
}

// insertAfterStreamInfo keeps STREAMINFO as the first block.
func insertAfterStreamInfo(meta, added []*flac.MetaDataBlock) []*flac.MetaDataBlock {
	at := 0
	if len(meta) > 0 && meta[0].Type == flac.StreamInfo {
		at = 1
	}
	out := make([]*flac.MetaDataBlock, 0, len(meta)+len(added))
	out = append(out, meta[:at]...)
	out = append(out, added...)
	return append(out, meta[at:]...)
}
